package app

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/amahmoodi1379-glitch/psynex-exambot/internal/ref"
)

// Messenger is the outbound chat client. The real implementation lives with
// the bot ingress; the core only needs to post messages with keyboards and
// strip keyboards off old ones.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string, keyboard [][]ref.Button) (messageID int64, err error)
	EditReplyMarkup(ctx context.Context, chatID int64, messageID int64, keyboard [][]ref.Button) error
}

// LogMessenger writes outbound messages to the log instead of a chat
// platform. Used when the service runs without a bot attached.
type LogMessenger struct {
	logger *slog.Logger
	nextID atomic.Int64
}

func NewLogMessenger(logger *slog.Logger) *LogMessenger {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMessenger{logger: logger}
}

func (m *LogMessenger) SendMessage(_ context.Context, chatID int64, text string, keyboard [][]ref.Button) (int64, error) {
	id := m.nextID.Add(1)
	m.logger.Info("outbound message", "chat", chatID, "messageId", id, "text", text, "buttons", countButtons(keyboard))
	return id, nil
}

func (m *LogMessenger) EditReplyMarkup(_ context.Context, chatID int64, messageID int64, keyboard [][]ref.Button) error {
	m.logger.Info("edit reply markup", "chat", chatID, "messageId", messageID, "buttons", countButtons(keyboard))
	return nil
}

func countButtons(keyboard [][]ref.Button) int {
	n := 0
	for _, row := range keyboard {
		n += len(row)
	}
	return n
}
