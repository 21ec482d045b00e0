package http

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/amahmoodi1379-glitch/psynex-exambot/internal/app"
)

// WSHandler streams room events (questions posted, final scoreboard) to
// websocket observers.
type WSHandler struct {
	service  *app.RoomService
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.RoomService, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS upgrades the request and forwards room events until either side
// closes the connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	roomID := r.URL.Query().Get("roomId")
	if roomID == "" {
		http.Error(w, "missing roomId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	events, cancel := h.service.Subscribe(roomID)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Drain reads so close frames and pings are processed.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Debug("ws write failed", "room", roomID, "err", err)
				return
			}
		case <-done:
			return
		}
	}
}
