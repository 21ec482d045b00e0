package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/amahmoodi1379-glitch/psynex-exambot/internal/app"
	"github.com/amahmoodi1379-glitch/psynex-exambot/internal/domain"
	"github.com/amahmoodi1379-glitch/psynex-exambot/internal/infra/memory"
	"github.com/amahmoodi1379-glitch/psynex-exambot/internal/ref"
)

func TestWSStreamsRoomEvents(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	pool := make([]domain.Question, 0, 5)
	for i := 0; i < 5; i++ {
		pool = append(pool, domain.Question{
			ID:      fmt.Sprintf("q%d", i),
			Prompt:  fmt.Sprintf("prompt %d", i),
			Options: []string{"a", "b", "c", "d"},
			Correct: 0,
		})
	}
	questions := memory.NewStaticQuestionSource(map[memory.PoolKey][]domain.Question{
		{CourseID: "algebra", Template: domain.TemplateKonkoori}: pool,
	})
	scheduler := app.NewTimerScheduler()
	defer scheduler.Close()
	service := app.NewRoomService(memory.NewRoomStore(), questions, &silentMessenger{}, scheduler,
		ref.NewService(memory.NewAliasStore())).WithLogger(logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", NewWSHandler(service, logger).ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	roomID, err := service.Create(ctx, app.CreateRequest{ChatID: 1, OwnerID: "owner"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := service.Join(ctx, roomID, "u1", "U1"); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := service.SetMode(ctx, roomID, "owner", 5); err != nil {
		t.Fatalf("mode: %v", err)
	}
	if _, err := service.SetCourse(ctx, roomID, "owner", "algebra"); err != nil {
		t.Fatalf("course: %v", err)
	}
	if _, err := service.SetTemplate(ctx, roomID, "owner", domain.TemplateKonkoori); err != nil {
		t.Fatalf("template: %v", err)
	}

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?roomId=" + roomID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Give the handler a beat to register its subscription before the first
	// event is published.
	time.Sleep(100 * time.Millisecond)

	if err := service.Start(ctx, roomID, "owner"); err != nil {
		t.Fatalf("start: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read event: %v", err)
	}
	var event app.RoomEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if event.Type != app.EventQuestion || event.RoomID != roomID || event.Index != 0 {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestWSRequiresRoomID(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	scheduler := app.NewTimerScheduler()
	defer scheduler.Close()
	service := app.NewRoomService(memory.NewRoomStore(), memory.NewStaticQuestionSource(nil),
		&silentMessenger{}, scheduler, ref.NewService(memory.NewAliasStore())).WithLogger(logger)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/ws", nil)
	NewWSHandler(service, logger).ServeWS(recorder, request)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", recorder.Code)
	}
}
