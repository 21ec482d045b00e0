package app_test

import (
	"context"
	"testing"

	"github.com/amahmoodi1379-glitch/psynex-exambot/internal/app"
)

func TestRoomEventsPublished(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, bank(5))
	roomID := f.setupRoom(t, 5, "u1")

	events, cancel := f.service.Subscribe(roomID)
	defer cancel()

	if err := f.service.Start(ctx, roomID, "owner"); err != nil {
		t.Fatalf("start: %v", err)
	}

	event := <-events
	if event.Type != app.EventQuestion || event.Index != 0 {
		t.Fatalf("expected first question event, got %+v", event)
	}

	for i := 0; i < 5; i++ {
		if _, err := f.service.Answer(ctx, roomID, "u1", i, 0); err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
	}

	// Drain the remaining question events; the last event is the scoreboard.
	var last app.RoomEvent
	for i := 0; i < 5; i++ {
		last = <-events
	}
	if last.Type != app.EventScoreboard {
		t.Fatalf("expected scoreboard event, got %+v", last)
	}
}
