package app

// Room event types delivered to stream subscribers.
const (
	EventQuestion   = "question"
	EventScoreboard = "scoreboard"
)

// RoomEvent is a lightweight notification about a room's progress, fanned
// out to websocket observers.
type RoomEvent struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
	Index  int    `json:"index,omitempty"`
	Text   string `json:"text,omitempty"`
}

// Subscribe returns a channel of events for one room. The caller must invoke
// the returned cancel function to avoid leaks.
func (s *RoomService) Subscribe(roomID string) (<-chan RoomEvent, func()) {
	e := s.entry(roomID)
	ch := make(chan RoomEvent, 8)

	e.subMu.Lock()
	e.subscribers[ch] = struct{}{}
	e.subMu.Unlock()

	cancel := func() {
		e.subMu.Lock()
		if _, ok := e.subscribers[ch]; ok {
			delete(e.subscribers, ch)
			close(ch)
		}
		e.subMu.Unlock()
		s.prune(roomID, e)
	}
	return ch, cancel
}

func (s *RoomService) publish(e *roomEntry, event RoomEvent) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	for ch := range e.subscribers {
		select {
		case ch <- event:
		default:
			// Drop the oldest pending event so slow observers never block a room.
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}
