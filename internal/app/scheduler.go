package app

import (
	"sync"
	"time"
)

// TimerScheduler delivers per-room wake-ups with one time.AfterFunc per
// room. Scheduling again replaces the pending timer, so an early-completed
// question's stale deadline never fires.
type TimerScheduler struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
	fire   func(roomID string)
}

func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{timers: make(map[string]*time.Timer)}
}

// SetHandler wires the wake callback. Must be called before Schedule.
func (t *TimerScheduler) SetHandler(fire func(roomID string)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fire = fire
}

func (t *TimerScheduler) Schedule(roomID string, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.timers[roomID]; ok {
		prev.Stop()
	}
	d := time.Until(at)
	if d < 0 {
		d = 0
	}
	fire := t.fire
	t.timers[roomID] = time.AfterFunc(d, func() {
		t.mu.Lock()
		delete(t.timers, roomID)
		t.mu.Unlock()
		if fire != nil {
			fire(roomID)
		}
	})
}

func (t *TimerScheduler) Cancel(roomID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.timers[roomID]; ok {
		prev.Stop()
		delete(t.timers, roomID)
	}
}

// Close stops every pending timer.
func (t *TimerScheduler) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, timer := range t.timers {
		timer.Stop()
		delete(t.timers, id)
	}
}
