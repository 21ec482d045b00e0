package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/amahmoodi1379-glitch/psynex-exambot/internal/domain"
)

// RoomStore is an in-memory implementation of app.RoomStore. Rooms go
// through a JSON round-trip on both sides so it behaves like the Redis
// store: mutations only stick after Put.
type RoomStore struct {
	mu    sync.RWMutex
	rooms map[string][]byte
}

func NewRoomStore() *RoomStore {
	return &RoomStore{rooms: make(map[string][]byte)}
}

func (s *RoomStore) Get(_ context.Context, roomID string) (*domain.Room, error) {
	s.mu.RLock()
	raw, ok := s.rooms[roomID]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNoRoom
	}
	var room domain.Room
	if err := json.Unmarshal(raw, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *RoomStore) Put(_ context.Context, room *domain.Room) error {
	raw, err := json.Marshal(room)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.rooms[room.ID] = raw
	s.mu.Unlock()
	return nil
}
