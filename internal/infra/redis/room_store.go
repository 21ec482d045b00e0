package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/amahmoodi1379-glitch/psynex-exambot/internal/domain"
)

// RoomStore keeps one JSON blob per room at room:{roomID}. The room actor is
// the single writer, so plain GET/SET is enough; the blob carries a schema
// version for forward-compatible reads.
type RoomStore struct {
	client *redis.Client
}

func NewRoomStore(client *redis.Client) *RoomStore {
	return &RoomStore{client: client}
}

func (s *RoomStore) key(roomID string) string {
	return "room:" + roomID
}

func (s *RoomStore) Get(ctx context.Context, roomID string) (*domain.Room, error) {
	raw, err := s.client.Get(ctx, s.key(roomID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNoRoom
	}
	if err != nil {
		return nil, fmt.Errorf("load room %s: %w", roomID, err)
	}
	var room domain.Room
	if err := json.Unmarshal(raw, &room); err != nil {
		return nil, fmt.Errorf("decode room %s: %w", roomID, err)
	}
	return &room, nil
}

func (s *RoomStore) Put(ctx context.Context, room *domain.Room) error {
	raw, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("encode room %s: %w", room.ID, err)
	}
	if err := s.client.Set(ctx, s.key(room.ID), raw, 0).Err(); err != nil {
		return fmt.Errorf("store room %s: %w", room.ID, err)
	}
	return nil
}
