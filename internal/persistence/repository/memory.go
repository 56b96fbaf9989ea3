package repository

import (
	"context"
	"sync"

	"github.com/arjun7543/chatroom/internal/domain"
)

// memoryRoomStore is a map-backed RoomStore for tests and single-node
// deployments without Mongo. Records are stored and returned as copies so
// callers can only change durable state through Save.
type memoryRoomStore struct {
	rooms map[string]*domain.Room
	mu    sync.RWMutex
}

func NewMemoryRoomStore() domain.RoomStore {
	return &memoryRoomStore{
		rooms: make(map[string]*domain.Room),
	}
}

func (s *memoryRoomStore) Find(ctx context.Context, code string) (*domain.Room, error) {
	if code == "" {
		return nil, domain.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	room, exists := s.rooms[code]
	if !exists {
		return nil, domain.ErrRoomNotFound
	}

	return room.Clone(), nil
}

func (s *memoryRoomStore) Create(ctx context.Context, room *domain.Room) error {
	if room == nil || room.Code == "" {
		return domain.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rooms[room.Code]; exists {
		return domain.ErrRoomAlreadyExists
	}

	s.rooms[room.Code] = room.Clone()
	return nil
}

func (s *memoryRoomStore) Save(ctx context.Context, room *domain.Room) error {
	if room == nil || room.Code == "" {
		return domain.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rooms[room.Code]; !exists {
		return domain.ErrRoomNotFound
	}

	s.rooms[room.Code] = room.Clone()
	return nil
}

func (s *memoryRoomStore) Delete(ctx context.Context, code string) error {
	if code == "" {
		return domain.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.rooms, code)
	return nil
}
