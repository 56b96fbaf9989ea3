package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/arjun7543/chatroom/internal/domain"
	"github.com/arjun7543/chatroom/internal/persistence/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// mongoRoomStore keeps room records in a collection keyed by room code.
type mongoRoomStore struct {
	db *mongo.Database
}

func NewMongoRoomStore(database *mongo.Database) domain.RoomStore {
	return &mongoRoomStore{
		db: database,
	}
}

func (s *mongoRoomStore) collection() *mongo.Collection {
	return s.db.Collection(db.RoomsCollection)
}

func (s *mongoRoomStore) Find(ctx context.Context, code string) (*domain.Room, error) {
	if code == "" {
		return nil, domain.ErrInvalidInput
	}

	var room domain.Room
	err := s.collection().FindOne(ctx, bson.M{"_id": code}).Decode(&room)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, fmt.Errorf("failed to find room %s: %w", code, err)
	}

	if room.Messages == nil {
		room.Messages = make([]domain.Message, 0)
	}

	return &room, nil
}

func (s *mongoRoomStore) Create(ctx context.Context, room *domain.Room) error {
	if room == nil || room.Code == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.collection().InsertOne(ctx, room)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrRoomAlreadyExists
		}
		return fmt.Errorf("failed to create room %s: %w", room.Code, err)
	}

	return nil
}

func (s *mongoRoomStore) Save(ctx context.Context, room *domain.Room) error {
	if room == nil || room.Code == "" {
		return domain.ErrInvalidInput
	}

	res, err := s.collection().ReplaceOne(ctx, bson.M{"_id": room.Code}, room)
	if err != nil {
		return fmt.Errorf("failed to save room %s: %w", room.Code, err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrRoomNotFound
	}

	return nil
}

func (s *mongoRoomStore) Delete(ctx context.Context, code string) error {
	if code == "" {
		return domain.ErrInvalidInput
	}

	_, err := s.collection().DeleteOne(ctx, bson.M{"_id": code})
	if err != nil {
		return fmt.Errorf("failed to delete room %s: %w", code, err)
	}

	return nil
}
