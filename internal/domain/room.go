package domain

import (
	"context"
	"errors"
)

// MaxMembers caps how many people may occupy a single room at once.
const MaxMembers = 10

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomAlreadyExists = errors.New("room already exists")
	ErrRoomFull          = errors.New("room is full")
	ErrMemberNotFound    = errors.New("member not found")
	ErrNameTaken         = errors.New("name already taken")
	ErrInvalidInput      = errors.New("invalid input")
)

// Message is one chat line inside a room. The message log is append-only
// for the lifetime of the room and dies with it.
type Message struct {
	User string `bson:"user" json:"user"`
	Text string `bson:"text" json:"text"`
}

// Room is the durable record of one live room, keyed by its join code.
// A record exists in storage if and only if at least one member occupies
// the room; the session manager deletes it the moment membership hits zero.
type Room struct {
	Code     string    `bson:"_id" json:"code"`
	Members  []string  `bson:"members" json:"members"`
	Messages []Message `bson:"messages" json:"messages"`
}

func NewRoom(code, owner string) *Room {
	return &Room{
		Code:     code,
		Members:  []string{owner},
		Messages: make([]Message, 0),
	}
}

func (r *Room) HasMember(name string) bool {
	for _, m := range r.Members {
		if m == name {
			return true
		}
	}
	return false
}

// AddMember appends a display name, enforcing the capacity bound and
// per-room name uniqueness.
func (r *Room) AddMember(name string) error {
	if len(r.Members) >= MaxMembers {
		return ErrRoomFull
	}
	if r.HasMember(name) {
		return ErrNameTaken
	}
	r.Members = append(r.Members, name)
	return nil
}

// RemoveMember drops the first occurrence of a display name.
func (r *Room) RemoveMember(name string) error {
	for i, m := range r.Members {
		if m == name {
			r.Members = append(r.Members[:i], r.Members[i+1:]...)
			return nil
		}
	}
	return ErrMemberNotFound
}

func (r *Room) Append(user, text string) {
	r.Messages = append(r.Messages, Message{User: user, Text: text})
}

func (r *Room) Empty() bool {
	return len(r.Members) == 0
}

// Clone returns an independent copy so callers can mutate freely before
// saving the record back.
func (r *Room) Clone() *Room {
	cp := &Room{
		Code:     r.Code,
		Members:  make([]string, len(r.Members)),
		Messages: make([]Message, len(r.Messages)),
	}
	copy(cp.Members, r.Members)
	copy(cp.Messages, r.Messages)
	return cp
}

// RoomStore is the durability collaborator. Every call crosses an I/O
// boundary and may fail; the session manager treats such failures as fatal
// for the triggering action.
type RoomStore interface {
	Find(ctx context.Context, code string) (*Room, error)
	Create(ctx context.Context, room *Room) error
	Save(ctx context.Context, room *Room) error
	Delete(ctx context.Context, code string) error
}
