package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/arjun7543/chatroom/internal/domain"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryRoomStore()
	ctx := context.Background()

	room := domain.NewRoom("ABCD", "alice")
	if err := store.Create(ctx, room); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	found, err := store.Find(ctx, "ABCD")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if found.Code != "ABCD" || len(found.Members) != 1 {
		t.Fatalf("unexpected record: %+v", found)
	}
}

func TestMemoryStoreCreateDuplicate(t *testing.T) {
	store := NewMemoryRoomStore()
	ctx := context.Background()

	if err := store.Create(ctx, domain.NewRoom("ABCD", "alice")); err != nil {
		t.Fatal(err)
	}
	err := store.Create(ctx, domain.NewRoom("ABCD", "bob"))
	if !errors.Is(err, domain.ErrRoomAlreadyExists) {
		t.Fatalf("expected ErrRoomAlreadyExists, got %v", err)
	}
}

func TestMemoryStoreFindUnknown(t *testing.T) {
	store := NewMemoryRoomStore()

	_, err := store.Find(context.Background(), "NOPE")
	if !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestMemoryStoreSaveRequiresExisting(t *testing.T) {
	store := NewMemoryRoomStore()

	err := store.Save(context.Background(), domain.NewRoom("ABCD", "alice"))
	if !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryRoomStore()
	ctx := context.Background()

	if err := store.Create(ctx, domain.NewRoom("ABCD", "alice")); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, "ABCD"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Find(ctx, "ABCD"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected the record to be gone, got %v", err)
	}

	// Deleting an absent code is not an error.
	if err := store.Delete(ctx, "ABCD"); err != nil {
		t.Fatalf("expected idempotent delete, got %v", err)
	}
}

// Records handed out by the store are copies; mutating them must not change
// durable state until Save.
func TestMemoryStoreIsolatesRecords(t *testing.T) {
	store := NewMemoryRoomStore()
	ctx := context.Background()

	if err := store.Create(ctx, domain.NewRoom("ABCD", "alice")); err != nil {
		t.Fatal(err)
	}

	first, err := store.Find(ctx, "ABCD")
	if err != nil {
		t.Fatal(err)
	}
	first.Append("alice", "draft that was never saved")

	second, err := store.Find(ctx, "ABCD")
	if err != nil {
		t.Fatal(err)
	}
	if len(second.Messages) != 0 {
		t.Fatalf("unsaved mutation leaked into the store: %v", second.Messages)
	}
}
