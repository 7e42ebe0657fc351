package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

func TestLocalStorePutGetRoundtrip(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	now := time.Now().UTC().Truncate(time.Second)

	title := gofakeit.Sentence(3)
	evt := Event{
		SessionID:   "abc123def456",
		AdminUserID: "owner-1",
		FolderID:    "folder-9",
		Metadata:    map[string]string{"title": title, "city": gofakeit.City()},
		CreatedAt:   now,
		ExpiresAt:   now.Add(time.Hour),
		Status:      StatusActive,
		PhotoPaths:  []string{"a.jpg", "sub/b.jpg"},
	}

	if err := store.Put(context.Background(), evt); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	got, err := store.Get(context.Background(), evt.SessionID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.AdminUserID != "owner-1" || got.FolderID != "folder-9" {
		t.Fatalf("unexpected event: %+v", got)
	}
	if got.Metadata["title"] != title {
		t.Fatalf("metadata lost: %+v", got.Metadata)
	}
	if len(got.PhotoPaths) != 2 {
		t.Fatalf("photo paths lost: %v", got.PhotoPaths)
	}
}

func TestLocalStoreGetMissing(t *testing.T) {
	store := NewLocalStore(t.TempDir())

	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
}

func TestLocalStoreUpdateMissing(t *testing.T) {
	store := NewLocalStore(t.TempDir())

	err := store.Update(context.Background(), Event{SessionID: "nope"})
	if !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
}

func TestLocalStoreFindActiveSkipsExpiredAndInactive(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	now := time.Now().UTC()

	put := func(id, scope, status string, expiresAt time.Time) {
		t.Helper()
		err := store.Put(context.Background(), Event{
			SessionID:   id,
			AdminUserID: "owner-1",
			FolderID:    scope,
			CreatedAt:   now,
			ExpiresAt:   expiresAt,
			Status:      status,
		})
		if err != nil {
			t.Fatalf("Put %s: %v", id, err)
		}
	}

	put("expired00001", "folder-a", StatusActive, now.Add(-time.Hour))
	put("inactive0001", "folder-a", StatusInactive, now.Add(time.Hour))
	put("alive0000001", "folder-a", StatusActive, now.Add(time.Hour))

	got, err := store.FindActiveByOwnerAndScope(context.Background(), "owner-1", "folder-a", now)
	if err != nil {
		t.Fatalf("FindActiveByOwnerAndScope returned error: %v", err)
	}
	if got.SessionID != "alive0000001" {
		t.Fatalf("expected the live event, got %q", got.SessionID)
	}

	if _, err := store.FindActiveByOwnerAndScope(context.Background(), "owner-1", "folder-b", now); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound for unknown scope, got %v", err)
	}
}

func TestLocalStoreListByOwnerNewestFirst(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	base := time.Now().UTC()

	for i, id := range []string{"oldest000001", "middle000001", "newest000001"} {
		err := store.Put(context.Background(), Event{
			SessionID:   id,
			AdminUserID: "owner-1",
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
			ExpiresAt:   base.Add(time.Hour),
			Status:      StatusActive,
		})
		if err != nil {
			t.Fatalf("Put %s: %v", id, err)
		}
	}
	if err := store.Put(context.Background(), Event{
		SessionID:   "stranger0001",
		AdminUserID: "owner-2",
		CreatedAt:   base,
		Status:      StatusActive,
	}); err != nil {
		t.Fatalf("Put stranger: %v", err)
	}

	events, err := store.ListByOwner(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("ListByOwner returned error: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].SessionID != "newest000001" || events[2].SessionID != "oldest000001" {
		t.Fatalf("unexpected order: %s, %s, %s", events[0].SessionID, events[1].SessionID, events[2].SessionID)
	}
}

func TestLocalStoreListByOwnerEmptyDir(t *testing.T) {
	store := NewLocalStore(t.TempDir())

	events, err := store.ListByOwner(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("ListByOwner returned error: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
}
