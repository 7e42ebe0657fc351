package event

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// LocalStore is the file-based fallback event store. Each event is one JSON
// document under {root}/sessions/{session_id}.json.
type LocalStore struct {
	dir string
}

// NewLocalStore builds a local store rooted at {root}/sessions.
func NewLocalStore(root string) *LocalStore {
	return &LocalStore{dir: filepath.Join(root, "sessions")}
}

// Put writes the event document, creating the sessions directory on first use.
func (s *LocalStore) Put(_ context.Context, evt Event) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create sessions dir: %w", err)
	}
	return s.write(evt)
}

// Get reads a raw event document by id.
func (s *LocalStore) Get(_ context.Context, sessionID string) (Event, error) {
	data, err := os.ReadFile(s.path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return Event{}, ErrEventNotFound
		}
		return Event{}, fmt.Errorf("read session file: %w", err)
	}

	var evt Event
	if err := json.Unmarshal(data, &evt); err != nil {
		return Event{}, fmt.Errorf("decode session file: %w", err)
	}
	return evt, nil
}

// Update rewrites an existing event document.
func (s *LocalStore) Update(ctx context.Context, evt Event) error {
	if _, err := s.Get(ctx, evt.SessionID); err != nil {
		return err
	}
	return s.write(evt)
}

// FindActiveByOwnerAndScope scans the sessions directory for the newest
// active, unexpired event matching the (owner, scope) pair.
func (s *LocalStore) FindActiveByOwnerAndScope(ctx context.Context, ownerID, scope string, now time.Time) (Event, error) {
	events, err := s.ListByOwner(ctx, ownerID)
	if err != nil {
		return Event{}, err
	}
	for _, evt := range events {
		if evt.FolderID == scope && evt.Status == StatusActive && !evt.Expired(now) {
			return evt, nil
		}
	}
	return Event{}, ErrEventNotFound
}

// ListByOwner returns the owner's events, newest first.
func (s *LocalStore) ListByOwner(_ context.Context, ownerID string) ([]Event, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read sessions dir: %w", err)
	}

	var events []Event
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			continue
		}
		var evt Event
		if err := json.Unmarshal(data, &evt); err != nil {
			continue
		}
		if evt.AdminUserID == ownerID {
			events = append(events, evt)
		}
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].CreatedAt.After(events[j].CreatedAt)
	})
	return events, nil
}

func (s *LocalStore) path(sessionID string) string {
	return filepath.Join(s.dir, sessionID+".json")
}

func (s *LocalStore) write(evt Event) error {
	data, err := json.MarshalIndent(evt, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.WriteFile(s.path(evt.SessionID), data, 0o644); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}
