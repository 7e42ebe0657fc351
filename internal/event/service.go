package event

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Service manages event identity: creation, de-duplication, retrieval and
// deactivation. All persistence goes through a Store, normally the
// primary/fallback façade.
type Service struct {
	store   Store
	ttl     time.Duration
	log     *zap.Logger
	nowFunc func() time.Time
}

// NewService constructs an event service with the fixed event TTL.
func NewService(store Store, ttl time.Duration, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:   store,
		ttl:     ttl,
		log:     log,
		nowFunc: func() time.Time { return time.Now().UTC() },
	}
}

// Create mints a new event or returns an existing one.
//
// A requested scope equal to LocalUploadScope (or empty) mints a fresh id and
// sets the storage scope equal to that id, so identity and directory coincide
// by construction. For any other scope an existing active, unexpired event for
// the same (owner, scope) pair is reused instead of minting a duplicate; the
// check is best-effort, not transactional.
func (s *Service) Create(ctx context.Context, ownerID, requestedScope string, metadata map[string]string, photoPaths []string) (string, error) {
	if ownerID == "" {
		return "", fmt.Errorf("owner id required")
	}

	now := s.nowFunc()
	sessionID := NewSessionID()
	scope := requestedScope

	if requestedScope == "" || requestedScope == LocalUploadScope {
		scope = sessionID
	} else {
		existing, err := s.store.FindActiveByOwnerAndScope(ctx, ownerID, requestedScope, now)
		if err == nil {
			s.log.Info("reusing existing event for scope",
				zap.String("session_id", existing.SessionID),
				zap.String("owner_id", ownerID),
				zap.String("scope", requestedScope))
			return existing.SessionID, nil
		}
		if !errors.Is(err, ErrEventNotFound) {
			return "", fmt.Errorf("find event by scope: %w", err)
		}
	}

	evt := Event{
		SessionID:   sessionID,
		AdminUserID: ownerID,
		FolderID:    scope,
		Metadata:    metadata,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
		AccessCount: 0,
		Status:      StatusActive,
		PhotoPaths:  dedupePaths(nil, photoPaths),
	}

	if err := s.store.Put(ctx, evt); err != nil {
		return "", fmt.Errorf("persist event: %w", err)
	}

	s.log.Info("created event",
		zap.String("session_id", sessionID),
		zap.String("owner_id", ownerID),
		zap.String("scope", scope))
	return sessionID, nil
}

// FindByOwnerAndScope returns an existing active, unexpired event for the pair.
func (s *Service) FindByOwnerAndScope(ctx context.Context, ownerID, scope string) (Event, error) {
	return s.store.FindActiveByOwnerAndScope(ctx, ownerID, scope, s.nowFunc())
}

// Get retrieves an event by id. Expired or inactive records read as not found.
// A hit increments the access count as a side effect; the expiry time is never
// extended by access.
func (s *Service) Get(ctx context.Context, sessionID string) (Event, error) {
	evt, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return Event{}, err
	}

	if evt.Expired(s.nowFunc()) || evt.Status != StatusActive {
		return Event{}, ErrEventNotFound
	}

	evt.AccessCount++
	if err := s.store.Update(ctx, evt); err != nil {
		// Access counting is best-effort; the read itself still succeeds.
		s.log.Warn("record event access failed",
			zap.String("session_id", sessionID), zap.Error(err))
	}
	return evt, nil
}

// AppendPhotoPaths merges new relative paths into the stored ordered set,
// preserving first-seen order. Re-appending present paths is a no-op.
func (s *Service) AppendPhotoPaths(ctx context.Context, sessionID string, newPaths []string) error {
	evt, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}

	merged := dedupePaths(evt.PhotoPaths, newPaths)
	if len(merged) == len(evt.PhotoPaths) {
		return nil
	}

	evt.PhotoPaths = merged
	return s.store.Update(ctx, evt)
}

// Deactivate flips the event to inactive. Only the creating owner may do so.
func (s *Service) Deactivate(ctx context.Context, sessionID, ownerID string) error {
	evt, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if evt.AdminUserID != ownerID {
		return ErrEventForbidden
	}

	evt.Status = StatusInactive
	if err := s.store.Update(ctx, evt); err != nil {
		return err
	}

	s.log.Info("deactivated event",
		zap.String("session_id", sessionID), zap.String("owner_id", ownerID))
	return nil
}

// ListByOwner returns every event created by the owner, newest first.
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]Event, error) {
	return s.store.ListByOwner(ctx, ownerID)
}

func dedupePaths(existing, incoming []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	merged := make([]string, 0, len(existing)+len(incoming))
	for _, p := range existing {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		merged = append(merged, p)
	}
	for _, p := range incoming {
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		merged = append(merged, p)
	}
	return merged
}
