package event

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Store is the persistence contract shared by the primary and fallback adapters.
// Get returns the raw record without expiry or status interpretation.
type Store interface {
	Put(ctx context.Context, evt Event) error
	Get(ctx context.Context, sessionID string) (Event, error)
	Update(ctx context.Context, evt Event) error
	FindActiveByOwnerAndScope(ctx context.Context, ownerID, scope string, now time.Time) (Event, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Event, error)
}

// FallbackStore fronts a primary store with a local-file fallback. Writes land
// whole in exactly one store: the primary when it is reachable, the fallback
// otherwise. Reads check the primary first, then the fallback.
type FallbackStore struct {
	primary  Store
	fallback Store
	log      *zap.Logger
}

// NewFallbackStore builds the two-tier store façade. The primary may be nil,
// in which case every operation goes straight to the fallback.
func NewFallbackStore(primary, fallback Store, log *zap.Logger) *FallbackStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &FallbackStore{primary: primary, fallback: fallback, log: log}
}

func (s *FallbackStore) Put(ctx context.Context, evt Event) error {
	if s.primary != nil {
		err := s.primary.Put(ctx, evt)
		if err == nil {
			return nil
		}
		s.log.Warn("primary event store put failed, using local fallback",
			zap.String("session_id", evt.SessionID), zap.Error(err))
	}
	return s.fallback.Put(ctx, evt)
}

func (s *FallbackStore) Get(ctx context.Context, sessionID string) (Event, error) {
	if s.primary != nil {
		evt, err := s.primary.Get(ctx, sessionID)
		if err == nil {
			return evt, nil
		}
		if !errors.Is(err, ErrEventNotFound) {
			s.log.Warn("primary event store get failed, checking local fallback",
				zap.String("session_id", sessionID), zap.Error(err))
		}
	}
	return s.fallback.Get(ctx, sessionID)
}

func (s *FallbackStore) Update(ctx context.Context, evt Event) error {
	if s.primary != nil {
		err := s.primary.Update(ctx, evt)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrEventNotFound) {
			s.log.Warn("primary event store update failed, trying local fallback",
				zap.String("session_id", evt.SessionID), zap.Error(err))
		}
	}
	return s.fallback.Update(ctx, evt)
}

func (s *FallbackStore) FindActiveByOwnerAndScope(ctx context.Context, ownerID, scope string, now time.Time) (Event, error) {
	if s.primary != nil {
		evt, err := s.primary.FindActiveByOwnerAndScope(ctx, ownerID, scope, now)
		if err == nil {
			return evt, nil
		}
		if !errors.Is(err, ErrEventNotFound) {
			s.log.Warn("primary event store find failed, checking local fallback",
				zap.String("owner_id", ownerID), zap.String("scope", scope), zap.Error(err))
		}
	}
	return s.fallback.FindActiveByOwnerAndScope(ctx, ownerID, scope, now)
}

func (s *FallbackStore) ListByOwner(ctx context.Context, ownerID string) ([]Event, error) {
	if s.primary != nil {
		events, err := s.primary.ListByOwner(ctx, ownerID)
		if err == nil {
			return events, nil
		}
		s.log.Warn("primary event store list failed, checking local fallback",
			zap.String("owner_id", ownerID), zap.Error(err))
	}
	return s.fallback.ListByOwner(ctx, ownerID)
}
