package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cloudface-ai/CloudFace-Ai/internal/config"
	"github.com/redis/go-redis/v9"
)

// ProgressSink receives batch completion percentages (0-100) keyed by owner.
// It is polled by clients outside the ingestion core.
type ProgressSink interface {
	Set(ctx context.Context, ownerID string, percent int) error
	Get(ctx context.Context, ownerID string) (int, error)
}

// NewSinkFromConfig picks the Redis sink when an address is configured and
// falls back to the in-process sink otherwise.
func NewSinkFromConfig(cfg config.ProgressConfig) ProgressSink {
	if cfg.RedisAddr == "" {
		return NewMemorySink()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return NewRedisSink(client, cfg.TTL)
}

// MemorySink tracks progress in process memory.
type MemorySink struct {
	mu       sync.RWMutex
	percents map[string]int
}

// NewMemorySink builds an empty in-process sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{percents: make(map[string]int)}
}

func (s *MemorySink) Set(_ context.Context, ownerID string, percent int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.percents[ownerID] = clampPercent(percent)
	return nil
}

func (s *MemorySink) Get(_ context.Context, ownerID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.percents[ownerID], nil
}

// RedisSink shares progress across instances through Redis.
type RedisSink struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSink wraps a Redis client as a progress sink.
func NewRedisSink(client *redis.Client, ttl time.Duration) *RedisSink {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisSink{client: client, ttl: ttl}
}

func (s *RedisSink) Set(ctx context.Context, ownerID string, percent int) error {
	return s.client.Set(ctx, progressKey(ownerID), clampPercent(percent), s.ttl).Err()
}

func (s *RedisSink) Get(ctx context.Context, ownerID string) (int, error) {
	val, err := s.client.Get(ctx, progressKey(ownerID)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	return val, nil
}

func progressKey(ownerID string) string {
	return fmt.Sprintf("ingest:progress:%s", ownerID)
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
