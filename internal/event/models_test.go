package event

import (
	"testing"
	"time"
)

func TestNewSessionIDShape(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := NewSessionID()
		if len(id) != 12 {
			t.Fatalf("expected 12-char id, got %q", id)
		}
		for _, r := range id {
			if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
				t.Fatalf("unexpected character %q in id %q", r, id)
			}
		}
		if _, ok := seen[id]; ok {
			t.Fatalf("duplicate session id %q", id)
		}
		seen[id] = struct{}{}
	}
}

func TestExpiredBoundary(t *testing.T) {
	deadline := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	evt := Event{ExpiresAt: deadline}

	if evt.Expired(deadline.Add(-time.Second)) {
		t.Fatalf("event expired before its deadline")
	}
	if evt.Expired(deadline) {
		t.Fatalf("event expired exactly at its deadline")
	}
	if !evt.Expired(deadline.Add(time.Second)) {
		t.Fatalf("event not expired after its deadline")
	}
}
