package resolver

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTestFile(t *testing.T, path string, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestResolveForServingPrefersCanonical(t *testing.T) {
	layout := NewLayout(t.TempDir())
	rctx := ResolutionContext{OwnerID: "owner-1", EventID: "evt123456789"}

	canonical := filepath.Join(layout.EventPhotosDir("evt123456789"), "pic.jpg")
	legacy := filepath.Join(layout.LegacyUploadDir("owner-1"), "pic.jpg")
	writeTestFile(t, canonical, "canonical")
	writeTestFile(t, legacy, "legacy")

	got, err := layout.ResolveForServing("pic.jpg", rctx)
	if err != nil {
		t.Fatalf("ResolveForServing returned error: %v", err)
	}
	if got != canonical {
		t.Fatalf("expected canonical path %s, got %s", canonical, got)
	}
}

func TestResolveForServingFallsBackToLegacy(t *testing.T) {
	layout := NewLayout(t.TempDir())
	rctx := ResolutionContext{OwnerID: "owner-1", EventID: "evt123456789"}

	legacy := filepath.Join(layout.LegacyUploadDir("owner-1"), "pic.jpg")
	writeTestFile(t, legacy, "legacy")

	got, err := layout.ResolveForServing("pic.jpg", rctx)
	if err != nil {
		t.Fatalf("ResolveForServing returned error: %v", err)
	}
	if got != legacy {
		t.Fatalf("expected legacy path %s, got %s", legacy, got)
	}
}

func TestResolveForServingLegacyEventSubfolder(t *testing.T) {
	layout := NewLayout(t.TempDir())
	rctx := ResolutionContext{OwnerID: "owner-1", EventID: "evt123456789"}

	legacyEvent := filepath.Join(layout.LegacyUploadDir("owner-1"), "evt123456789", "pic.jpg")
	writeTestFile(t, legacyEvent, "legacy-event")

	got, err := layout.ResolveForServing("pic.jpg", rctx)
	if err != nil {
		t.Fatalf("ResolveForServing returned error: %v", err)
	}
	if got != legacyEvent {
		t.Fatalf("expected %s, got %s", legacyEvent, got)
	}
}

func TestResolveForServingBasenameMatchInCanonical(t *testing.T) {
	layout := NewLayout(t.TempDir())
	rctx := ResolutionContext{OwnerID: "owner-1", EventID: "evt123456789"}

	stored := filepath.Join(layout.EventPhotosDir("evt123456789"), "subdir", "pic.jpg")
	writeTestFile(t, stored, "nested")

	got, err := layout.ResolveForServing("other/pic.jpg", rctx)
	if err != nil {
		t.Fatalf("ResolveForServing returned error: %v", err)
	}
	if got != stored {
		t.Fatalf("expected basename match %s, got %s", stored, got)
	}
}

func TestResolveForServingScansOwnerCaches(t *testing.T) {
	layout := NewLayout(t.TempDir())
	rctx := ResolutionContext{OwnerID: "owner-1"}

	cached := filepath.Join(layout.CacheDir("owner-1", "folder-9"), "pic.jpg")
	writeTestFile(t, cached, "cached")
	foreign := filepath.Join(layout.CacheDir("owner-2", "folder-9"), "pic2.jpg")
	writeTestFile(t, foreign, "foreign")

	got, err := layout.ResolveForServing("pic.jpg", rctx)
	if err != nil {
		t.Fatalf("ResolveForServing returned error: %v", err)
	}
	if got != cached {
		t.Fatalf("expected cache hit %s, got %s", cached, got)
	}

	if _, err := layout.ResolveForServing("pic2.jpg", rctx); !errors.Is(err, ErrResolutionExhausted) {
		t.Fatalf("another owner's cache must not be served, got %v", err)
	}
}

func TestResolveForServingExhausted(t *testing.T) {
	layout := NewLayout(t.TempDir())
	rctx := ResolutionContext{OwnerID: "owner-1", EventID: "evt123456789"}

	if _, err := layout.ResolveForServing("ghost.jpg", rctx); !errors.Is(err, ErrResolutionExhausted) {
		t.Fatalf("expected ErrResolutionExhausted, got %v", err)
	}
}

func TestResolveForServingRejectsTraversal(t *testing.T) {
	layout := NewLayout(t.TempDir())
	rctx := ResolutionContext{OwnerID: "owner-1", EventID: "evt123456789"}

	for _, name := range []string{"../secret.txt", "a/../../secret.txt", "/etc/passwd", "", ".."} {
		if _, err := layout.ResolveForServing(name, rctx); !errors.Is(err, ErrInvalidPath) {
			t.Fatalf("expected ErrInvalidPath for %q, got %v", name, err)
		}
	}
}

func TestCleanRelPathAcceptsNestedNames(t *testing.T) {
	got, err := cleanRelPath("a/b/pic.jpg")
	if err != nil {
		t.Fatalf("cleanRelPath returned error: %v", err)
	}
	if got != filepath.Join("a", "b", "pic.jpg") {
		t.Fatalf("unexpected cleaned path: %q", got)
	}
}
