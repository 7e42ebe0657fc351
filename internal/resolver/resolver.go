package resolver

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrResolutionExhausted means the full serving fallback chain found nothing.
	ErrResolutionExhausted = errors.New("photo not found in any storage location")
	// ErrInvalidPath rejects traversal attempts and absolute paths.
	ErrInvalidPath = errors.New("invalid photo path")
)

// Layout computes the on-disk locations of the photo storage tree. The
// canonical directory of an event is a pure function of the event id alone.
type Layout struct {
	root string
}

// NewLayout builds a layout rooted at the storage directory.
func NewLayout(root string) Layout {
	return Layout{root: root}
}

// Root returns the storage root directory.
func (l Layout) Root() string {
	return l.root
}

// EventPhotosDir is the single authoritative location for an event's photos.
func (l Layout) EventPhotosDir(eventID string) string {
	return filepath.Join(l.root, "events", eventID, "photos")
}

// LegacyUploadDir is the historical per-owner upload location.
func (l Layout) LegacyUploadDir(ownerID string) string {
	return filepath.Join(l.root, "uploads", ownerID)
}

// CacheDir is the external-provider mirror source for one (owner, folder) pair.
func (l Layout) CacheDir(ownerID, folderID string) string {
	return filepath.Join(l.root, "downloads", ownerID+"_"+folderID)
}

func (l Layout) downloadsDir() string {
	return filepath.Join(l.root, "downloads")
}

// ResolutionContext carries the identity used to locate a photo. EventID is
// the explicit event override when present, otherwise the requester's own
// current scope; FolderID is the external folder bound to that scope, if any.
type ResolutionContext struct {
	OwnerID  string
	EventID  string
	FolderID string
}

// ResolveForServing finds the photo on disk, trying in fixed order: the
// canonical event directory (exact relative path), the legacy per-owner
// directory (exact), a basename-only match within canonical, and finally a
// scan of every cache directory prefixed by the owner id. The first existing
// match wins.
func (l Layout) ResolveForServing(filename string, rctx ResolutionContext) (string, error) {
	rel, err := cleanRelPath(filename)
	if err != nil {
		return "", err
	}

	if rctx.EventID != "" {
		canonical := filepath.Join(l.EventPhotosDir(rctx.EventID), rel)
		if fileExists(canonical) {
			return canonical, nil
		}
	}

	if rctx.OwnerID != "" {
		legacy := filepath.Join(l.LegacyUploadDir(rctx.OwnerID), rel)
		if fileExists(legacy) {
			return legacy, nil
		}
		if rctx.EventID != "" {
			// older layout kept per-event subfolders under the owner dir
			legacyEvent := filepath.Join(l.LegacyUploadDir(rctx.OwnerID), rctx.EventID, rel)
			if fileExists(legacyEvent) {
				return legacyEvent, nil
			}
		}
	}

	if rctx.EventID != "" {
		// historical path normalization sometimes dropped subfolders, so a
		// basename match within canonical still serves the right bytes
		if match := findByBasename(l.EventPhotosDir(rctx.EventID), filepath.Base(rel)); match != "" {
			return match, nil
		}
	}

	if rctx.OwnerID != "" {
		if match := l.scanOwnerCaches(rctx.OwnerID, rel); match != "" {
			return match, nil
		}
	}

	return "", ErrResolutionExhausted
}

func (l Layout) scanOwnerCaches(ownerID, rel string) string {
	entries, err := os.ReadDir(l.downloadsDir())
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), ownerID+"_") {
			continue
		}
		candidate := filepath.Join(l.downloadsDir(), entry.Name(), rel)
		if fileExists(candidate) {
			return candidate
		}
	}
	return ""
}

func cleanRelPath(p string) (string, error) {
	p = filepath.ToSlash(strings.TrimSpace(p))
	if p == "" || strings.HasPrefix(p, "/") {
		return "", ErrInvalidPath
	}
	cleaned := filepath.Clean(filepath.FromSlash(p))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) || filepath.IsAbs(cleaned) {
		return "", ErrInvalidPath
	}
	return cleaned, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func findByBasename(dir, base string) string {
	var match string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || match != "" {
			return filepath.SkipAll
		}
		if !d.IsDir() && d.Name() == base {
			match = path
			return filepath.SkipAll
		}
		return nil
	})
	return match
}
