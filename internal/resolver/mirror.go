package resolver

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	reingestAttempts = 2
	reingestBackoff  = 2 * time.Second
)

// PhotoProvider pulls source photos from the external provider, keyed by the
// external folder id.
type PhotoProvider interface {
	ListPhotos(ctx context.Context, folderID string) ([]string, error)
	FetchPhoto(ctx context.Context, folderID, name string) (io.ReadCloser, error)
}

// Ingestor feeds materialized files through the ingestion coordinator.
type Ingestor interface {
	IngestPaths(ctx context.Context, ownerID, eventID, scope string, paths []string) (processed int, errs []string, err error)
}

// Mirror copies externally cached photos into canonical event directories and
// self-heals empty canonical directories by re-pulling from the provider.
type Mirror struct {
	layout   Layout
	provider PhotoProvider
	ingestor Ingestor
	log      *zap.Logger
}

// NewMirror constructs the mirror service.
func NewMirror(layout Layout, provider PhotoProvider, ingestor Ingestor, log *zap.Logger) *Mirror {
	if log == nil {
		log = zap.NewNop()
	}
	return &Mirror{layout: layout, provider: provider, ingestor: ingestor, log: log}
}

// Mirror copies every file from the owner's external cache directory into the
// canonical event directory, preserving relative sub-paths. Existing canonical
// files are never overwritten: an identical name with identical size is
// skipped, any other collision is renamed to name_1, name_2, and so on.
// Source files are never deleted. Returns the number of files copied.
func (m *Mirror) Mirror(ownerID, folderID, eventID string) (int, error) {
	src := m.layout.CacheDir(ownerID, folderID)
	dst := m.layout.EventPhotosDir(eventID)

	info, err := os.Stat(src)
	if err != nil || !info.IsDir() {
		return 0, fmt.Errorf("cache directory %s not found", src)
	}

	copied := 0
	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}

		target := filepath.Join(dst, rel)
		if fileExists(target) {
			if sameSize(path, target) {
				return nil
			}
			target = collisionName(target)
		}

		if err := copyFile(path, target); err != nil {
			return fmt.Errorf("copy %s: %w", rel, err)
		}
		copied++
		return nil
	})
	if err != nil {
		return copied, err
	}

	m.log.Info("mirrored cache into canonical event directory",
		zap.String("event_id", eventID),
		zap.String("source", src),
		zap.Int("copied", copied))
	return copied, nil
}

// ForceReingest heals an event whose canonical directory came up empty after
// an expected mirror. It pulls every source photo for the folder straight from
// the external provider into the canonical directory and runs the ingestion
// coordinator over the materialized paths, retrying the pull a bounded number
// of times.
func (m *Mirror) ForceReingest(ctx context.Context, ownerID, folderID, eventID string) (int, error) {
	dst := m.layout.EventPhotosDir(eventID)

	if !dirIsEmpty(dst) {
		m.log.Info("canonical directory already populated, skipping re-ingest",
			zap.String("event_id", eventID))
		return 0, nil
	}

	var (
		paths   []string
		lastErr error
	)
	for attempt := 1; attempt <= reingestAttempts; attempt++ {
		paths, lastErr = m.pullFromProvider(ctx, folderID, dst)
		if lastErr == nil {
			break
		}
		m.log.Warn("provider pull failed",
			zap.String("event_id", eventID),
			zap.Int("attempt", attempt),
			zap.Error(lastErr))
		if attempt < reingestAttempts {
			select {
			case <-time.After(reingestBackoff):
			case <-ctx.Done():
				return 0, ctx.Err()
			}
		}
	}
	if lastErr != nil {
		return 0, fmt.Errorf("pull folder %s from provider: %w", folderID, lastErr)
	}
	if len(paths) == 0 {
		return 0, fmt.Errorf("provider folder %s has no photos", folderID)
	}

	processed, errs, err := m.ingestor.IngestPaths(ctx, ownerID, eventID, folderID, paths)
	if err != nil {
		return processed, fmt.Errorf("re-ingest event %s: %w", eventID, err)
	}
	if len(errs) > 0 {
		m.log.Warn("re-ingest finished with per-file errors",
			zap.String("event_id", eventID),
			zap.Strings("errors", errs))
	}

	m.log.Info("force re-ingest completed",
		zap.String("event_id", eventID),
		zap.Int("files", len(paths)),
		zap.Int("faces_indexed", processed))
	return processed, nil
}

func (m *Mirror) pullFromProvider(ctx context.Context, folderID, dst string) ([]string, error) {
	names, err := m.provider.ListPhotos(ctx, folderID)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, name := range names {
		rel, err := cleanRelPath(name)
		if err != nil {
			continue
		}

		target := filepath.Join(dst, rel)
		if fileExists(target) {
			paths = append(paths, target)
			continue
		}

		reader, err := m.provider.FetchPhoto(ctx, folderID, name)
		if err != nil {
			return paths, fmt.Errorf("fetch %s: %w", name, err)
		}
		err = writeStream(target, reader)
		reader.Close()
		if err != nil {
			return paths, fmt.Errorf("write %s: %w", name, err)
		}
		paths = append(paths, target)
	}
	return paths, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	return writeStream(dst, in)
}

func writeStream(dst string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// collisionName finds the first free name_1, name_2, ... variant, keeping the
// extension in place.
func collisionName(target string) string {
	ext := filepath.Ext(target)
	stem := strings.TrimSuffix(target, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if !fileExists(candidate) {
			return candidate
		}
	}
}

func sameSize(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return ai.Size() == bi.Size()
}

func dirIsEmpty(dir string) bool {
	empty := true
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			empty = false
			return filepath.SkipAll
		}
		return nil
	})
	return empty
}
