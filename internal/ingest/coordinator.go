package ingest

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cloudface-ai/CloudFace-Ai/internal/config"
	"github.com/cloudface-ai/CloudFace-Ai/internal/faceindex"
	"github.com/cloudface-ai/CloudFace-Ai/internal/metrics"
	"github.com/cloudface-ai/CloudFace-Ai/internal/resolver"
	"go.uber.org/zap"
)

// Coordinator drives one batch of photo files through persistence, decoding
// and face indexing with a bounded worker pool. A call blocks until the whole
// batch finishes; there is no partial or streaming result.
type Coordinator struct {
	indexer  faceindex.Indexer
	layout   resolver.Layout
	progress ProgressSink
	log      *zap.Logger
	workers  int
	maxDepth int
}

// NewCoordinator constructs a coordinator with the configured pool width and
// folder depth limit.
func NewCoordinator(indexer faceindex.Indexer, layout resolver.Layout, progress ProgressSink, cfg config.IngestConfig, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 8
	}
	maxDepth := cfg.MaxFolderDepth
	if maxDepth < 1 {
		maxDepth = 5
	}
	return &Coordinator{
		indexer:  indexer,
		layout:   layout,
		progress: progress,
		log:      log,
		workers:  workers,
		maxDepth: maxDepth,
	}
}

// batchState is the shared mutable state of one batch call. A single
// coarse-grained mutex guards both counters and the error list; per-file work
// dominates lock hold time by orders of magnitude.
type batchState struct {
	mu        sync.Mutex
	total     int
	processed int
	completed int
	aborted   bool
	errors    []string
}

func (b *batchState) addFaces(n int) {
	b.mu.Lock()
	b.processed += n
	b.mu.Unlock()
}

func (b *batchState) addError(msg string) {
	b.mu.Lock()
	b.errors = append(b.errors, msg)
	b.mu.Unlock()
	metrics.FileErrors.Inc()
}

func (b *batchState) fileDone() (completed, total int) {
	b.mu.Lock()
	b.completed++
	completed, total = b.completed, b.total
	b.mu.Unlock()
	return completed, total
}

func (b *batchState) markAborted(cause any) {
	b.mu.Lock()
	b.aborted = true
	b.errors = append(b.errors, fmt.Sprintf("batch aborted: %v", cause))
	b.mu.Unlock()
}

func (b *batchState) isAborted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.aborted
}

func (b *batchState) snapshot() (processed int, errs []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.processed, append([]string(nil), b.errors...)
}

// IngestUploads processes an in-memory collection of uploaded files under the
// event's scope. Files with unsupported extensions or excessive folder depth
// are dropped before the batch total is frozen. Per-file failures are
// collected; the batch never fails fast.
func (c *Coordinator) IngestUploads(ctx context.Context, ownerID, eventID, scope string, files []UploadFile) (result Result) {
	started := time.Now()
	state := &batchState{}

	defer func() {
		if r := recover(); r != nil {
			c.log.Error("ingestion batch panicked",
				zap.String("scope", scope), zap.Any("panic", r))
			processed, errs := state.snapshot()
			result = Result{
				Success:        false,
				TotalFiles:     state.total,
				ProcessedCount: processed,
				Errors:         append(errs, fmt.Sprintf("batch aborted: %v", r)),
				Message:        "ingestion failed",
			}
		}
		metrics.BatchDuration.Observe(time.Since(started).Seconds())
	}()

	accepted := c.filterUploads(files)
	state.total = len(accepted)
	if state.total == 0 {
		return Result{Success: false, Errors: []string{}, Message: "no supported image files found"}
	}

	// The index partition is not safe across scopes, so it is selected once,
	// synchronously, before any worker starts. All workers share this scope.
	if err := c.indexer.SetScope(ctx, ownerID, scope); err != nil {
		return Result{
			Success:    false,
			TotalFiles: state.total,
			Errors:     []string{fmt.Sprintf("select face index scope: %v", err)},
			Message:    "ingestion failed",
		}
	}

	c.log.Info("starting upload batch",
		zap.String("owner_id", ownerID),
		zap.String("event_id", eventID),
		zap.String("scope", scope),
		zap.Int("total_files", state.total),
		zap.Int("workers", c.workers))

	jobs := make(chan UploadFile)
	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range jobs {
				file := file
				c.runGuarded(state, func() {
					c.processUpload(ctx, ownerID, eventID, scope, file, state)
				})
				c.reportProgress(ctx, ownerID, state)
			}
		}()
	}
	for _, file := range accepted {
		jobs <- file
	}
	close(jobs)
	wg.Wait()

	return c.finish(ctx, scope, state)
}

// IngestPaths processes already-materialized files under the event's canonical
// directory. It satisfies the resolver's Ingestor contract and backs the force
// re-ingest self-healing path.
func (c *Coordinator) IngestPaths(ctx context.Context, ownerID, eventID, scope string, paths []string) (processed int, errs []string, err error) {
	state := &batchState{}
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			c.log.Error("path ingestion panicked",
				zap.String("scope", scope), zap.Any("panic", r))
			processed, errs = state.snapshot()
			err = fmt.Errorf("batch aborted: %v", r)
		}
		metrics.BatchDuration.Observe(time.Since(started).Seconds())
	}()

	state.total = len(paths)
	if state.total == 0 {
		return 0, nil, nil
	}

	if err := c.indexer.SetScope(ctx, ownerID, scope); err != nil {
		return 0, nil, fmt.Errorf("select face index scope: %w", err)
	}

	scopeDir, err := filepath.Abs(c.layout.EventPhotosDir(eventID))
	if err != nil {
		return 0, nil, fmt.Errorf("resolve scope directory: %w", err)
	}

	jobs := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				path := path
				c.runGuarded(state, func() {
					c.processPath(ctx, ownerID, scope, scopeDir, path, state)
				})
				c.reportProgress(ctx, ownerID, state)
			}
		}()
	}
	for _, path := range paths {
		jobs <- path
	}
	close(jobs)
	wg.Wait()

	result := c.finish(ctx, scope, state)
	if !result.Success {
		return result.ProcessedCount, result.Errors, fmt.Errorf("batch aborted")
	}
	return result.ProcessedCount, result.Errors, nil
}

// runGuarded keeps one panicking file from taking the process down with it.
// The batch is marked failed but partial state survives into the result.
func (c *Coordinator) runGuarded(state *batchState, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("ingestion worker panicked", zap.Any("panic", r))
			state.markAborted(r)
		}
	}()
	fn()
}

func (c *Coordinator) finish(ctx context.Context, scope string, state *batchState) Result {
	processed, errs := state.snapshot()

	if state.isAborted() {
		c.log.Error("batch aborted",
			zap.String("scope", scope),
			zap.Int("faces_indexed", processed),
			zap.Int("errors", len(errs)))
		return Result{
			Success:        false,
			TotalFiles:     state.total,
			ProcessedCount: processed,
			Errors:         errs,
			Message:        "ingestion failed",
		}
	}

	if processed > 0 {
		if err := c.indexer.Flush(ctx); err != nil {
			c.log.Warn("flush face index failed",
				zap.String("scope", scope), zap.Error(err))
		}
	}

	c.log.Info("batch completed",
		zap.String("scope", scope),
		zap.Int("total_files", state.total),
		zap.Int("faces_indexed", processed),
		zap.Int("errors", len(errs)))

	if errs == nil {
		errs = []string{}
	}
	return Result{
		Success:        true,
		TotalFiles:     state.total,
		ProcessedCount: processed,
		Errors:         errs,
		Message:        fmt.Sprintf("Successfully processed %d faces from %d images", processed, state.total),
	}
}

func (c *Coordinator) processUpload(ctx context.Context, ownerID, eventID, scope string, file UploadFile, state *batchState) {
	defer metrics.FilesProcessed.Inc()

	rel := filepath.FromSlash(file.Name)
	dest := filepath.Join(c.layout.EventPhotosDir(eventID), rel)

	// Bytes are held in memory before persisting so a consumed reader can
	// never leave a truncated file and a decode working on different data.
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		state.addError(fmt.Sprintf("%s: save failed", file.Name))
		return
	}
	if err := os.WriteFile(dest, file.Data, 0o644); err != nil {
		state.addError(fmt.Sprintf("%s: save failed", file.Name))
		return
	}

	c.indexFile(ctx, ownerID, scope, file.Name, file.Data, state)
}

func (c *Coordinator) processPath(ctx context.Context, ownerID, scope, scopeDir, path string, state *batchState) {
	defer metrics.FilesProcessed.Inc()

	abs, err := filepath.Abs(path)
	if err != nil || !strings.HasPrefix(abs, scopeDir+string(filepath.Separator)) {
		return
	}
	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() {
		return
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		state.addError(fmt.Sprintf("%s: read failed", filepath.Base(path)))
		return
	}

	c.indexFile(ctx, ownerID, scope, filepath.Base(path), data, state)
}

// indexFile decodes one image and writes every detected face descriptor into
// the index partition shared by the batch.
func (c *Coordinator) indexFile(ctx context.Context, ownerID, scope, name string, data []byte, state *batchState) {
	img, err := decodeImage(data)
	if err != nil {
		state.addError(fmt.Sprintf("%s: decode failed", name))
		return
	}

	faces, err := c.indexer.DetectFaces(ctx, img)
	if err != nil {
		state.addError(fmt.Sprintf("%s: face detection failed", name))
		return
	}
	if len(faces) == 0 {
		// photos without faces are a no-op, not an error
		return
	}

	reference := photoReference(ownerID, name)
	indexed := 0
	for i, face := range faces {
		faceRef := fmt.Sprintf("%s_face_%d", reference, i)
		if err := c.indexer.AddFace(ctx, face, faceRef, ownerID, scope); err != nil {
			state.addError(fmt.Sprintf("%s: failed to index face", name))
			continue
		}
		indexed++
	}

	if indexed > 0 {
		state.addFaces(indexed)
		metrics.FacesIndexed.Add(float64(indexed))
	}
}

func (c *Coordinator) reportProgress(ctx context.Context, ownerID string, state *batchState) {
	if c.progress == nil {
		return
	}
	completed, total := state.fileDone()
	if total == 0 {
		return
	}
	percent := completed * 100 / total
	if err := c.progress.Set(ctx, ownerID, percent); err != nil {
		c.log.Debug("progress update failed", zap.Error(err))
	}
}

func (c *Coordinator) filterUploads(files []UploadFile) []UploadFile {
	accepted := make([]UploadFile, 0, len(files))
	for _, file := range files {
		if file.Name == "" || !isSupportedImage(file.Name) {
			continue
		}
		if strings.Contains(file.Name, "..") || filepath.IsAbs(file.Name) {
			c.log.Warn("skipping file with unsafe path", zap.String("name", file.Name))
			continue
		}
		if depth := pathDepth(file.Name); depth > c.maxDepth {
			c.log.Warn("skipping file with excessive folder depth",
				zap.String("name", file.Name), zap.Int("depth", depth))
			continue
		}
		accepted = append(accepted, file)
	}
	return accepted
}

// photoReference derives the deterministic per-photo reference from the owner
// and a hash of the relative filename.
func photoReference(ownerID, name string) string {
	sum := md5.Sum([]byte(name))
	return fmt.Sprintf("uploaded_%s_%s_%s", ownerID, hex.EncodeToString(sum[:])[:16], name)
}
