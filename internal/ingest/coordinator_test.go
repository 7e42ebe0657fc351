package ingest

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/cloudface-ai/CloudFace-Ai/internal/config"
	"github.com/cloudface-ai/CloudFace-Ai/internal/faceindex"
	"github.com/cloudface-ai/CloudFace-Ai/internal/resolver"
)

func testConfig() config.IngestConfig {
	return config.IngestConfig{Workers: 4, MaxFolderDepth: 5}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestIngestUploadsCollectsPerFileErrors(t *testing.T) {
	indexer := newFakeIndexer()
	layout := resolver.NewLayout(t.TempDir())
	coordinator := NewCoordinator(indexer, layout, NewMemorySink(), testConfig(), nil)

	valid := pngBytes(t)
	files := make([]UploadFile, 0, 10)
	for i := 1; i <= 10; i++ {
		data := valid
		if i == 7 {
			data = []byte("definitely not an image")
		}
		files = append(files, UploadFile{Name: fmt.Sprintf("file%d.png", i), Data: data})
	}

	result := coordinator.IngestUploads(context.Background(), "owner-1", "evt123456789", "folder-abc", files)

	if !result.Success {
		t.Fatalf("expected success despite per-file error: %+v", result)
	}
	if result.TotalFiles != 10 {
		t.Fatalf("expected total 10, got %d", result.TotalFiles)
	}
	if result.ProcessedCount != 9 {
		t.Fatalf("expected 9 faces indexed, got %d", result.ProcessedCount)
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "file7.png: decode failed") {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if want := "Successfully processed 9 faces from 10 images"; result.Message != want {
		t.Fatalf("unexpected message: %q", result.Message)
	}
}

func TestIngestUploadsPersistsUnderCanonicalDirectory(t *testing.T) {
	indexer := newFakeIndexer()
	root := t.TempDir()
	layout := resolver.NewLayout(root)
	coordinator := NewCoordinator(indexer, layout, nil, testConfig(), nil)

	files := []UploadFile{
		{Name: "top.png", Data: pngBytes(t)},
		{Name: "sub/nested.png", Data: pngBytes(t)},
	}

	result := coordinator.IngestUploads(context.Background(), "owner-1", "evt123456789", "folder-abc", files)
	if !result.Success {
		t.Fatalf("expected success: %+v", result)
	}

	for _, rel := range []string{"top.png", filepath.Join("sub", "nested.png")} {
		path := filepath.Join(layout.EventPhotosDir("evt123456789"), rel)
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s on disk: %v", rel, err)
		}
	}
}

func TestIngestUploadsFiltersBeforeFreezingTotal(t *testing.T) {
	indexer := newFakeIndexer()
	layout := resolver.NewLayout(t.TempDir())
	coordinator := NewCoordinator(indexer, layout, nil, testConfig(), nil)

	files := []UploadFile{
		{Name: "keep.png", Data: pngBytes(t)},
		{Name: "notes.txt", Data: []byte("text")},
		{Name: "a/b/c/d/e/f/deep.png", Data: pngBytes(t)},
		{Name: "../escape.png", Data: pngBytes(t)},
	}

	result := coordinator.IngestUploads(context.Background(), "owner-1", "evt123456789", "folder-abc", files)
	if !result.Success {
		t.Fatalf("expected success: %+v", result)
	}
	if result.TotalFiles != 1 {
		t.Fatalf("expected filtered total 1, got %d", result.TotalFiles)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("filtered files must not count as errors: %v", result.Errors)
	}
}

func TestIngestUploadsEmptyBatch(t *testing.T) {
	indexer := newFakeIndexer()
	layout := resolver.NewLayout(t.TempDir())
	coordinator := NewCoordinator(indexer, layout, nil, testConfig(), nil)

	result := coordinator.IngestUploads(context.Background(), "owner-1", "evt123456789", "folder-abc", []UploadFile{
		{Name: "notes.txt", Data: []byte("text")},
	})

	if result.Success {
		t.Fatalf("expected failure for empty batch")
	}
	if indexer.scopeCalls() != 0 {
		t.Fatalf("scope must not be selected for an empty batch")
	}
	if indexer.flushCount() != 0 {
		t.Fatalf("flush must not run for an empty batch")
	}
}

func TestIngestUploadsSelectsScopeOnceBeforeWorkers(t *testing.T) {
	indexer := newFakeIndexer()
	layout := resolver.NewLayout(t.TempDir())
	coordinator := NewCoordinator(indexer, layout, nil, testConfig(), nil)

	files := make([]UploadFile, 0, 6)
	for i := 0; i < 6; i++ {
		files = append(files, UploadFile{Name: fmt.Sprintf("img%d.png", i), Data: pngBytes(t)})
	}

	result := coordinator.IngestUploads(context.Background(), "owner-1", "evt123456789", "folder-abc", files)
	if !result.Success {
		t.Fatalf("expected success: %+v", result)
	}

	if indexer.scopeCalls() != 1 {
		t.Fatalf("expected exactly one SetScope call, got %d", indexer.scopeCalls())
	}
	if got := indexer.lastScope(); got != "folder-abc" {
		t.Fatalf("expected scope folder-abc, got %q", got)
	}
	for _, added := range indexer.addedFaces() {
		if added.scope != "folder-abc" {
			t.Fatalf("face indexed under wrong scope: %q", added.scope)
		}
	}
}

func TestIngestUploadsScopeFailureAbortsBatch(t *testing.T) {
	indexer := newFakeIndexer()
	indexer.scopeErr = fmt.Errorf("engine down")
	layout := resolver.NewLayout(t.TempDir())
	coordinator := NewCoordinator(indexer, layout, nil, testConfig(), nil)

	result := coordinator.IngestUploads(context.Background(), "owner-1", "evt123456789", "folder-abc", []UploadFile{
		{Name: "img.png", Data: pngBytes(t)},
	})

	if result.Success {
		t.Fatalf("expected failure when scope selection fails")
	}
	if len(indexer.addedFaces()) != 0 {
		t.Fatalf("no faces may be indexed without a scope")
	}
}

func TestIngestUploadsFlushesOnceAfterBatch(t *testing.T) {
	indexer := newFakeIndexer()
	layout := resolver.NewLayout(t.TempDir())
	coordinator := NewCoordinator(indexer, layout, nil, testConfig(), nil)

	files := make([]UploadFile, 0, 8)
	for i := 0; i < 8; i++ {
		files = append(files, UploadFile{Name: fmt.Sprintf("img%d.png", i), Data: pngBytes(t)})
	}

	result := coordinator.IngestUploads(context.Background(), "owner-1", "evt123456789", "folder-abc", files)
	if !result.Success {
		t.Fatalf("expected success: %+v", result)
	}
	if indexer.flushCount() != 1 {
		t.Fatalf("expected a single flush, got %d", indexer.flushCount())
	}
}

func TestIngestUploadsSkipsFlushWhenNothingIndexed(t *testing.T) {
	indexer := newFakeIndexer()
	indexer.facesPerImage = 0
	layout := resolver.NewLayout(t.TempDir())
	coordinator := NewCoordinator(indexer, layout, nil, testConfig(), nil)

	result := coordinator.IngestUploads(context.Background(), "owner-1", "evt123456789", "folder-abc", []UploadFile{
		{Name: "empty.png", Data: pngBytes(t)},
	})

	if !result.Success {
		t.Fatalf("faceless photos are not errors: %+v", result)
	}
	if result.ProcessedCount != 0 {
		t.Fatalf("expected zero faces, got %d", result.ProcessedCount)
	}
	if indexer.flushCount() != 0 {
		t.Fatalf("flush must not run when nothing was indexed")
	}
}

func TestIngestUploadsRecoversFromPanic(t *testing.T) {
	indexer := newFakeIndexer()
	indexer.detectPanic = true
	layout := resolver.NewLayout(t.TempDir())
	coordinator := NewCoordinator(indexer, layout, nil, config.IngestConfig{Workers: 1, MaxFolderDepth: 5}, nil)

	result := coordinator.IngestUploads(context.Background(), "owner-1", "evt123456789", "folder-abc", []UploadFile{
		{Name: "img.png", Data: pngBytes(t)},
	})

	if result.Success {
		t.Fatalf("expected failure result after panic")
	}
	found := false
	for _, msg := range result.Errors {
		if strings.Contains(msg, "batch aborted") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected batch aborted error, got %v", result.Errors)
	}
}

func TestIngestUploadsReportsProgress(t *testing.T) {
	indexer := newFakeIndexer()
	layout := resolver.NewLayout(t.TempDir())
	sink := NewMemorySink()
	coordinator := NewCoordinator(indexer, layout, sink, testConfig(), nil)

	files := make([]UploadFile, 0, 5)
	for i := 0; i < 5; i++ {
		files = append(files, UploadFile{Name: fmt.Sprintf("img%d.png", i), Data: pngBytes(t)})
	}

	result := coordinator.IngestUploads(context.Background(), "owner-1", "evt123456789", "folder-abc", files)
	if !result.Success {
		t.Fatalf("expected success: %+v", result)
	}

	percent, err := sink.Get(context.Background(), "owner-1")
	if err != nil {
		t.Fatalf("Get progress: %v", err)
	}
	if percent != 100 {
		t.Fatalf("expected 100%% after completion, got %d", percent)
	}
}

func TestIngestUploadsFaceReferences(t *testing.T) {
	indexer := newFakeIndexer()
	indexer.facesPerImage = 2
	layout := resolver.NewLayout(t.TempDir())
	coordinator := NewCoordinator(indexer, layout, nil, testConfig(), nil)

	result := coordinator.IngestUploads(context.Background(), "owner-1", "evt123456789", "folder-abc", []UploadFile{
		{Name: "group.png", Data: pngBytes(t)},
	})
	if !result.Success || result.ProcessedCount != 2 {
		t.Fatalf("expected two indexed faces: %+v", result)
	}

	added := indexer.addedFaces()
	if len(added) != 2 {
		t.Fatalf("expected two AddFace calls, got %d", len(added))
	}
	for i, face := range added {
		if !strings.HasPrefix(face.reference, "uploaded_owner-1_") {
			t.Fatalf("unexpected reference prefix: %q", face.reference)
		}
		if !strings.HasSuffix(face.reference, fmt.Sprintf("group.png_face_%d", i)) {
			t.Fatalf("unexpected reference suffix: %q", face.reference)
		}
	}
}

func TestIngestPathsStaysWithinCanonicalDirectory(t *testing.T) {
	indexer := newFakeIndexer()
	root := t.TempDir()
	layout := resolver.NewLayout(root)
	coordinator := NewCoordinator(indexer, layout, nil, testConfig(), nil)

	dir := layout.EventPhotosDir("evt123456789")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	inside := filepath.Join(dir, "in.png")
	if err := os.WriteFile(inside, pngBytes(t), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	outside := filepath.Join(root, "out.png")
	if err := os.WriteFile(outside, pngBytes(t), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	processed, errs, err := coordinator.IngestPaths(context.Background(), "owner-1", "evt123456789", "folder-abc", []string{inside, outside})
	if err != nil {
		t.Fatalf("IngestPaths returned error: %v", err)
	}
	if processed != 1 {
		t.Fatalf("expected one indexed face, got %d", processed)
	}
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(indexer.addedFaces()) != 1 {
		t.Fatalf("outside path must be ignored")
	}
}

func TestIngestPathsEmptyInput(t *testing.T) {
	indexer := newFakeIndexer()
	layout := resolver.NewLayout(t.TempDir())
	coordinator := NewCoordinator(indexer, layout, nil, testConfig(), nil)

	processed, errs, err := coordinator.IngestPaths(context.Background(), "owner-1", "evt123456789", "folder-abc", nil)
	if err != nil || processed != 0 || len(errs) != 0 {
		t.Fatalf("expected clean no-op, got %d %v %v", processed, errs, err)
	}
	if indexer.scopeCalls() != 0 {
		t.Fatalf("scope must not be selected for empty input")
	}
}

// --- fakes ---

type addedFace struct {
	reference string
	ownerID   string
	scope     string
}

type fakeIndexer struct {
	mu            sync.Mutex
	facesPerImage int
	scopeErr      error
	detectPanic   bool
	scopes        []string
	added         []addedFace
	flushes       int
}

func newFakeIndexer() *fakeIndexer {
	return &fakeIndexer{facesPerImage: 1}
}

func (f *fakeIndexer) SetScope(_ context.Context, _, scope string) error {
	if f.scopeErr != nil {
		return f.scopeErr
	}
	f.mu.Lock()
	f.scopes = append(f.scopes, scope)
	f.mu.Unlock()
	return nil
}

func (f *fakeIndexer) DetectFaces(_ context.Context, _ image.Image) ([]faceindex.Face, error) {
	if f.detectPanic {
		panic("detector crashed")
	}
	faces := make([]faceindex.Face, f.facesPerImage)
	for i := range faces {
		faces[i] = faceindex.Face{Embedding: []float32{0.1, 0.2}}
	}
	return faces, nil
}

func (f *fakeIndexer) AddFace(_ context.Context, _ faceindex.Face, reference, ownerID, scope string) error {
	f.mu.Lock()
	f.added = append(f.added, addedFace{reference: reference, ownerID: ownerID, scope: scope})
	f.mu.Unlock()
	return nil
}

func (f *fakeIndexer) Flush(context.Context) error {
	f.mu.Lock()
	f.flushes++
	f.mu.Unlock()
	return nil
}

func (f *fakeIndexer) scopeCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.scopes)
}

func (f *fakeIndexer) lastScope() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.scopes) == 0 {
		return ""
	}
	return f.scopes[len(f.scopes)-1]
}

func (f *fakeIndexer) flushCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flushes
}

func (f *fakeIndexer) addedFaces() []addedFace {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]addedFace(nil), f.added...)
}
