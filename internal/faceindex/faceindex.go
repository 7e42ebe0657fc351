package faceindex

import (
	"context"
	"image"
)

// Rect is a face bounding box in pixel coordinates.
type Rect struct {
	X0 int `json:"x0"`
	Y0 int `json:"y0"`
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
}

// Face is a single detected face with its embedding vector.
type Face struct {
	Embedding []float32 `json:"embedding"`
	Box       Rect      `json:"box"`
}

// Indexer is the boundary to the external face indexing engine.
//
// SetScope selects the index partition for a batch and must be called once,
// synchronously, before any AddFace for that scope. The selected partition is
// not safe for concurrent use across different scopes.
type Indexer interface {
	SetScope(ctx context.Context, ownerID, scope string) error
	DetectFaces(ctx context.Context, img image.Image) ([]Face, error)
	AddFace(ctx context.Context, face Face, reference, ownerID, scope string) error
	Flush(ctx context.Context) error
}
