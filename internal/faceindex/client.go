package faceindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"time"
)

// Client talks to the external face engine over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a face engine client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type scopeRequest struct {
	OwnerID string `json:"owner_id"`
	Scope   string `json:"scope"`
}

type detectResponse struct {
	Faces []Face `json:"faces"`
}

type addFaceRequest struct {
	Face      Face   `json:"face"`
	Reference string `json:"reference"`
	OwnerID   string `json:"owner_id"`
	Scope     string `json:"scope"`
}

type addFaceResponse struct {
	Saved bool `json:"saved"`
}

// SetScope selects the index partition used by subsequent AddFace calls.
func (c *Client) SetScope(ctx context.Context, ownerID, scope string) error {
	return c.postJSON(ctx, "/v1/scope", scopeRequest{OwnerID: ownerID, Scope: scope}, nil)
}

// DetectFaces submits the image and returns the detected faces with embeddings.
func (c *Client) DetectFaces(ctx context.Context, img image.Image) ([]Face, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/detect", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "image/jpeg")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("detect faces: %d - %s", resp.StatusCode, string(body))
	}

	var out detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode detect response: %w", err)
	}
	return out.Faces, nil
}

// AddFace writes one face descriptor into the engine's index partition.
func (c *Client) AddFace(ctx context.Context, face Face, reference, ownerID, scope string) error {
	var out addFaceResponse
	if err := c.postJSON(ctx, "/v1/faces", addFaceRequest{
		Face:      face,
		Reference: reference,
		OwnerID:   ownerID,
		Scope:     scope,
	}, &out); err != nil {
		return err
	}
	if !out.Saved {
		return fmt.Errorf("face %s not saved", reference)
	}
	return nil
}

// Flush persists the index partition selected by the last SetScope.
func (c *Client) Flush(ctx context.Context) error {
	return c.postJSON(ctx, "/v1/flush", struct{}{}, nil)
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("face engine %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("face engine %s: %d - %s", path, resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s response: %w", path, err)
		}
	}
	return nil
}
