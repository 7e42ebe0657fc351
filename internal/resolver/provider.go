package resolver

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
)

// ObjectProvider adapts an S3-compatible object store to the PhotoProvider
// contract. Source folders live under a "{folderID}/" key prefix in one bucket.
type ObjectProvider struct {
	client *minio.Client
	bucket string
}

// NewObjectProvider builds a provider over the given bucket.
func NewObjectProvider(client *minio.Client, bucket string) *ObjectProvider {
	return &ObjectProvider{client: client, bucket: bucket}
}

// ListPhotos returns the object names within the folder, relative to its prefix.
func (p *ObjectProvider) ListPhotos(ctx context.Context, folderID string) ([]string, error) {
	prefix := folderID + "/"

	var names []string
	for object := range p.client.ListObjects(ctx, p.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, fmt.Errorf("list folder %s: %w", folderID, object.Err)
		}
		name := strings.TrimPrefix(object.Key, prefix)
		if name == "" || strings.HasSuffix(name, "/") {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// FetchPhoto streams one source photo.
func (p *ObjectProvider) FetchPhoto(ctx context.Context, folderID, name string) (io.ReadCloser, error) {
	object, err := p.client.GetObject(ctx, p.bucket, folderID+"/"+name, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("fetch %s/%s: %w", folderID, name, err)
	}
	return object, nil
}
