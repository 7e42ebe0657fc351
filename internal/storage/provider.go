package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudface-ai/CloudFace-Ai/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const defaultProviderTimeout = 5 * time.Second

// NewProviderClient establishes a client for the external photo provider.
func NewProviderClient(cfg config.ProviderConfig) (*minio.Client, error) {
	endpoint := cfg.Endpoint
	if !strings.Contains(endpoint, ":") {
		// default to the S3 API port when not supplied explicitly
		endpoint = fmt.Sprintf("%s:9000", endpoint)
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create provider client: %w", err)
	}

	return client, nil
}

// CheckProviderBucket verifies the source photo bucket is reachable.
func CheckProviderBucket(ctx context.Context, client *minio.Client, bucket string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultProviderTimeout)
	defer cancel()

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check provider bucket: %w", err)
	}
	if !exists {
		return fmt.Errorf("provider bucket %q does not exist", bucket)
	}
	return nil
}
