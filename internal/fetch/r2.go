package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"salud-dashboard/internal/config"
	apperrors "salud-dashboard/internal/errors"
)

// Fetcher retrieves the source dataset as a byte stream. The store cache
// depends on this interface so tests can substitute a local fixture.
type Fetcher interface {
	Fetch(ctx context.Context) (io.ReadCloser, error)
}

// R2Fetcher reads one fixed object from an S3-compatible bucket.
type R2Fetcher struct {
	client *minio.Client
	bucket string
	key    string
	logger *slog.Logger
}

func NewR2Fetcher(cfg config.ObjectStoreConfig, logger *slog.Logger) (*R2Fetcher, error) {
	endpoint := strings.TrimPrefix(strings.TrimPrefix(cfg.Endpoint, "https://"), "http://")
	if endpoint == "" {
		return nil, fmt.Errorf("object store endpoint cannot be empty")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: "auto",
	})
	if err != nil {
		return nil, fmt.Errorf("create object store client: %w", err)
	}

	return &R2Fetcher{
		client: client,
		bucket: cfg.Bucket,
		key:    cfg.ObjectKey,
		logger: logger,
	}, nil
}

// Fetch opens the configured object for reading. Transport failures are fatal
// to the render cycle; there are no retries here.
func (f *R2Fetcher) Fetch(ctx context.Context) (io.ReadCloser, error) {
	f.logger.Info("fetching source object",
		"bucket", f.bucket,
		"key", f.key,
	)

	obj, err := f.client.GetObject(ctx, f.bucket, f.key, minio.GetObjectOptions{})
	if err != nil {
		return nil, apperrors.Transport(err, fmt.Sprintf("fetch %s/%s", f.bucket, f.key))
	}

	// GetObject is lazy; surface missing-key and auth errors now instead of
	// at first read inside the CSV decoder.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, apperrors.Transport(err, fmt.Sprintf("stat %s/%s", f.bucket, f.key))
	}

	return obj, nil
}
