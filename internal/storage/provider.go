// Package storage defines where build artifacts are written and opens the
// configured backend.
package storage

import (
	"context"
	"fmt"
	"io"

	gcstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/nailsmag/wpsite/internal/storage/gcs"
	"github.com/nailsmag/wpsite/internal/storage/local"
	"github.com/nailsmag/wpsite/internal/storage/memory"
)

// BlobStore persists one artifact and returns a URI for it.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// Backend names accepted by Open.
const (
	BackendLocal  = "local"
	BackendMemory = "memory"
	BackendGCS    = "gcs"
)

// Options selects and configures a backend.
type Options struct {
	Backend      string
	Dir          string
	Bucket       string
	CacheControl string
}

// Handle is an opened store plus the resources it owns.
type Handle struct {
	Store  BlobStore
	closer func() error
}

// Close releases any client held by the store.
func (h *Handle) Close() error {
	if h == nil || h.closer == nil {
		return nil
	}
	return h.closer()
}

// Open builds the store named by opts.Backend. The GCS backend verifies that
// the bucket is reachable before returning.
func Open(ctx context.Context, opts Options, logger *zap.Logger) (*Handle, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch opts.Backend {
	case BackendLocal, "":
		store, err := local.New(local.Config{BaseDir: opts.Dir})
		if err != nil {
			return nil, fmt.Errorf("open local store: %w", err)
		}
		return &Handle{Store: store}, nil
	case BackendMemory:
		return &Handle{Store: memory.NewBlobStore()}, nil
	case BackendGCS:
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		if _, err := client.Bucket(opts.Bucket).Attrs(ctx); err != nil {
			if closeErr := client.Close(); closeErr != nil {
				logger.Warn("close gcs client after bucket check failed", zap.Error(closeErr))
			}
			return nil, fmt.Errorf("gcs bucket %q attributes: %w", opts.Bucket, err)
		}
		store, err := gcs.New(client, gcs.Config{Bucket: opts.Bucket, CacheControl: opts.CacheControl})
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		return &Handle{Store: store, closer: client.Close}, nil
	default:
		return nil, fmt.Errorf("unknown output backend %q", opts.Backend)
	}
}
