// Package storage keeps copies of per-run artifacts, such as UART logs, that
// the simulator would otherwise overwrite on the next run.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
)

// ArtifactStore stores and retrieves run artifacts by key.
type ArtifactStore interface {
	// Put stores the content of reader under key, replacing any previous copy.
	Put(ctx context.Context, key string, reader io.Reader) error

	// Get retrieves the artifact stored under key.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the artifact stored under key.
	Delete(ctx context.Context, key string) error

	// Exists checks whether an artifact is stored under key.
	Exists(ctx context.Context, key string) (bool, error)
}

// Config selects and configures an ArtifactStore.
type Config struct {
	Type     string // "local" or "s3"
	BaseDir  string // local: archive root
	S3Bucket string
	S3Region string
	S3Prefix string
}

// NewArtifactStore creates an ArtifactStore based on configuration.
func NewArtifactStore(ctx context.Context, cfg Config) (ArtifactStore, error) {
	switch strings.ToLower(cfg.Type) {
	case "local":
		if cfg.BaseDir == "" {
			return nil, fmt.Errorf("base_dir is required for local storage")
		}
		return NewLocalStorage(cfg.BaseDir)

	case "s3":
		s3Storage, err := NewS3Storage(ctx, cfg.S3Bucket, cfg.S3Region, cfg.S3Prefix)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 storage: %w", err)
		}
		return s3Storage, nil

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// RunLogKey is the archive key of one run's UART log.
func RunLogKey(sweepID, hwConfig, workload string, run int) string {
	return path.Join(sweepID, hwConfig, workload, "run-"+strconv.Itoa(run), "uartlog")
}
