package blob

import (
	"context"
	"fmt"
	"os"
	"strings"

	fsstore "hsecore/internal/infra/blob/fs"
	memorystore "hsecore/internal/infra/blob/memory"
	s3store "hsecore/internal/infra/blob/s3"
)

// Environment variables read by Open. S3 settings are documented on
// s3store.OpenFromEnv.
const (
	EnvDriver = "HSE_BLOB_DRIVER"
	EnvFSRoot = "HSE_BLOB_FS_ROOT"
)

// S3Config configures the S3 backend.
type S3Config = s3store.Config

// Open selects a backend from HSE_BLOB_DRIVER (fs, s3 or memory; default fs).
func Open(ctx context.Context) (Store, error) {
	driver := Driver(strings.ToLower(strings.TrimSpace(os.Getenv(EnvDriver))))
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return NewFilesystem(os.Getenv(EnvFSRoot))
	case DriverS3:
		return s3store.OpenFromEnv(ctx)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", driver)
	}
}

// NewFilesystem returns a store below root (default ./exports).
func NewFilesystem(root string) (Store, error) { return fsstore.New(root) }

// NewMemory returns a process-local store.
func NewMemory() Store { return memorystore.New() }

// NewS3 returns a bucket-backed store.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) { return s3store.New(ctx, cfg) }
