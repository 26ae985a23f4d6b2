// Package blob is the entry point for export object storage. It re-exports
// the storage contract and selects a backend from the environment.
package blob

import "hsecore/internal/blob/core"

type (
	// Driver names a storage backend.
	Driver = core.Driver
	// PutOptions carries optional object attributes.
	PutOptions = core.PutOptions
	// SignedURLOptions configures pre-signed downloads.
	SignedURLOptions = core.SignedURLOptions
	// Info describes a stored object.
	Info = core.Info
	// Store is implemented by every backend.
	Store = core.Store
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	ErrNotFound    = core.ErrNotFound
	ErrExists      = core.ErrExists
	ErrInvalidKey  = core.ErrInvalidKey
	ErrUnsupported = core.ErrUnsupported
)
