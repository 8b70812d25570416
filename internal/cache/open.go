package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Backend names accepted by Open.
const (
	BackendFile     = "file"
	BackendBolt     = "bolt"
	BackendPostgres = "postgres"
	BackendNone     = "none"
)

// Options select and locate a backend.
type Options struct {
	Enabled bool
	Backend string
	// Dir holds file entries or the bolt database. Empty means DefaultDir.
	Dir string
	// DSN is the Postgres connection URL.
	DSN string
	// LockTimeout bounds how long the bolt backend waits for its file lock.
	LockTimeout time.Duration
}

// Open returns the configured backend, or Nop when caching is disabled.
func Open(ctx context.Context, opts Options) (Backend, error) {
	if !opts.Enabled || opts.Backend == BackendNone {
		return Nop{}, nil
	}

	dir := opts.Dir
	if dir == "" && opts.Backend != BackendPostgres {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}

	switch opts.Backend {
	case "", BackendFile:
		return NewFileStore(dir)
	case BackendBolt:
		timeout := opts.LockTimeout
		if timeout <= 0 {
			timeout = time.Second
		}
		return NewBoltStore(filepath.Join(dir, "cache.db"), timeout)
	case BackendPostgres:
		if opts.DSN == "" {
			return nil, fmt.Errorf("postgres cache requires a DSN")
		}
		return NewPostgresStore(ctx, opts.DSN)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}

// DefaultDir is the per-user cache directory for faultline.
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine cache directory: %w", err)
	}
	return filepath.Join(base, "faultline"), nil
}
