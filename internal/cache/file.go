package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kamilpajak/faultline/internal/fsutil"
	"github.com/kamilpajak/faultline/pkg/models"
)

// FileStore keeps one JSON file per fingerprint in a directory. Writes go
// through a temp file and rename, so concurrent processes sharing the
// directory never read a torn entry.
type FileStore struct {
	dir string
	now func() time.Time
}

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &FileStore{dir: dir, now: time.Now}, nil
}

// Dir returns the cache directory.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) Get(_ context.Context, fp string) (*models.AnalysisResult, error) {
	if !validFingerprint(fp) {
		return nil, fmt.Errorf("invalid fingerprint %q", fp)
	}
	path := s.entryPath(fp)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache entry: %w", err)
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if e.Expired(s.now()) {
		_ = os.Remove(path)
		return nil, ErrNotFound
	}
	return hit(e), nil
}

func (s *FileStore) Put(_ context.Context, fp string, r *models.AnalysisResult, ttl time.Duration) error {
	if !validFingerprint(fp) {
		return fmt.Errorf("invalid fingerprint %q", fp)
	}
	data, err := json.Marshal(newEntry(fp, r, ttl, s.now()))
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}
	return fsutil.WriteAtomic(s.entryPath(fp), data, 0o600)
}

func (s *FileStore) Stats(_ context.Context) (Stats, error) {
	stats := Stats{Backend: BackendFile, Location: s.dir}
	err := s.walk(func(path string, size int64, e *Entry) {
		stats.Entries++
		stats.TotalBytes += size
		if e == nil || e.Expired(s.now()) {
			stats.Expired++
		}
	})
	return stats, err
}

func (s *FileStore) Prune(_ context.Context) (int, error) {
	removed := 0
	err := s.walk(func(path string, _ int64, e *Entry) {
		if e == nil || e.Expired(s.now()) {
			if os.Remove(path) == nil {
				removed++
			}
		}
	})
	return removed, err
}

func (s *FileStore) Clear(_ context.Context) (int, error) {
	removed := 0
	err := s.walk(func(path string, _ int64, _ *Entry) {
		if os.Remove(path) == nil {
			removed++
		}
	})
	return removed, err
}

func (s *FileStore) Close() error { return nil }

// walk visits every entry file. e is nil when the file cannot be decoded.
func (s *FileStore) walk(fn func(path string, size int64, e *Entry)) error {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading cache directory: %w", err)
	}
	for _, de := range entries {
		name := de.Name()
		if de.IsDir() || filepath.Ext(name) != ".json" || !validFingerprint(strings.TrimSuffix(name, ".json")) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(s.dir, name)
		var e *Entry
		if data, err := os.ReadFile(path); err == nil {
			var decoded Entry
			if json.Unmarshal(data, &decoded) == nil {
				e = &decoded
			}
		}
		fn(path, info.Size(), e)
	}
	return nil
}

func (s *FileStore) entryPath(fp string) string {
	return filepath.Join(s.dir, fp+".json")
}
