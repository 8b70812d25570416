package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kamilpajak/faultline/pkg/models"
	"go.etcd.io/bbolt"
)

var analysesBucket = []byte("analyses")

// BoltStore keeps entries in a single bbolt file. bbolt allows one writer
// process at a time; Open waits up to lockTimeout for the file lock.
type BoltStore struct {
	db   *bbolt.DB
	path string
	now  func() time.Time
}

// NewBoltStore opens (creating if needed) the database at path.
func NewBoltStore(path string, lockTimeout time.Duration) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: lockTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening bolt cache %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(analysesBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating analyses bucket: %w", err)
	}

	return &BoltStore{db: db, path: path, now: time.Now}, nil
}

func (s *BoltStore) Get(_ context.Context, fp string) (*models.AnalysisResult, error) {
	var (
		e       Entry
		found   bool
		corrupt error
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(analysesBucket).Get([]byte(fp))
		if data == nil {
			return nil
		}
		found = true
		corrupt = json.Unmarshal(data, &e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading cache entry: %w", err)
	}
	if !found {
		return nil, ErrNotFound
	}
	if corrupt != nil {
		s.delete(fp)
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, corrupt)
	}
	if e.Expired(s.now()) {
		s.delete(fp)
		return nil, ErrNotFound
	}
	return hit(e), nil
}

func (s *BoltStore) Put(_ context.Context, fp string, r *models.AnalysisResult, ttl time.Duration) error {
	data, err := json.Marshal(newEntry(fp, r, ttl, s.now()))
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(analysesBucket).Put([]byte(fp), data)
	})
}

func (s *BoltStore) Stats(_ context.Context) (Stats, error) {
	stats := Stats{Backend: BackendBolt, Location: s.path}
	now := s.now()
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(analysesBucket).ForEach(func(k, v []byte) error {
			stats.Entries++
			stats.TotalBytes += int64(len(v))
			var e Entry
			if json.Unmarshal(v, &e) != nil || e.Expired(now) {
				stats.Expired++
			}
			return nil
		})
	})
	return stats, err
}

func (s *BoltStore) Prune(_ context.Context) (int, error) {
	now := s.now()
	return s.deleteWhere(func(v []byte) bool {
		var e Entry
		return json.Unmarshal(v, &e) != nil || e.Expired(now)
	})
}

func (s *BoltStore) Clear(_ context.Context) (int, error) {
	return s.deleteWhere(func([]byte) bool { return true })
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) deleteWhere(match func(v []byte) bool) (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(analysesBucket)
		var keys [][]byte
		err := b.ForEach(func(k, v []byte) error {
			if match(v) {
				keys = append(keys, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *BoltStore) delete(fp string) {
	_ = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(analysesBucket).Delete([]byte(fp))
	})
}
