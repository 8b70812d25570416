// Package cache stores analysis results keyed by failure fingerprint.
//
// Entries carry their own TTL and are evicted lazily: an expired entry is
// removed by the lookup that finds it. There is no coordination between
// writers; concurrent misses for the same fingerprint may both compute and
// store a result, and the last write wins.
package cache

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/kamilpajak/faultline/pkg/models"
)

var (
	// ErrNotFound reports a miss: no entry, or an expired one.
	ErrNotFound = errors.New("cache entry not found")
	// ErrCorrupt reports an entry that exists but cannot be decoded. It is
	// treated as a miss.
	ErrCorrupt = errors.New("cache entry corrupt")
)

// Store is what the analysis coordinator needs from a cache.
type Store interface {
	Get(ctx context.Context, fingerprint string) (*models.AnalysisResult, error)
	Put(ctx context.Context, fingerprint string, result *models.AnalysisResult, ttl time.Duration) error
}

// Backend is a Store with maintenance operations.
type Backend interface {
	Store
	Stats(ctx context.Context) (Stats, error)
	// Prune removes expired and undecodable entries.
	Prune(ctx context.Context) (int, error)
	// Clear removes every entry.
	Clear(ctx context.Context) (int, error)
	Close() error
}

// Stats describes a backend's contents.
type Stats struct {
	Backend    string `json:"backend"`
	Location   string `json:"location"`
	Entries    int    `json:"entries"`
	Expired    int    `json:"expired"`
	TotalBytes int64  `json:"total_bytes"`
}

// Entry is the persisted form of a cached result.
type Entry struct {
	Fingerprint string                `json:"fingerprint"`
	Result      models.AnalysisResult `json:"result"`
	CreatedAt   time.Time             `json:"created_at"`
	TTLSeconds  int64                 `json:"ttl_seconds"`
}

// Expired reports whether more than the entry's TTL has elapsed since it
// was written.
func (e Entry) Expired(now time.Time) bool {
	return now.Sub(e.CreatedAt) > time.Duration(e.TTLSeconds)*time.Second
}

func newEntry(fp string, r *models.AnalysisResult, ttl time.Duration, now time.Time) Entry {
	res := *r
	res.Cached = false
	return Entry{
		Fingerprint: fp,
		Result:      res,
		CreatedAt:   now.UTC(),
		TTLSeconds:  int64(ttl / time.Second),
	}
}

func hit(e Entry) *models.AnalysisResult {
	r := e.Result
	r.Cached = true
	return &r
}

var fingerprintRe = regexp.MustCompile(`^[0-9a-f]{16,128}$`)

// validFingerprint guards file and key names against anything that is not
// a hex digest.
func validFingerprint(fp string) bool {
	return fingerprintRe.MatchString(fp)
}
