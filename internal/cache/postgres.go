package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kamilpajak/faultline/internal/database"
	"github.com/kamilpajak/faultline/pkg/models"
)

// PostgresStore shares the cache across machines through a Postgres table.
type PostgresStore struct {
	db  *database.DB
	now func() time.Time
}

// NewPostgresStore connects to dsn and migrates the schema, both bounded by
// ctx.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := database.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := database.MigrateContext(ctx, dsn); err != nil {
		db.Close()
		return nil, err
	}
	return &PostgresStore{db: db, now: time.Now}, nil
}

func (s *PostgresStore) Get(ctx context.Context, fp string) (*models.AnalysisResult, error) {
	row, err := s.db.GetCacheEntry(ctx, fp)
	if err != nil {
		return nil, fmt.Errorf("reading cache entry: %w", err)
	}
	if row == nil {
		return nil, ErrNotFound
	}

	e := Entry{Fingerprint: row.Fingerprint, CreatedAt: row.CreatedAt, TTLSeconds: row.TTLSeconds}
	if err := json.Unmarshal(row.Result, &e.Result); err != nil {
		_ = s.db.DeleteCacheEntry(ctx, fp)
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if e.Expired(s.now()) {
		_ = s.db.DeleteCacheEntry(ctx, fp)
		return nil, ErrNotFound
	}
	return hit(e), nil
}

func (s *PostgresStore) Put(ctx context.Context, fp string, r *models.AnalysisResult, ttl time.Duration) error {
	e := newEntry(fp, r, ttl, s.now())
	data, err := json.Marshal(e.Result)
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}
	return s.db.UpsertCacheEntry(ctx, database.CacheEntry{
		Fingerprint: fp,
		Result:      data,
		CreatedAt:   e.CreatedAt,
		TTLSeconds:  e.TTLSeconds,
		ExpiresAt:   e.CreatedAt.Add(time.Duration(e.TTLSeconds) * time.Second),
	})
}

func (s *PostgresStore) Stats(ctx context.Context) (Stats, error) {
	sum, err := s.db.SummarizeCache(ctx, s.now())
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Backend:    BackendPostgres,
		Location:   "analysis_cache",
		Entries:    sum.Entries,
		Expired:    sum.Expired,
		TotalBytes: sum.TotalBytes,
	}, nil
}

func (s *PostgresStore) Prune(ctx context.Context) (int, error) {
	return s.db.DeleteExpiredCacheEntries(ctx, s.now())
}

func (s *PostgresStore) Clear(ctx context.Context) (int, error) {
	return s.db.DeleteAllCacheEntries(ctx)
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}
