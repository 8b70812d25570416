package database

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// CacheEntry is one row of analysis_cache. Result is the JSON-encoded
// analysis; decoding is left to the caller.
type CacheEntry struct {
	Fingerprint string
	Result      []byte
	CreatedAt   time.Time
	TTLSeconds  int64
	ExpiresAt   time.Time
}

// CacheSummary aggregates analysis_cache at a point in time.
type CacheSummary struct {
	Entries    int
	Expired    int
	TotalBytes int64
}

const cacheColumns = `fingerprint, result, created_at, ttl_seconds, expires_at`

// GetCacheEntry returns the row for fingerprint, or nil if there is none.
func (db *DB) GetCacheEntry(ctx context.Context, fingerprint string) (*CacheEntry, error) {
	var e CacheEntry
	err := db.pool.QueryRow(ctx,
		`SELECT `+cacheColumns+` FROM analysis_cache WHERE fingerprint = $1`,
		fingerprint,
	).Scan(&e.Fingerprint, &e.Result, &e.CreatedAt, &e.TTLSeconds, &e.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// UpsertCacheEntry writes e, replacing any existing row. Last writer wins.
func (db *DB) UpsertCacheEntry(ctx context.Context, e CacheEntry) error {
	_, err := db.pool.Exec(ctx, `
		INSERT INTO analysis_cache (`+cacheColumns+`)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (fingerprint) DO UPDATE SET
			result = EXCLUDED.result,
			created_at = EXCLUDED.created_at,
			ttl_seconds = EXCLUDED.ttl_seconds,
			expires_at = EXCLUDED.expires_at`,
		e.Fingerprint, e.Result, e.CreatedAt, e.TTLSeconds, e.ExpiresAt,
	)
	return err
}

// DeleteCacheEntry removes the row for fingerprint if present.
func (db *DB) DeleteCacheEntry(ctx context.Context, fingerprint string) error {
	_, err := db.pool.Exec(ctx, `DELETE FROM analysis_cache WHERE fingerprint = $1`, fingerprint)
	return err
}

// DeleteExpiredCacheEntries removes rows that expired before now.
func (db *DB) DeleteExpiredCacheEntries(ctx context.Context, now time.Time) (int, error) {
	tag, err := db.pool.Exec(ctx, `DELETE FROM analysis_cache WHERE expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// DeleteAllCacheEntries empties the table.
func (db *DB) DeleteAllCacheEntries(ctx context.Context) (int, error) {
	tag, err := db.pool.Exec(ctx, `DELETE FROM analysis_cache`)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// SummarizeCache counts rows and how many have expired as of now.
func (db *DB) SummarizeCache(ctx context.Context, now time.Time) (CacheSummary, error) {
	var s CacheSummary
	err := db.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE expires_at < $1),
			COALESCE(SUM(pg_column_size(result)), 0)
		FROM analysis_cache`,
		now,
	).Scan(&s.Entries, &s.Expired, &s.TotalBytes)
	return s, err
}
