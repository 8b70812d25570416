package cache

import (
	"context"
	"time"

	"github.com/kamilpajak/faultline/pkg/models"
)

// Nop is the backend used when caching is disabled: every lookup misses and
// every write is discarded.
type Nop struct{}

func (Nop) Get(context.Context, string) (*models.AnalysisResult, error) { return nil, ErrNotFound }

func (Nop) Put(context.Context, string, *models.AnalysisResult, time.Duration) error { return nil }

func (Nop) Stats(context.Context) (Stats, error) { return Stats{Backend: BackendNone}, nil }

func (Nop) Prune(context.Context) (int, error) { return 0, nil }

func (Nop) Clear(context.Context) (int, error) { return 0, nil }

func (Nop) Close() error { return nil }
