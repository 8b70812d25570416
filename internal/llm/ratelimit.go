package llm

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/kamilpajak/faultline/pkg/models"
)

// RateLimited wraps a Client so calls are spaced to at most perMinute
// requests per minute. A non-positive limit returns c unchanged.
func RateLimited(c Client, perMinute int) Client {
	if perMinute <= 0 {
		return c
	}
	return &rateLimitedClient{
		Client:  c,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

type rateLimitedClient struct {
	Client
	limiter *rate.Limiter
}

func (r *rateLimitedClient) Analyze(ctx context.Context, sc *models.SanitizedContext, opts Options) (*models.AnalysisResult, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, &ProviderError{Provider: r.Provider(), Kind: KindTimeout, Message: "waiting for rate limiter", Err: err}
	}
	return r.Client.Analyze(ctx, sc, opts)
}
