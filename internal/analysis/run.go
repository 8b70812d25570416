// Package analysis drives one failed build step through collection,
// redaction, cache lookup and provider invocation. A run always ends with a
// result to render; provider and cache failures degrade it, never abort it.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/kamilpajak/faultline/internal/cache"
	"github.com/kamilpajak/faultline/internal/collector"
	"github.com/kamilpajak/faultline/internal/fingerprint"
	"github.com/kamilpajak/faultline/internal/llm"
	"github.com/kamilpajak/faultline/internal/redact"
	"github.com/kamilpajak/faultline/pkg/models"
)

// Root cause reported when no provider produced a diagnosis.
const UnavailableRootCause = "analysis unavailable"

// DegradedFixes are the operator-facing steps attached to a degraded result.
var DegradedFixes = []string{
	"Check AI provider configuration",
	"Verify API key and network connectivity",
	"Review error logs manually",
	"Contact DevOps team for assistance",
}

// maxRetryAfter caps how long a provider's Retry-After hint may stretch a backoff.
const maxRetryAfter = 30 * time.Second

// ProviderConfig is a resolved provider: its client, model and credential.
type ProviderConfig struct {
	Name     llm.Provider
	Model    string
	Priority int
	APIKey   string
	Client   llm.Client
}

// Params configures an analysis run.
type Params struct {
	RunID    string
	Signals  collector.Signals
	Collect  collector.Options
	Redactor *redact.Redactor

	Providers []ProviderConfig
	Strategy  Strategy

	Cache    cache.Store
	CacheTTL time.Duration

	MaxTokens     int
	Temperature   float64
	RetryAttempts int
	BaseDelay     time.Duration
	Timeout       time.Duration

	Logger  zerolog.Logger
	Emitter ProgressEmitter

	// Sleep waits between attempts. Nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Attempt records one provider call.
type Attempt struct {
	Provider string        `json:"provider"`
	Model    string        `json:"model"`
	Number   int           `json:"number"`
	Delay    time.Duration `json:"delay_ns"`
	Duration time.Duration `json:"duration_ns"`
	Error    string        `json:"error,omitempty"`
}

// Outcome is everything a run produced.
type Outcome struct {
	RunID       string
	Context     models.SanitizedContext
	Result      *models.AnalysisResult
	Fingerprint string
	Trace       []State
	Attempts    []Attempt
	Duration    time.Duration
}

// Final returns the terminal state of the run.
func (o *Outcome) Final() State {
	if len(o.Trace) == 0 {
		return ""
	}
	return o.Trace[len(o.Trace)-1]
}

// Coordinator runs analyses. Its only state is the round-robin rotation,
// which advances once per run.
type Coordinator struct {
	runs atomic.Uint64
}

var defaultCoordinator = &Coordinator{}

// Run executes one analysis with the process-wide coordinator.
func Run(ctx context.Context, p Params) *Outcome {
	return defaultCoordinator.Run(ctx, p)
}

// Run executes one analysis. It never returns an error: when every provider
// fails the outcome carries a degraded result instead.
func (c *Coordinator) Run(ctx context.Context, p Params) *Outcome {
	start := time.Now()
	p = withDefaults(p)
	r := &run{p: p, out: &Outcome{RunID: p.RunID}, log: p.Logger.With().Str("run_id", p.RunID).Logger()}

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	r.enter(StateCollect)
	fc := collector.Collect(p.Signals, p.Collect)

	r.enter(StateSanitize)
	r.out.Context = p.Redactor.RedactContext(fc)
	sc := &r.out.Context
	r.log.Info().
		Str("pipeline", sc.Build.Pipeline).
		Str("step", sc.Build.Step).
		Int("exit_code", sc.ExitCode).
		Str("category", sc.ErrorCategory).
		Int("redactions", sc.Redactions).
		Interface("redactions_by_category", sc.RedactionsByCategory).
		Msg("Collected failure context")

	order := c.order(p, sc)

	r.enter(StateCacheLookup)
	if res, fp := r.lookup(ctx, order, sc); res != nil {
		r.enter(StateCacheHit)
		r.out.Fingerprint = fp
		r.out.Result = res
		emitInfo(p.Emitter, fmt.Sprintf("Using cached analysis from %s", res.Provider))
		r.enter(StateRender)
		r.out.Duration = time.Since(start)
		return r.out
	}
	r.enter(StateCacheMiss)

	res, lastErr := r.invoke(ctx, order, sc)
	if res != nil {
		r.enter(StateRender)
		r.out.Duration = time.Since(start)
		emit(p.Emitter, ProgressEvent{Type: "done", Message: fmt.Sprintf("%s/%s (confidence %d%%)", res.Provider, res.Model, res.Confidence)})
		return r.out
	}

	r.enter(StateExhausted)
	r.out.Result = r.degraded(order, lastErr, time.Since(start))
	r.log.Warn().Int("attempts", len(r.out.Attempts)).Str("error", r.out.Result.Error).Msg("All providers failed, rendering degraded report")
	emit(p.Emitter, ProgressEvent{Type: "error", Message: "analysis unavailable"})
	r.enter(StateFallbackRender)
	r.out.Duration = time.Since(start)
	return r.out
}

// order returns the providers to try, according to the strategy.
func (c *Coordinator) order(p Params, sc *models.SanitizedContext) []ProviderConfig {
	providers := make([]ProviderConfig, len(p.Providers))
	copy(providers, p.Providers)
	for i := range providers {
		if providers[i].Model == "" {
			providers[i].Model = llm.DefaultModel(providers[i].Name)
		}
	}
	sort.SliceStable(providers, func(i, j int) bool { return providers[i].Priority < providers[j].Priority })

	switch p.Strategy {
	case StrategyFailFast:
		if len(providers) > 1 {
			providers = providers[:1]
		}
	case StrategyRoundRobin:
		n := c.runs.Add(1) - 1
		if len(providers) > 1 {
			seed, _ := strconv.ParseUint(sc.Build.BuildNumber, 10, 64)
			k := int((seed + n) % uint64(len(providers)))
			providers = append(providers[k:], providers[:k]...)
		}
	}
	return providers
}

type run struct {
	p   Params
	out *Outcome
	log zerolog.Logger
}

func (r *run) enter(s State) {
	if n := len(r.out.Trace); n > 0 && !canTransition(r.out.Trace[n-1], s) {
		r.log.Error().Str("from", string(r.out.Trace[n-1])).Str("to", string(s)).Msg("Illegal state transition")
	}
	r.out.Trace = append(r.out.Trace, s)
	r.log.Debug().Str("state", string(s)).Msg("State")
	emit(r.p.Emitter, ProgressEvent{Type: "state", State: s})
}

// lookup returns the first cached result for any candidate provider.
func (r *run) lookup(ctx context.Context, order []ProviderConfig, sc *models.SanitizedContext) (*models.AnalysisResult, string) {
	for _, pc := range order {
		fp := fingerprint.Compute(sc, string(pc.Name), pc.Model)
		res, err := r.p.Cache.Get(ctx, fp)
		switch {
		case err == nil && res != nil:
			r.log.Info().Str("fingerprint", fingerprint.Short(fp)).Str("provider", string(pc.Name)).Msg("Cache hit")
			return res, fp
		case err != nil && !errors.Is(err, cache.ErrNotFound):
			r.log.Warn().Err(err).Str("fingerprint", fingerprint.Short(fp)).Msg("Cache lookup failed, treating as miss")
		}
	}
	return nil, ""
}

// invoke walks the providers in order, retrying each up to RetryAttempts.
func (r *run) invoke(ctx context.Context, order []ProviderConfig, sc *models.SanitizedContext) (*models.AnalysisResult, error) {
	lastErr := errors.New("no providers configured")
	if len(order) == 0 {
		return nil, lastErr
	}

	for _, pc := range order {
		for i := 0; i < r.p.RetryAttempts; i++ {
			delay := time.Duration(i) * r.p.BaseDelay
			var perr *llm.ProviderError
			if i > 0 && errors.As(lastErr, &perr) && perr.RetryAfter > delay {
				delay = min(perr.RetryAfter, maxRetryAfter)
			}
			if delay > 0 {
				if err := r.p.Sleep(ctx, delay); err != nil {
					return nil, fmt.Errorf("run deadline reached while backing off: %w", err)
				}
			}

			r.enter(StateInvoke)
			emit(r.p.Emitter, ProgressEvent{Type: "attempt", Provider: string(pc.Name), Attempt: i + 1, MaxAttempt: r.p.RetryAttempts})

			started := time.Now()
			res, err := r.call(ctx, pc, sc)
			att := Attempt{Provider: string(pc.Name), Model: pc.Model, Number: i + 1, Delay: delay, Duration: time.Since(started)}

			if err == nil {
				r.out.Attempts = append(r.out.Attempts, att)
				r.enter(StateSuccess)
				r.store(ctx, pc, sc, res)
				return res, nil
			}

			lastErr = err
			att.Error = r.scrub(err)
			r.out.Attempts = append(r.out.Attempts, att)
			r.enter(StateFailure)
			r.log.Warn().
				Str("provider", string(pc.Name)).
				Int("attempt", i+1).
				Int("max_attempts", r.p.RetryAttempts).
				Dur("duration", att.Duration).
				Str("error", att.Error).
				Msg("Provider attempt failed")
			r.enter(StateRetryOrFallback)
			emit(r.p.Emitter, ProgressEvent{Type: "retry", Provider: string(pc.Name), Attempt: i + 1, MaxAttempt: r.p.RetryAttempts, Message: att.Error})

			if ctx.Err() != nil {
				return nil, lastErr
			}
			if !retryable(err) {
				break
			}
		}
	}
	return nil, lastErr
}

// call invokes one provider, converting a panic into an error.
func (r *run) call(ctx context.Context, pc ProviderConfig, sc *models.SanitizedContext) (res *models.AnalysisResult, err error) {
	defer func() {
		if v := recover(); v != nil {
			res, err = nil, fmt.Errorf("%s client panicked: %v", pc.Name, v)
		}
	}()

	res, err = pc.Client.Analyze(ctx, sc, llm.Options{
		Model:       pc.Model,
		MaxTokens:   r.p.MaxTokens,
		Temperature: r.p.Temperature,
		APIKey:      pc.APIKey,
		Timeout:     r.p.Timeout,
	})
	if err == nil && res == nil {
		err = fmt.Errorf("%s returned no result", pc.Name)
	}
	return res, err
}

func (r *run) store(ctx context.Context, pc ProviderConfig, sc *models.SanitizedContext, res *models.AnalysisResult) {
	r.enter(StateStore)
	r.out.Result = res
	r.out.Fingerprint = fingerprint.Compute(sc, string(pc.Name), pc.Model)
	if err := r.p.Cache.Put(ctx, r.out.Fingerprint, res, r.p.CacheTTL); err != nil {
		r.log.Warn().Err(err).Str("fingerprint", fingerprint.Short(r.out.Fingerprint)).Msg("Failed to cache analysis")
		return
	}
	r.log.Debug().Str("fingerprint", fingerprint.Short(r.out.Fingerprint)).Dur("ttl", r.p.CacheTTL).Msg("Cached analysis")
}

func (r *run) degraded(order []ProviderConfig, lastErr error, elapsed time.Duration) *models.AnalysisResult {
	res := &models.AnalysisResult{
		Provider:       "none",
		RootCause:      UnavailableRootCause,
		SuggestedFixes: append([]string(nil), DegradedFixes...),
		Confidence:     0,
		Severity:       models.SeverityHigh,
		Outcome:        models.OutcomeFailure,
		Duration:       elapsed,
	}
	if n := len(r.out.Attempts); n > 0 {
		res.Provider = r.out.Attempts[n-1].Provider
		res.Model = r.out.Attempts[n-1].Model
	} else if len(order) > 0 {
		res.Provider = string(order[0].Name)
		res.Model = order[0].Model
	}
	if lastErr != nil {
		res.Error = r.scrub(lastErr)
	}
	return res
}

// scrub removes credentials and sensitive text from an error message.
func (r *run) scrub(err error) string {
	msg, _ := r.p.Redactor.Redact(err.Error())
	return msg
}

func retryable(err error) bool {
	var perr *llm.ProviderError
	if errors.As(err, &perr) {
		return perr.Retryable()
	}
	return false
}

func withDefaults(p Params) Params {
	if p.Redactor == nil {
		p.Redactor = redact.Default()
	}
	if p.Cache == nil {
		p.Cache = cache.Nop{}
	}
	if p.RetryAttempts < 1 {
		p.RetryAttempts = 1
	}
	if p.Strategy == "" {
		p.Strategy = StrategyPriority
	}
	if p.Sleep == nil {
		p.Sleep = sleep
	}
	def := collector.DefaultOptions()
	if p.Collect.MaxLogLines <= 0 {
		p.Collect.MaxLogLines = def.MaxLogLines
	}
	if p.Collect.MaxLogBytes <= 0 {
		p.Collect.MaxLogBytes = def.MaxLogBytes
	}
	return p
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
