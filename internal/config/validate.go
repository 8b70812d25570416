package config

import (
	"fmt"
	"strings"

	"github.com/kamilpajak/faultline/internal/analysis"
	"github.com/kamilpajak/faultline/internal/cache"
	"github.com/kamilpajak/faultline/internal/llm"
	"github.com/kamilpajak/faultline/internal/logging"
	"github.com/kamilpajak/faultline/internal/redact"
	"github.com/kamilpajak/faultline/internal/report"
)

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Error collects every validation issue found in a configuration.
type Error struct {
	Errors []ValidationError
}

func (e *Error) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, v := range e.Errors {
		msgs[i] = v.Error()
	}
	return "invalid configuration:\n  " + strings.Join(msgs, "\n  ")
}

type intRange struct {
	field    string
	value    int
	min, max int
}

// Validate checks cfg and returns every issue found (empty if valid).
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError

	for _, p := range cfg.ResolvedProviders() {
		field := "provider"
		if len(cfg.Providers) > 0 {
			field = fmt.Sprintf("providers[%s]", p.Name)
		}
		name, err := llm.ParseProvider(p.Name)
		if err != nil {
			errs = append(errs, ValidationError{Field: field, Message: err.Error()})
			continue
		}
		if name == llm.ProviderAzureOpenAI && p.Endpoint == "" {
			errs = append(errs, ValidationError{Field: field + ".endpoint", Message: "is required for azure_openai"})
		}
		if p.Priority < 0 {
			errs = append(errs, ValidationError{Field: field + ".priority", Message: "must not be negative"})
		}
	}

	ranges := []intRange{
		{"max_tokens", cfg.MaxTokens, 100, 4000},
		{"cache_ttl", cfg.CacheTTL, 300, 86400},
		{"context.max_log_lines", cfg.Context.MaxLogLines, 50, 2000},
		{"context.max_log_bytes", cfg.Context.MaxLogBytes, 1024, 16 << 20},
		{"performance.timeout_seconds", cfg.Performance.TimeoutSeconds, 30, 600},
		{"performance.retry_attempts", cfg.Performance.RetryAttempts, 1, 5},
		{"performance.retry_base_delay_ms", cfg.Performance.RetryBaseDelayMS, 0, 60000},
		{"performance.requests_per_minute", cfg.Performance.RequestsPerMinute, 0, 10000},
	}
	for _, r := range ranges {
		if r.value < r.min || r.value > r.max {
			errs = append(errs, ValidationError{Field: r.field, Message: fmt.Sprintf("must be between %d and %d, got %d", r.min, r.max, r.value)})
		}
	}

	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		errs = append(errs, ValidationError{Field: "temperature", Message: fmt.Sprintf("must be between 0.0 and 2.0, got %g", cfg.Temperature)})
	}

	if _, err := analysis.ParseStrategy(cfg.FallbackStrategy); err != nil {
		errs = append(errs, ValidationError{Field: "fallback_strategy", Message: err.Error()})
	}
	if _, err := report.ParseFormat(cfg.Output.Format); err != nil {
		errs = append(errs, ValidationError{Field: "output.format", Message: err.Error()})
	}
	if _, err := report.ParseStyle(cfg.Output.Style); err != nil {
		errs = append(errs, ValidationError{Field: "output.style", Message: err.Error()})
	}
	if cfg.Output.SaveArtifact && cfg.Output.ArtifactPath == "" {
		errs = append(errs, ValidationError{Field: "output.artifact_path", Message: "is required when save_artifact is true"})
	}

	switch cfg.Cache.Backend {
	case cache.BackendFile, cache.BackendBolt, cache.BackendNone, "":
	case cache.BackendPostgres:
		if cfg.EnableCaching && cfg.Cache.DSN == "" {
			errs = append(errs, ValidationError{Field: "cache.dsn", Message: "is required for the postgres backend"})
		}
	default:
		errs = append(errs, ValidationError{Field: "cache.backend", Message: fmt.Sprintf("unknown backend %q (valid: file, bolt, postgres, none)", cfg.Cache.Backend)})
	}

	if _, err := redact.CompileExtra(cfg.Security.ExtraPatterns); err != nil {
		errs = append(errs, ValidationError{Field: "security.extra_patterns", Message: err.Error()})
	}
	for _, h := range cfg.Security.AllowedHosts {
		if strings.Contains(h, "/") || strings.Contains(h, ":") {
			errs = append(errs, ValidationError{Field: "security.allowed_hosts", Message: fmt.Sprintf("%q must be a bare host name", h)})
		}
	}

	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, ValidationError{Field: "log.level", Message: err.Error()})
	}
	if !logging.ValidFormat(cfg.Log.Format) {
		errs = append(errs, ValidationError{Field: "log.format", Message: fmt.Sprintf("unknown format %q (valid: console, json)", cfg.Log.Format)})
	}

	return errs
}
