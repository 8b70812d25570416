package config

import (
	"fmt"
	"strconv"
	"strings"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FAULTLINE_"

type envVar struct {
	name  string
	field string
	set   func(c *Config, v string) error
}

func str(dst func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*dst(c) = v
		return nil
	}
}

func integer(dst func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("must be an integer")
		}
		*dst(c) = n
		return nil
	}
}

func boolean(dst func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("must be true or false")
		}
		*dst(c) = b
		return nil
	}
}

func list(dst func(*Config) *[]string) func(*Config, string) error {
	return func(c *Config, v string) error {
		var out []string
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		*dst(c) = out
		return nil
	}
}

var envVars = []envVar{
	{"PROVIDER", "provider", str(func(c *Config) *string { return &c.Provider })},
	{"MODEL", "model", str(func(c *Config) *string { return &c.Model })},
	{"MAX_TOKENS", "max_tokens", integer(func(c *Config) *int { return &c.MaxTokens })},
	{"TEMPERATURE", "temperature", func(c *Config, v string) error {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("must be a number")
		}
		c.Temperature = f
		return nil
	}},
	{"ENABLE_CACHING", "enable_caching", boolean(func(c *Config) *bool { return &c.EnableCaching })},
	{"CACHE_TTL", "cache_ttl", integer(func(c *Config) *int { return &c.CacheTTL })},
	{"CACHE_BACKEND", "cache.backend", str(func(c *Config) *string { return &c.Cache.Backend })},
	{"CACHE_DIR", "cache.dir", str(func(c *Config) *string { return &c.Cache.Dir })},
	{"CACHE_DSN", "cache.dsn", str(func(c *Config) *string { return &c.Cache.DSN })},
	{"FALLBACK_STRATEGY", "fallback_strategy", str(func(c *Config) *string { return &c.FallbackStrategy })},
	{"MAX_LOG_LINES", "context.max_log_lines", integer(func(c *Config) *int { return &c.Context.MaxLogLines })},
	{"INCLUDE_GIT_INFO", "context.include_git_info", boolean(func(c *Config) *bool { return &c.Context.IncludeGitInfo })},
	{"OUTPUT_FORMAT", "output.format", str(func(c *Config) *string { return &c.Output.Format })},
	{"OUTPUT_STYLE", "output.style", str(func(c *Config) *string { return &c.Output.Style })},
	{"SAVE_ARTIFACT", "output.save_artifact", boolean(func(c *Config) *bool { return &c.Output.SaveArtifact })},
	{"ARTIFACT_PATH", "output.artifact_path", str(func(c *Config) *string { return &c.Output.ArtifactPath })},
	{"TIMEOUT_SECONDS", "performance.timeout_seconds", integer(func(c *Config) *int { return &c.Performance.TimeoutSeconds })},
	{"RETRY_ATTEMPTS", "performance.retry_attempts", integer(func(c *Config) *int { return &c.Performance.RetryAttempts })},
	{"REQUESTS_PER_MINUTE", "performance.requests_per_minute", integer(func(c *Config) *int { return &c.Performance.RequestsPerMinute })},
	{"REDACT_SECRETS", "security.redact_secrets", boolean(func(c *Config) *bool { return &c.Security.RedactSecrets })},
	{"ALLOWED_HOSTS", "security.allowed_hosts", list(func(c *Config) *[]string { return &c.Security.AllowedHosts })},
	{"LOG_LEVEL", "log.level", str(func(c *Config) *string { return &c.Log.Level })},
	{"LOG_FORMAT", "log.format", str(func(c *Config) *string { return &c.Log.Format })},
}

// ApplyEnv overlays FAULTLINE_* variables onto cfg. Unparseable values are
// reported, not ignored.
func ApplyEnv(cfg *Config, lookup LookupFunc) []ValidationError {
	var errs []ValidationError
	for _, ev := range envVars {
		v, ok := lookup(EnvPrefix + ev.name)
		if !ok || v == "" {
			continue
		}
		if err := ev.set(cfg, v); err != nil {
			errs = append(errs, ValidationError{Field: EnvPrefix + ev.name, Message: err.Error()})
		}
	}
	return errs
}
