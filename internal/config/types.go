// Package config loads faultline's YAML configuration, applies
// FAULTLINE_* environment overrides and validates the result.
package config

import "time"

// Config is the full run configuration.
type Config struct {
	Provider  string           `yaml:"provider"`
	Model     string           `yaml:"model"`
	Providers []ProviderConfig `yaml:"providers"`

	MaxTokens        int     `yaml:"max_tokens"`
	Temperature      float64 `yaml:"temperature"`
	EnableCaching    bool    `yaml:"enable_caching"`
	CacheTTL         int     `yaml:"cache_ttl"`
	FallbackStrategy string  `yaml:"fallback_strategy"`

	Cache       CacheConfig       `yaml:"cache"`
	Context     ContextConfig     `yaml:"context"`
	Output      OutputConfig      `yaml:"output"`
	Performance PerformanceConfig `yaml:"performance"`
	Security    SecurityConfig    `yaml:"security"`
	Log         LogConfig         `yaml:"log"`
}

// ProviderConfig declares one provider. SecretRef names where the API key
// lives: "env:NAME", "file:/path" or a bare variable name.
type ProviderConfig struct {
	Name      string `yaml:"name"`
	Model     string `yaml:"model"`
	Priority  int    `yaml:"priority"`
	SecretRef string `yaml:"secret_ref"`
	Endpoint  string `yaml:"endpoint"`
}

// CacheConfig selects the cache backend.
type CacheConfig struct {
	Backend       string `yaml:"backend"`
	Dir           string `yaml:"dir"`
	DSN           string `yaml:"dsn"`
	LockTimeoutMS int    `yaml:"lock_timeout_ms"`
}

// ContextConfig bounds the collected failure context.
type ContextConfig struct {
	MaxLogLines    int  `yaml:"max_log_lines"`
	MaxLogBytes    int  `yaml:"max_log_bytes"`
	IncludeGitInfo bool `yaml:"include_git_info"`
}

// OutputConfig controls the rendered report and artifact.
type OutputConfig struct {
	Format            string `yaml:"format"`
	Style             string `yaml:"style"`
	IncludeConfidence bool   `yaml:"include_confidence"`
	IncludeRaw        bool   `yaml:"include_raw_response"`
	SaveArtifact      bool   `yaml:"save_artifact"`
	ArtifactPath      string `yaml:"artifact_path"`
}

// PerformanceConfig bounds time spent on analysis.
type PerformanceConfig struct {
	TimeoutSeconds    int `yaml:"timeout_seconds"`
	RetryAttempts     int `yaml:"retry_attempts"`
	RetryBaseDelayMS  int `yaml:"retry_base_delay_ms"`
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// SecurityConfig controls redaction and egress.
type SecurityConfig struct {
	RedactSecrets bool     `yaml:"redact_secrets"`
	ExtraPatterns []string `yaml:"extra_patterns"`
	AllowedHosts  []string `yaml:"allowed_hosts"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Provider:         "openai",
		MaxTokens:        1000,
		Temperature:      0.1,
		EnableCaching:    true,
		CacheTTL:         3600,
		FallbackStrategy: "priority",
		Cache: CacheConfig{
			Backend:       "file",
			LockTimeoutMS: 1000,
		},
		Context: ContextConfig{
			MaxLogLines:    500,
			MaxLogBytes:    64 * 1024,
			IncludeGitInfo: true,
		},
		Output: OutputConfig{
			Format:            "markdown",
			Style:             "error",
			IncludeConfidence: true,
			ArtifactPath:      "ai-analysis.json",
		},
		Performance: PerformanceConfig{
			TimeoutSeconds:   120,
			RetryAttempts:    3,
			RetryBaseDelayMS: 1000,
		},
		Security: SecurityConfig{
			RedactSecrets: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// ResolvedProviders returns the declared providers, or a single provider
// built from the top-level provider and model keys. Missing priorities
// follow declaration order.
func (c *Config) ResolvedProviders() []ProviderConfig {
	if len(c.Providers) == 0 {
		return []ProviderConfig{{Name: c.Provider, Model: c.Model, Priority: 1}}
	}
	out := make([]ProviderConfig, len(c.Providers))
	copy(out, c.Providers)
	for i := range out {
		if out[i].Priority == 0 {
			out[i].Priority = i + 1
		}
	}
	return out
}

// Timeout is the overall analysis deadline.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Performance.TimeoutSeconds) * time.Second
}

// CacheTTLDuration is the lifetime of a cache entry.
func (c *Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// RetryBaseDelay is the backoff unit between attempts.
func (c *Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.Performance.RetryBaseDelayMS) * time.Millisecond
}

// LockTimeout bounds the bolt file lock wait.
func (c *Config) LockTimeout() time.Duration {
	return time.Duration(c.Cache.LockTimeoutMS) * time.Millisecond
}
