package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) LookupFunc {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "faultline.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	assert.Empty(t, Validate(&cfg))
	assert.Equal(t, 120*time.Second, cfg.Timeout())
	assert.Equal(t, time.Hour, cfg.CacheTTLDuration())
	assert.Equal(t, time.Second, cfg.RetryBaseDelay())
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Provider)
	assert.True(t, cfg.EnableCaching)
}

func TestLoad_YAMLOverDefaults(t *testing.T) {
	path := writeConfig(t, `
provider: anthropic
model: claude-3-5-haiku-20241022
max_tokens: 2000
fallback_strategy: round_robin
context:
  max_log_lines: 100
output:
  format: text
security:
  extra_patterns:
    - 'INTERNAL-[0-9]{6}'
`)
	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, 2000, cfg.MaxTokens)
	assert.Equal(t, 100, cfg.Context.MaxLogLines)
	assert.Equal(t, 64*1024, cfg.Context.MaxLogBytes, "unset keys keep defaults")
	assert.True(t, cfg.Context.IncludeGitInfo)
	assert.Equal(t, "text", cfg.Output.Format)
	assert.Equal(t, []string{"INTERNAL-[0-9]{6}"}, cfg.Security.ExtraPatterns)
}

func TestLoad_Providers(t *testing.T) {
	path := writeConfig(t, `
providers:
  - name: gemini
    secret_ref: env:GEMINI_KEY
  - name: openai
    model: gpt-4o
    priority: 5
  - name: azure_openai
    endpoint: https://res.openai.azure.com
    priority: 9
`)
	cfg, err := Load(path, nil)
	require.NoError(t, err)

	ps := cfg.ResolvedProviders()
	require.Len(t, ps, 3)
	assert.Equal(t, 1, ps[0].Priority)
	assert.Equal(t, "env:GEMINI_KEY", ps[0].SecretRef)
	assert.Equal(t, 5, ps[1].Priority)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "provider: anthropic\n")
	cfg, err := Load(path, envMap(map[string]string{
		"FAULTLINE_PROVIDER":       "gemini",
		"FAULTLINE_TEMPERATURE":    "0.5",
		"FAULTLINE_ENABLE_CACHING": "false",
		"FAULTLINE_ALLOWED_HOSTS":  "api.openai.com, proxy.example.com",
		"FAULTLINE_RETRY_ATTEMPTS": "2",
	}))
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.Provider)
	assert.Equal(t, 0.5, cfg.Temperature)
	assert.False(t, cfg.EnableCaching)
	assert.Equal(t, []string{"api.openai.com", "proxy.example.com"}, cfg.Security.AllowedHosts)
	assert.Equal(t, 2, cfg.Performance.RetryAttempts)
}

func TestLoad_CollectsEveryError(t *testing.T) {
	path := writeConfig(t, `
provider: cohere
max_tokens: 50
temperature: 3
cache_ttl: 10
fallback_strategy: random
output:
  format: html
  style: loud
performance:
  retry_attempts: 9
  timeout_seconds: 5
cache:
  backend: redis
security:
  extra_patterns: ['(unclosed']
log:
  level: chatty
`)
	_, err := Load(path, envMap(map[string]string{"FAULTLINE_MAX_LOG_LINES": "many"}))

	var cerr *Error
	require.True(t, errors.As(err, &cerr))
	fields := map[string]bool{}
	for _, e := range cerr.Errors {
		fields[e.Field] = true
	}
	for _, f := range []string{
		"provider", "max_tokens", "temperature", "cache_ttl", "fallback_strategy",
		"output.format", "output.style", "performance.retry_attempts",
		"performance.timeout_seconds", "cache.backend", "security.extra_patterns",
		"log.level", "FAULTLINE_MAX_LOG_LINES",
	} {
		assert.True(t, fields[f], "missing error for %s", f)
	}
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestLoad_UnknownKey(t *testing.T) {
	path := writeConfig(t, "providr: openai\n")
	_, err := Load(path, nil)
	assert.ErrorContains(t, err, "parsing config YAML")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"), nil)
	assert.ErrorContains(t, err, "reading config file")
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""), nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

func TestValidate_AzureNeedsEndpoint(t *testing.T) {
	cfg := Default()
	cfg.Provider = "azure_openai"
	errs := Validate(&cfg)
	require.Len(t, errs, 1)
	assert.Equal(t, "provider.endpoint", errs[0].Field)
}

func TestValidate_PostgresNeedsDSN(t *testing.T) {
	cfg := Default()
	cfg.Cache.Backend = "postgres"
	errs := Validate(&cfg)
	require.Len(t, errs, 1)
	assert.Equal(t, "cache.dsn", errs[0].Field)

	cfg.EnableCaching = false
	assert.Empty(t, Validate(&cfg))
}

func TestValidate_AllowedHosts(t *testing.T) {
	cfg := Default()
	cfg.Security.AllowedHosts = []string{"https://api.openai.com"}
	errs := Validate(&cfg)
	require.Len(t, errs, 1)
	assert.Equal(t, "security.allowed_hosts", errs[0].Field)
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte("max_tokens: 99999\n"))
	require.NoError(t, err)
	assert.Equal(t, 99999, cfg.MaxTokens)
}
