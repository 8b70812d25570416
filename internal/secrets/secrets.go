// Package secrets resolves provider API keys from the environment, an
// optional dotenv file or a key file. Resolved values are opaque: they are
// returned to the caller and never logged or wrapped into errors.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/kamilpajak/faultline/internal/llm"
)

// SharedKeyVar is consulted for every provider after its vendor variables.
const SharedKeyVar = "AI_ERROR_ANALYSIS_API_KEY"

// ErrNotFound is returned when no key could be resolved.
var ErrNotFound = errors.New("API key not found")

var vendorVars = map[llm.Provider][]string{
	llm.ProviderOpenAI:      {"OPENAI_API_KEY"},
	llm.ProviderAnthropic:   {"ANTHROPIC_API_KEY"},
	llm.ProviderGemini:      {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	llm.ProviderAzureOpenAI: {"AZURE_OPENAI_API_KEY", "AZURE_OPENAI_KEY"},
}

// Resolver looks up API keys.
type Resolver struct {
	lookup   func(string) (string, bool)
	dotenv   map[string]string
	readFile func(string) ([]byte, error)
}

// NewResolver returns a resolver reading the process environment through
// lookup. When envFile is set its variables are used as a fallback.
func NewResolver(lookup func(string) (string, bool), envFile string) (*Resolver, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	r := &Resolver{lookup: lookup, readFile: os.ReadFile}
	if envFile != "" {
		vars, err := godotenv.Read(envFile)
		if err != nil {
			return nil, fmt.Errorf("reading env file: %w", err)
		}
		r.dotenv = vars
	}
	return r, nil
}

// Resolve returns the key for provider p. ref may be "env:NAME",
// "file:/path", a bare variable name, or empty for the vendor defaults.
func (r *Resolver) Resolve(p llm.Provider, ref string) (string, error) {
	ref = strings.TrimSpace(ref)

	switch {
	case strings.HasPrefix(ref, "file:"):
		path := strings.TrimPrefix(ref, "file:")
		data, err := r.readFile(path)
		if err != nil {
			return "", fmt.Errorf("%s: reading key file: %w", p, err)
		}
		if key := strings.TrimSpace(string(data)); key != "" {
			return key, nil
		}
		return "", fmt.Errorf("%s: key file %s is empty: %w", p, path, ErrNotFound)

	case ref != "":
		name := strings.TrimPrefix(ref, "env:")
		if key := r.env(name); key != "" {
			return key, nil
		}
		return "", fmt.Errorf("%s: %s is not set: %w", p, name, ErrNotFound)
	}

	names := append(append([]string(nil), vendorVars[p]...), SharedKeyVar)
	for _, name := range names {
		if key := r.env(name); key != "" {
			return key, nil
		}
	}
	return "", fmt.Errorf("%s: none of %s is set: %w", p, strings.Join(names, ", "), ErrNotFound)
}

// Source describes where a key would come from, for diagnostics.
func (r *Resolver) Source(p llm.Provider, ref string) string {
	if ref = strings.TrimSpace(ref); ref != "" {
		return ref
	}
	for _, name := range append(append([]string(nil), vendorVars[p]...), SharedKeyVar) {
		if r.env(name) != "" {
			return "env:" + name
		}
	}
	return "unset"
}

func (r *Resolver) env(name string) string {
	if v, ok := r.lookup(name); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(r.dotenv[name])
}
