// Package llm talks to the hosted language-model providers that diagnose a
// failed build step. Every client builds the same prompt, issues one HTTPS
// call and returns either a parsed result or a *ProviderError.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kamilpajak/faultline/internal/analyzer"
	"github.com/kamilpajak/faultline/pkg/models"
)

// Provider identifies an LLM vendor.
type Provider string

const (
	ProviderOpenAI      Provider = "openai"
	ProviderAnthropic   Provider = "anthropic"
	ProviderGemini      Provider = "gemini"
	ProviderAzureOpenAI Provider = "azure_openai"
)

// Providers lists every supported provider.
var Providers = []Provider{ProviderOpenAI, ProviderAnthropic, ProviderGemini, ProviderAzureOpenAI}

// ParseProvider validates a provider name.
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Providers {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown provider %q (valid: openai, anthropic, gemini, azure_openai)", s)
}

// Options are the per-call parameters of an analysis request.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
	APIKey      string
	Timeout     time.Duration
}

// Client is implemented by every provider.
type Client interface {
	Provider() Provider
	Analyze(ctx context.Context, sc *models.SanitizedContext, opts Options) (*models.AnalysisResult, error)
}

// Endpoint configures where and how a client connects. Zero values select
// the vendor's public API, a default HTTP client and DefaultAllowedHosts.
type Endpoint struct {
	BaseURL      string
	HTTPClient   *http.Client
	AllowedHosts []string
}

// New returns the client for provider p.
func New(p Provider, ep Endpoint) (Client, error) {
	switch p {
	case ProviderOpenAI:
		return NewOpenAIClient(ep), nil
	case ProviderAnthropic:
		return NewAnthropicClient(ep), nil
	case ProviderGemini:
		return NewGeminiClient(ep), nil
	case ProviderAzureOpenAI:
		return NewAzureOpenAIClient(ep)
	default:
		return nil, fmt.Errorf("unknown provider %q", p)
	}
}

// completion is a vendor answer before parsing.
type completion struct {
	Text  string
	Model string
	Usage models.TokenUsage
}

type completer interface {
	complete(ctx context.Context, p analyzer.Prompt, opts Options) (*completion, error)
}

// analyze runs the flow shared by all vendors: resolve the model, bound the
// call, request a completion and parse it.
func analyze(ctx context.Context, provider Provider, c completer, sc *models.SanitizedContext, opts Options) (*models.AnalysisResult, error) {
	if opts.APIKey == "" {
		return nil, newError(provider, KindAuth, "no API key configured")
	}
	if opts.Model == "" {
		opts.Model = DefaultModel(provider)
	}
	opts.MaxTokens = ClampMaxTokens(provider, opts.Model, opts.MaxTokens)

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	comp, err := c.complete(ctx, analyzer.BuildPrompt(sc), opts)
	if err != nil {
		return nil, err
	}

	d, err := analyzer.Parse(comp.Text)
	if err != nil {
		return nil, &ProviderError{Provider: provider, Kind: KindMalformed, Message: "unusable response text", Err: err}
	}

	model := comp.Model
	if model == "" {
		model = opts.Model
	}
	usage := comp.Usage
	if usage.Total == 0 {
		usage.Total = usage.Input + usage.Output
	}

	return &models.AnalysisResult{
		Provider:       string(provider),
		Model:          model,
		RootCause:      d.RootCause,
		SuggestedFixes: d.SuggestedFixes,
		Confidence:     d.Confidence,
		Severity:       d.Severity,
		RawResponse:    comp.Text,
		TokenUsage:     usage,
		Outcome:        models.OutcomeSuccess,
		Duration:       time.Since(start),
	}, nil
}
