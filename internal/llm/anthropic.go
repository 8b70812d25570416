package llm

import (
	"context"
	"strings"

	"github.com/kamilpajak/faultline/internal/analyzer"
	"github.com/kamilpajak/faultline/pkg/models"
)

const (
	anthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"
)

// AnthropicClient calls the Claude messages API.
type AnthropicClient struct {
	http httpTransport
}

// NewAnthropicClient creates an Anthropic client.
func NewAnthropicClient(ep Endpoint) *AnthropicClient {
	return &AnthropicClient{http: newTransport(ProviderAnthropic, ep, anthropicBaseURL)}
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float64            `json:"temperature"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []anthropicContent `json:"content"`
	Model   string             `json:"model"`
	Usage   anthropicUsage     `json:"usage"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Provider returns the provider name.
func (c *AnthropicClient) Provider() Provider { return ProviderAnthropic }

// Analyze diagnoses a sanitized failure.
func (c *AnthropicClient) Analyze(ctx context.Context, sc *models.SanitizedContext, opts Options) (*models.AnalysisResult, error) {
	return analyze(ctx, ProviderAnthropic, c, sc, opts)
}

func (c *AnthropicClient) complete(ctx context.Context, p analyzer.Prompt, opts Options) (*completion, error) {
	reqBody := anthropicRequest{
		Model:       opts.Model,
		MaxTokens:   opts.MaxTokens,
		System:      p.System,
		Messages:    []anthropicMessage{{Role: "user", Content: p.User}},
		Temperature: opts.Temperature,
	}

	var resp anthropicResponse
	headers := map[string]string{
		"x-api-key":         opts.APIKey,
		"anthropic-version": anthropicVersion,
	}
	if err := c.http.postJSON(ctx, "/messages", headers, opts.APIKey, reqBody, &resp); err != nil {
		return nil, err
	}

	var sb strings.Builder
	for _, part := range resp.Content {
		if part.Type == "text" {
			sb.WriteString(part.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return nil, newError(ProviderAnthropic, KindMalformed, "no text content in response")
	}

	return &completion{
		Text:  sb.String(),
		Model: resp.Model,
		Usage: models.TokenUsage{
			Input:  resp.Usage.InputTokens,
			Output: resp.Usage.OutputTokens,
		},
	}, nil
}
