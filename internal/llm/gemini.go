package llm

import (
	"context"
	"net/url"
	"strings"

	"github.com/kamilpajak/faultline/internal/analyzer"
	"github.com/kamilpajak/faultline/pkg/models"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiClient calls the Gemini generateContent API.
type GeminiClient struct {
	http httpTransport
}

// NewGeminiClient creates a Gemini client.
func NewGeminiClient(ep Endpoint) *GeminiClient {
	return &GeminiClient{http: newTransport(ProviderGemini, ep, geminiBaseURL)}
}

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiResponse struct {
	Candidates    []geminiCandidate `json:"candidates"`
	UsageMetadata geminiUsage       `json:"usageMetadata"`
	ModelVersion  string            `json:"modelVersion"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type geminiUsage struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// Provider returns the provider name.
func (c *GeminiClient) Provider() Provider { return ProviderGemini }

// Analyze diagnoses a sanitized failure.
func (c *GeminiClient) Analyze(ctx context.Context, sc *models.SanitizedContext, opts Options) (*models.AnalysisResult, error) {
	return analyze(ctx, ProviderGemini, c, sc, opts)
}

func (c *GeminiClient) complete(ctx context.Context, p analyzer.Prompt, opts Options) (*completion, error) {
	reqBody := geminiRequest{
		Contents:          []geminiContent{{Role: "user", Parts: []geminiPart{{Text: p.User}}}},
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: p.System}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     opts.Temperature,
			MaxOutputTokens: opts.MaxTokens,
		},
	}

	// The key travels in a header so it never appears in a URL.
	var resp geminiResponse
	path := "/models/" + url.PathEscape(opts.Model) + ":generateContent"
	headers := map[string]string{"x-goog-api-key": opts.APIKey}
	if err := c.http.postJSON(ctx, path, headers, opts.APIKey, reqBody, &resp); err != nil {
		return nil, err
	}

	if len(resp.Candidates) == 0 {
		return nil, newError(ProviderGemini, KindMalformed, "no candidates in response")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	if strings.TrimSpace(sb.String()) == "" {
		return nil, newError(ProviderGemini, KindMalformed, "empty candidate (finish reason "+resp.Candidates[0].FinishReason+")")
	}

	return &completion{
		Text:  sb.String(),
		Model: resp.ModelVersion,
		Usage: models.TokenUsage{
			Input:  resp.UsageMetadata.PromptTokenCount,
			Output: resp.UsageMetadata.CandidatesTokenCount,
			Total:  resp.UsageMetadata.TotalTokenCount,
		},
	}, nil
}
