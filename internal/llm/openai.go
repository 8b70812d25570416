package llm

import (
	"context"
	"strings"

	"github.com/kamilpajak/faultline/internal/analyzer"
	"github.com/kamilpajak/faultline/pkg/models"
)

const openAIBaseURL = "https://api.openai.com/v1"

// OpenAIClient calls the chat completions API.
type OpenAIClient struct {
	http httpTransport
}

// NewOpenAIClient creates an OpenAI client.
func NewOpenAIClient(ep Endpoint) *OpenAIClient {
	return &OpenAIClient{http: newTransport(ProviderOpenAI, ep, openAIBaseURL)}
}

type openAIRequest struct {
	Model               string          `json:"model"`
	Messages            []openAIMessage `json:"messages"`
	Temperature         *float64        `json:"temperature,omitempty"`
	MaxTokens           int             `json:"max_tokens,omitempty"`
	MaxCompletionTokens int             `json:"max_completion_tokens,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []openAIChoice `json:"choices"`
	Usage   openAIUsage    `json:"usage"`
	Model   string         `json:"model"`
}

type openAIChoice struct {
	Message openAIMessage `json:"message"`
}

type openAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Provider returns the provider name.
func (c *OpenAIClient) Provider() Provider { return ProviderOpenAI }

// Analyze diagnoses a sanitized failure.
func (c *OpenAIClient) Analyze(ctx context.Context, sc *models.SanitizedContext, opts Options) (*models.AnalysisResult, error) {
	return analyze(ctx, ProviderOpenAI, c, sc, opts)
}

func (c *OpenAIClient) complete(ctx context.Context, p analyzer.Prompt, opts Options) (*completion, error) {
	reqBody := openAIRequest{Model: opts.Model}

	// o1 models reject system messages and a custom temperature.
	if strings.HasPrefix(opts.Model, "o1") {
		reqBody.Messages = []openAIMessage{{Role: "user", Content: p.System + "\n\n" + p.User}}
		reqBody.MaxCompletionTokens = opts.MaxTokens
	} else {
		reqBody.Messages = []openAIMessage{
			{Role: "system", Content: p.System},
			{Role: "user", Content: p.User},
		}
		reqBody.MaxTokens = opts.MaxTokens
		temp := opts.Temperature
		reqBody.Temperature = &temp
	}

	var resp openAIResponse
	headers := map[string]string{"Authorization": "Bearer " + opts.APIKey}
	if err := c.http.postJSON(ctx, "/chat/completions", headers, opts.APIKey, reqBody, &resp); err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, newError(ProviderOpenAI, KindMalformed, "no content in response")
	}

	return &completion{
		Text:  resp.Choices[0].Message.Content,
		Model: resp.Model,
		Usage: models.TokenUsage{
			Input:  resp.Usage.PromptTokens,
			Output: resp.Usage.CompletionTokens,
			Total:  resp.Usage.TotalTokens,
		},
	}, nil
}
