package llm

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/ai/azopenai"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"

	"github.com/kamilpajak/faultline/internal/analyzer"
	"github.com/kamilpajak/faultline/pkg/models"
)

// AzureOpenAIClient calls an Azure OpenAI resource. Options.Model is the
// deployment name.
type AzureOpenAIClient struct {
	endpoint   string
	httpClient *http.Client
	allowed    []string
}

// NewAzureOpenAIClient creates an Azure OpenAI client. The endpoint is the
// resource URL, e.g. https://my-resource.openai.azure.com.
func NewAzureOpenAIClient(ep Endpoint) (*AzureOpenAIClient, error) {
	if ep.BaseURL == "" {
		return nil, errors.New("azure_openai requires an endpoint URL")
	}
	c := &AzureOpenAIClient{
		endpoint:   strings.TrimRight(ep.BaseURL, "/"),
		httpClient: ep.HTTPClient,
		allowed:    ep.AllowedHosts,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if len(c.allowed) == 0 {
		c.allowed = DefaultAllowedHosts
	}
	c.httpClient = guardRedirects(ProviderAzureOpenAI, c.httpClient, c.allowed)
	return c, nil
}

// Provider returns the provider name.
func (c *AzureOpenAIClient) Provider() Provider { return ProviderAzureOpenAI }

// Analyze diagnoses a sanitized failure.
func (c *AzureOpenAIClient) Analyze(ctx context.Context, sc *models.SanitizedContext, opts Options) (*models.AnalysisResult, error) {
	return analyze(ctx, ProviderAzureOpenAI, c, sc, opts)
}

func (c *AzureOpenAIClient) complete(ctx context.Context, p analyzer.Prompt, opts Options) (*completion, error) {
	if err := checkURL(ProviderAzureOpenAI, c.endpoint, c.allowed); err != nil {
		return nil, err
	}

	// Retries belong to the coordinator, so the SDK's own are disabled.
	client, err := azopenai.NewClientWithKeyCredential(c.endpoint, azcore.NewKeyCredential(opts.APIKey), &azopenai.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Transport: c.httpClient,
			Retry:     policy.RetryOptions{MaxRetries: -1},
		},
	})
	if err != nil {
		return nil, &ProviderError{Provider: ProviderAzureOpenAI, Kind: KindNetwork, Message: "creating client", Err: err}
	}

	resp, err := client.GetChatCompletions(ctx, azopenai.ChatCompletionsOptions{
		DeploymentName: to.Ptr(opts.Model),
		Messages: []azopenai.ChatRequestMessageClassification{
			&azopenai.ChatRequestUserMessage{
				Content: azopenai.NewChatRequestUserMessageContent(p.System + "\n\n" + p.User),
			},
		},
		MaxTokens:   to.Ptr(int32(opts.MaxTokens)),
		Temperature: to.Ptr(float32(opts.Temperature)),
	}, nil)
	if err != nil {
		return nil, azureError(ctx, err, opts.APIKey)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil || resp.Choices[0].Message.Content == nil ||
		strings.TrimSpace(*resp.Choices[0].Message.Content) == "" {
		return nil, newError(ProviderAzureOpenAI, KindMalformed, "no completion in response")
	}

	comp := &completion{Text: *resp.Choices[0].Message.Content}
	if resp.Model != nil {
		comp.Model = *resp.Model
	}
	if u := resp.Usage; u != nil {
		comp.Usage = models.TokenUsage{
			Input:  int(deref(u.PromptTokens)),
			Output: int(deref(u.CompletionTokens)),
			Total:  int(deref(u.TotalTokens)),
		}
	}
	return comp, nil
}

func azureError(ctx context.Context, err error, apiKey string) *ProviderError {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr
	}
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return &ProviderError{
			Provider:   ProviderAzureOpenAI,
			Kind:       kindForStatus(respErr.StatusCode),
			StatusCode: respErr.StatusCode,
			Message:    snippet(respErr.ErrorCode, apiKey),
		}
	}
	kind := KindNetwork
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		kind = KindTimeout
	}
	return &ProviderError{Provider: ProviderAzureOpenAI, Kind: kind, Message: snippet(err.Error(), apiKey)}
}

func deref(p *int32) int32 {
	if p == nil {
		return 0
	}
	return *p
}
