package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultModel(t *testing.T) {
	assert.Equal(t, "gpt-4o-mini", DefaultModel(ProviderOpenAI))
	assert.Equal(t, "claude-3-5-sonnet-20241022", DefaultModel(ProviderAnthropic))
	assert.Equal(t, "gemini-1.5-flash", DefaultModel(ProviderGemini))
	assert.Equal(t, "gpt-4o-mini", DefaultModel(ProviderAzureOpenAI))
	assert.Empty(t, DefaultModel("nope"))
}

func TestClampMaxTokens(t *testing.T) {
	assert.Equal(t, 4096, ClampMaxTokens(ProviderAnthropic, "claude-3-opus-20240229", 5000))
	assert.Equal(t, 1000, ClampMaxTokens(ProviderAnthropic, "claude-3-opus-20240229", 1000))
	assert.Equal(t, 99999, ClampMaxTokens(ProviderOpenAI, "my-finetune", 99999))
}

func TestModels_SortedAndCopied(t *testing.T) {
	list := Models()
	assert.Len(t, list, len(catalog))
	for i := 1; i < len(list); i++ {
		prev, cur := list[i-1], list[i]
		assert.True(t, prev.Provider < cur.Provider || (prev.Provider == cur.Provider && prev.Name <= cur.Name))
	}
	list[0].Name = "mutated"
	_, ok := LookupModel(list[0].Provider, "mutated")
	assert.False(t, ok)
}

func TestEstimateCost(t *testing.T) {
	m, ok := LookupModel(ProviderOpenAI, "gpt-4o")
	assert.True(t, ok)
	assert.InDelta(t, 0.01, m.EstimateCost(2000), 1e-9)
}
