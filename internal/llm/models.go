package llm

import "sort"

// ModelInfo describes a known model.
type ModelInfo struct {
	Provider  Provider `json:"provider"`
	Name      string   `json:"name"`
	MaxTokens int      `json:"max_tokens"`
	CostPer1K float64  `json:"cost_per_1k"`
	Default   bool     `json:"default,omitempty"`
}

var catalog = []ModelInfo{
	{ProviderOpenAI, "gpt-4o", 128000, 0.005, false},
	{ProviderOpenAI, "gpt-4o-mini", 128000, 0.00015, true},
	{ProviderOpenAI, "gpt-4o-2024-11-20", 128000, 0.0025, false},
	{ProviderOpenAI, "gpt-4o-2024-08-06", 128000, 0.0025, false},
	{ProviderOpenAI, "gpt-4o-mini-2024-07-18", 128000, 0.00015, false},
	{ProviderOpenAI, "o1-preview", 128000, 0.015, false},
	{ProviderOpenAI, "o1-mini", 128000, 0.003, false},
	{ProviderOpenAI, "gpt-4-turbo", 128000, 0.01, false},

	{ProviderAnthropic, "claude-opus-4-20250514", 4096, 0.15, false},
	{ProviderAnthropic, "claude-sonnet-4-20250514", 4096, 0.03, false},
	{ProviderAnthropic, "claude-3-opus-20240229", 4096, 0.15, false},
	{ProviderAnthropic, "claude-3-5-sonnet-20241022", 8192, 0.03, true},
	{ProviderAnthropic, "claude-3-5-haiku-20241022", 8192, 0.0025, false},

	{ProviderGemini, "gemini-2.0-flash", 1000000, 0.0005, false},
	{ProviderGemini, "gemini-2.0-pro-exp", 2000000, 0.002, false},
	{ProviderGemini, "gemini-1.5-pro", 2000000, 0.002, false},
	{ProviderGemini, "gemini-1.5-flash", 1000000, 0.0005, true},

	// Azure model names are deployment names; these match the common defaults.
	{ProviderAzureOpenAI, "gpt-4o", 128000, 0.005, false},
	{ProviderAzureOpenAI, "gpt-4o-mini", 128000, 0.00015, true},
}

// Models returns the catalog sorted by provider, then name.
func Models() []ModelInfo {
	out := make([]ModelInfo, len(catalog))
	copy(out, catalog)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// LookupModel finds a catalog entry.
func LookupModel(p Provider, name string) (ModelInfo, bool) {
	for _, m := range catalog {
		if m.Provider == p && m.Name == name {
			return m, true
		}
	}
	return ModelInfo{}, false
}

// DefaultModel returns the model used when none is configured.
func DefaultModel(p Provider) string {
	for _, m := range catalog {
		if m.Provider == p && m.Default {
			return m.Name
		}
	}
	return ""
}

// ClampMaxTokens bounds a requested output budget by the model's cap.
// Unknown models keep the requested value.
func ClampMaxTokens(p Provider, model string, requested int) int {
	m, ok := LookupModel(p, model)
	if !ok || requested <= m.MaxTokens {
		return requested
	}
	return m.MaxTokens
}

// EstimateCost returns the approximate spend in USD for a token count.
func (m ModelInfo) EstimateCost(totalTokens int) float64 {
	return float64(totalTokens) / 1000 * m.CostPer1K
}
