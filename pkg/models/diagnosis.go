package models

import "time"

// Outcome reports whether a provider produced a usable diagnosis.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Severity is the model's estimate of how serious the failure is.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// ParseSeverity normalizes free-form severity text. Unknown values map to medium.
func ParseSeverity(s string) Severity {
	switch Severity(s) {
	case SeverityLow, SeverityHigh:
		return Severity(s)
	case "LOW", "Low":
		return SeverityLow
	case "HIGH", "High", "critical", "CRITICAL":
		return SeverityHigh
	default:
		return SeverityMedium
	}
}

// TokenUsage is the token accounting reported by a provider.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total"`
}

// AnalysisResult is the structured diagnosis of one failed step.
type AnalysisResult struct {
	Provider       string        `json:"provider"`
	Model          string        `json:"model"`
	RootCause      string        `json:"root_cause"`
	SuggestedFixes []string      `json:"suggested_fixes"`
	Confidence     int           `json:"confidence"` // 0-100
	Severity       Severity      `json:"severity"`
	RawResponse    string        `json:"raw_response,omitempty"`
	TokenUsage     TokenUsage    `json:"token_usage"`
	Outcome        Outcome       `json:"outcome"`
	Cached         bool          `json:"cached"`
	Duration       time.Duration `json:"duration_ns"`
	Error          string        `json:"error,omitempty"`
}

// Degraded reports whether the result stands in for a missing diagnosis.
func (r *AnalysisResult) Degraded() bool {
	return r.Outcome != OutcomeSuccess
}

// ClampConfidence bounds a confidence score to 0..100.
func ClampConfidence(c int) int {
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}
