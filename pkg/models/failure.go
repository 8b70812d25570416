package models

import "time"

// Unknown is the placeholder for any signal the collector could not recover.
const Unknown = "unknown"

// BuildInfo identifies the CI build and step that failed.
type BuildInfo struct {
	Pipeline    string `json:"pipeline"`
	BuildNumber string `json:"build_number"`
	BuildURL    string `json:"build_url,omitempty"`
	Step        string `json:"step"`
	Branch      string `json:"branch,omitempty"`
	Commit      string `json:"commit,omitempty"`
	Author      string `json:"author,omitempty"`
	Phase       string `json:"phase"`
}

// FailureContext is everything known about a failed step. It is created once
// per failure and is not modified afterwards.
type FailureContext struct {
	Build         BuildInfo `json:"build"`
	Command       string    `json:"command"`
	ExitCode      int       `json:"exit_code"`
	ErrorCategory string    `json:"error_category"`
	LogExcerpt    string    `json:"log_excerpt"`
	CollectedAt   time.Time `json:"collected_at"`
}

// SanitizedContext is a FailureContext after redaction. Only this form may
// leave the process or be persisted.
type SanitizedContext struct {
	FailureContext
	Redactions           int            `json:"redactions"`
	RedactionsByCategory map[string]int `json:"redactions_by_category,omitempty"`
}
