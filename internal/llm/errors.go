package llm

import (
	"fmt"
	"net/http"
	"time"
)

// ErrorKind classifies a provider failure.
type ErrorKind string

const (
	KindNetwork        ErrorKind = "network"
	KindTimeout        ErrorKind = "timeout"
	KindStatus         ErrorKind = "status"
	KindAuth           ErrorKind = "auth"
	KindRateLimit      ErrorKind = "rate_limit"
	KindMalformed      ErrorKind = "malformed"
	KindDisallowedHost ErrorKind = "disallowed_host"
)

// ProviderError is returned by every Client on failure.
type ProviderError struct {
	Provider   Provider
	Kind       ErrorKind
	StatusCode int
	RetryAfter time.Duration
	Message    string
	Err        error
}

func newError(p Provider, kind ErrorKind, msg string) *ProviderError {
	return &ProviderError{Provider: p, Kind: kind, Message: msg}
}

func (e *ProviderError) Error() string {
	s := fmt.Sprintf("%s: %s", e.Provider, e.Kind)
	if e.StatusCode != 0 {
		s += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		s += ": " + e.Message
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Retryable reports whether another attempt against the same provider may
// succeed.
func (e *ProviderError) Retryable() bool {
	switch e.Kind {
	case KindAuth, KindDisallowedHost:
		return false
	case KindStatus:
		return e.StatusCode >= 500 || e.StatusCode == http.StatusRequestTimeout
	default:
		return true
	}
}

// kindForStatus maps a non-2xx HTTP status to an error kind.
func kindForStatus(code int) ErrorKind {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return KindAuth
	case code == http.StatusTooManyRequests:
		return KindRateLimit
	default:
		return KindStatus
	}
}
