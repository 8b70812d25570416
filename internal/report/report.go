// Package report renders an analysis result for people: a Markdown CI
// annotation, terminal text or JSON. Rendering is pure and bounded.
package report

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kamilpajak/faultline/pkg/models"
)

// Format is an output format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
	FormatJSON     Format = "json"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatMarkdown, FormatText, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (valid: markdown, text, json)", s)
	}
}

// Style is the annotation style a CI host displays the report with.
type Style string

const (
	StyleError   Style = "error"
	StyleWarning Style = "warning"
	StyleInfo    Style = "info"
	StyleSuccess Style = "success"
)

// ParseStyle validates an annotation style.
func ParseStyle(s string) (Style, error) {
	switch st := Style(strings.ToLower(strings.TrimSpace(s))); st {
	case StyleError, StyleWarning, StyleInfo, StyleSuccess:
		return st, nil
	default:
		return "", fmt.Errorf("unknown annotation style %q (valid: error, warning, info, success)", s)
	}
}

// Limits applied while rendering.
const (
	DefaultMaxBytes = 32 * 1024
	maxRootCause    = 2000
	maxFix          = 500
	maxFixes        = 10
	maxRawExcerpt   = 1500
	maxField        = 200
	maxError        = 300
	truncMarker     = "…"
	truncatedNotice = "\n\n_(report truncated)_\n"
)

// Options control rendering.
type Options struct {
	Format            Format
	Style             Style
	IncludeConfidence bool
	IncludeRaw        bool
	Color             bool
	RunID             string
	MaxBytes          int
}

// StyleFor returns the annotation style for a result. Degraded results are
// always shown as warnings.
func StyleFor(res *models.AnalysisResult, configured Style) Style {
	if res != nil && res.Degraded() {
		return StyleWarning
	}
	if configured == "" {
		return StyleError
	}
	return configured
}

// Render produces the report text for res.
func Render(res *models.AnalysisResult, sc *models.SanitizedContext, opts Options) (string, error) {
	if res == nil {
		return "", fmt.Errorf("no analysis result to render")
	}
	if sc == nil {
		sc = &models.SanitizedContext{}
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}

	switch opts.Format {
	case FormatMarkdown, "":
		return bound(renderMarkdown(res, sc, opts), opts.MaxBytes), nil
	case FormatText:
		return bound(renderText(res, sc, opts), opts.MaxBytes), nil
	case FormatJSON:
		return renderJSON(res, sc, opts)
	default:
		return "", fmt.Errorf("unknown output format %q", opts.Format)
	}
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n - len(truncMarker)
	if cut < 0 {
		cut = 0
	}
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + truncMarker
}

func bound(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return truncate(s, limit-len(truncatedNotice)) + truncatedNotice
}

func fixes(res *models.AnalysisResult) []string {
	out := make([]string, 0, len(res.SuggestedFixes))
	for _, f := range res.SuggestedFixes {
		if len(out) == maxFixes {
			break
		}
		out = append(out, truncate(oneLine(f), maxFix))
	}
	return out
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func exitStatus(sc *models.SanitizedContext) string {
	if sc.ExitCode < 0 {
		return models.Unknown
	}
	if sc.ErrorCategory == "" {
		return fmt.Sprintf("%d", sc.ExitCode)
	}
	return fmt.Sprintf("%d (%s)", sc.ExitCode, sc.ErrorCategory)
}

// footer is the provenance line shared by the text formats.
func footer(res *models.AnalysisResult, runID string) string {
	parts := []string{res.Provider}
	if res.Model != "" {
		parts[0] += "/" + res.Model
	}
	if res.Duration > 0 {
		parts = append(parts, res.Duration.Round(10*time.Millisecond).String())
	}
	if res.TokenUsage.Total > 0 {
		parts = append(parts, fmt.Sprintf("%d tokens", res.TokenUsage.Total))
	}
	if res.Cached {
		parts = append(parts, "cached")
	}
	if runID != "" {
		parts = append(parts, "run "+runID)
	}
	return strings.Join(parts, " · ")
}

// confidenceBar draws a fixed-width bar for a 0-100 score.
func confidenceBar(confidence int, width int) (filled, empty string) {
	n := models.ClampConfidence(confidence) * width / 100
	return strings.Repeat("█", n), strings.Repeat("░", width-n)
}
