// Package analyzer builds the diagnosis prompt and extracts a structured
// diagnosis from a provider's free-text answer.
package analyzer

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/kamilpajak/faultline/pkg/models"
)

// ErrUnparseable is returned when a response contains nothing usable as a
// root cause.
var ErrUnparseable = errors.New("response contains no diagnosis")

// Defaults applied when the response omits a field.
const (
	DefaultConfidence = 50
	MaxFixes          = 10
)

// Diagnosis is the structured content of a provider answer.
type Diagnosis struct {
	RootCause      string
	SuggestedFixes []string
	Confidence     int
	Severity       models.Severity
}

var (
	headingRe    = regexp.MustCompile(`(?m)^\s*#+\s*`)
	rootCauseRe  = regexp.MustCompile(`(?is)ROOT\s+CAUSE\s*:?\s*(.+?)(?:\n\s*SUGGESTED|\n\s*CONFIDENCE|\n\s*SEVERITY|\z)`)
	fixesRe      = regexp.MustCompile(`(?is)SUGGESTED\s+FIX(?:ES)?\s*:?\s*(.+?)(?:\n\s*CONFIDENCE|\n\s*SEVERITY|\z)`)
	fixItemRe    = regexp.MustCompile(`(?m)^\s*(?:\d+[.)]|[-*•])\s+(.+?)\s*$`)
	confidenceRe = regexp.MustCompile(`(?i)CONFIDENCE\s*:?\s*(\d+)\s*%?`)
	severityRe   = regexp.MustCompile(`(?i)SEVERITY\s*:?\s*(low|medium|high)`)
	spaceRe      = regexp.MustCompile(`\s+`)
)

// Parse extracts a Diagnosis from response text. Missing confidence and
// severity fall back to defaults. When neither a root cause nor fixes are
// found, the first substantive line becomes the root cause; if there is
// none, Parse fails.
func Parse(text string) (Diagnosis, error) {
	clean := headingRe.ReplaceAllString(strings.ReplaceAll(text, "**", ""), "")

	d := Diagnosis{
		Confidence: DefaultConfidence,
		Severity:   models.SeverityMedium,
	}

	if m := rootCauseRe.FindStringSubmatch(clean); m != nil {
		d.RootCause = sentence(m[1])
	}

	if m := fixesRe.FindStringSubmatch(clean); m != nil {
		for _, item := range fixItemRe.FindAllStringSubmatch(m[1], -1) {
			if fix := strings.TrimSpace(item[1]); fix != "" && len(d.SuggestedFixes) < MaxFixes {
				d.SuggestedFixes = append(d.SuggestedFixes, fix)
			}
		}
	}

	if m := confidenceRe.FindStringSubmatch(clean); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			d.Confidence = models.ClampConfidence(n)
		}
	}

	if m := severityRe.FindStringSubmatch(clean); m != nil {
		d.Severity = models.ParseSeverity(strings.ToLower(m[1]))
	}

	if d.RootCause == "" && len(d.SuggestedFixes) == 0 {
		d.RootCause = firstSubstantiveLine(clean)
		if d.RootCause == "" {
			return Diagnosis{}, ErrUnparseable
		}
	}
	if d.RootCause == "" {
		return Diagnosis{}, ErrUnparseable
	}

	return d, nil
}

func sentence(s string) string {
	s = strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
	if s != "" && !strings.HasSuffix(s, ".") {
		s += "."
	}
	return s
}

func firstSubstantiveLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); len(line) > 10 {
			return line
		}
	}
	return ""
}
