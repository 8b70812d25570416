// Package fingerprint derives the cache key of a sanitized failure.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/kamilpajak/faultline/pkg/models"
)

// Volatile fragments that differ between otherwise identical failures.
// Applied in order; timestamps before bare dates and times.
var volatile = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(?:[.,]\d+)?(?:Z|[+-]\d{2}:?\d{2})?`), "<ts>"},
	{regexp.MustCompile(`\b\d{4}[-/]\d{2}[-/]\d{2}\b`), "<date>"},
	{regexp.MustCompile(`\b\d{1,2}:\d{2}:\d{2}(?:\.\d+)?\b`), "<time>"},
	{regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\b`), "<uuid>"},
	{regexp.MustCompile(`\b0x[0-9a-fA-F]+\b`), "<addr>"},
	{regexp.MustCompile(`(?i)\b(build|job|run|attempt)(\s*#?\s*|\s+number\s+)\d+`), "$1 <n>"},
	{regexp.MustCompile(`#\d+\b`), "#<n>"},
	{regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s?(?:ns|µs|us|ms|s|sec|secs|seconds?|m|min|mins|minutes?|h|hours?)\b`), "<dur>"},
	{regexp.MustCompile(`[ \t]+`), " "},
}

// Normalize strips volatile fragments from text so that repeated occurrences
// of the same failure produce the same fingerprint.
func Normalize(text string) string {
	for _, v := range volatile {
		text = v.re.ReplaceAllString(text, v.repl)
	}
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

// Compute returns the hex SHA-256 fingerprint of sc as analyzed by the given
// provider and model. Build metadata is deliberately not part of the key.
func Compute(sc *models.SanitizedContext, provider, model string) string {
	data, _ := json.Marshal(struct {
		Command  string `json:"command"`
		Category string `json:"category"`
		Log      string `json:"log"`
		Provider string `json:"provider"`
		Model    string `json:"model"`
	}{
		Command:  Normalize(sc.Command),
		Category: sc.ErrorCategory,
		Log:      Normalize(sc.LogExcerpt),
		Provider: provider,
		Model:    model,
	})

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Short abbreviates a fingerprint for log lines.
func Short(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
