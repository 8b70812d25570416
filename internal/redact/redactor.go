package redact

import (
	"github.com/kamilpajak/faultline/pkg/models"
)

// Redactor applies an ordered rule set. It is safe for concurrent use.
type Redactor struct {
	rules []Rule
}

// New returns a Redactor over rules, evaluated in the given order.
func New(rules ...Rule) *Redactor {
	return &Redactor{rules: rules}
}

// Default returns a Redactor with DefaultRules.
func Default() *Redactor {
	return New(DefaultRules()...)
}

// Redact returns text with every match replaced and the number of
// replacements made.
func (r *Redactor) Redact(text string) (string, int) {
	out, counts := r.RedactCounts(text)
	total := 0
	for _, n := range counts {
		total += n
	}
	return out, total
}

// RedactCounts is Redact with per-category counts.
func (r *Redactor) RedactCounts(text string) (string, map[Category]int) {
	counts := make(map[Category]int)
	for _, rule := range r.rules {
		var n int
		text, n = rule.apply(text)
		if n > 0 {
			counts[rule.Category] += n
		}
	}
	return text, counts
}

// RedactContext sanitizes every free-text field of fc.
func (r *Redactor) RedactContext(fc models.FailureContext) models.SanitizedContext {
	sc := models.SanitizedContext{
		FailureContext:       fc,
		RedactionsByCategory: make(map[string]int),
	}
	fields := []*string{
		&sc.Command,
		&sc.LogExcerpt,
		&sc.Build.Pipeline,
		&sc.Build.BuildURL,
		&sc.Build.Step,
		&sc.Build.Branch,
		&sc.Build.Author,
		&sc.Build.Phase,
	}
	for _, f := range fields {
		out, counts := r.RedactCounts(*f)
		*f = out
		for c, n := range counts {
			sc.RedactionsByCategory[string(c)] += n
			sc.Redactions += n
		}
	}
	return sc
}
