package redact

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"
)

// Category classifies what a rule removes.
type Category string

const (
	CategorySecret Category = "secret"
	CategoryURL    Category = "url"
	CategoryEmail  Category = "email"
	CategoryPath   Category = "path"
)

// Placeholders substituted for matched content.
const (
	Placeholder      = "[REDACTED]"
	PlaceholderURL   = "[REDACTED_URL]"
	PlaceholderEmail = "[REDACTED_EMAIL]"
	PlaceholderPath  = "[REDACTED_PATH]"
)

// Rule is one classifier. Replace is a regexp expansion template, so a rule
// may keep part of its match (for example the key of a key=value pair).
type Rule struct {
	Name     string
	Category Category
	Pattern  *regexp.Regexp
	Replace  string
	// Accept, when set, can veto a match the pattern found.
	Accept func(match string) bool
}

func (r Rule) apply(text string) (string, int) {
	matches := r.Pattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text, 0
	}

	var b strings.Builder
	last, n := 0, 0
	for _, m := range matches {
		match := text[m[0]:m[1]]
		if r.Accept != nil && !r.Accept(match) {
			continue
		}
		repl := r.Pattern.ExpandString(nil, r.Replace, text, m)
		if string(repl) == match {
			continue
		}
		b.WriteString(text[last:m[0]])
		b.Write(repl)
		last = m[1]
		n++
	}
	if n == 0 {
		return text, 0
	}
	b.WriteString(text[last:])
	return b.String(), n
}

// Secret-shaped content. Order matters: the more specific rules run first so
// that generic ones do not split a secret into partially redacted pieces.
var (
	privateKeyBlock = regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----(?:[\s\S]*?-----END [A-Z ]*PRIVATE KEY-----|[\sA-Za-z0-9+/=]*)`)
	authHeader      = regexp.MustCompile(`(?i)(\bauthorization["']?\s*[:=]\s*)(?:(?:bearer|basic|token)\s+)?[^\s"',;]+`)
	bearerToken     = regexp.MustCompile(`(?i)\b(bearer\s+)[A-Za-z0-9._~+/=-]{16,}`)
	credentialPair  = regexp.MustCompile(`(?i)\b((?:export\s+)?["']?(?:[A-Za-z0-9_.-]*(?:api[_-]?key|apikey|secret|token|passw(?:or)?d|passphrase|pwd|credentials?|private[_-]?key|access[_-]?key)[A-Za-z0-9_.-]*|[A-Za-z0-9_.-]*[_.-](?:pass|auth))["']?\s*[:=]\s*)("[^"\n]*"?|'[^'\n]*'?|[^\s"',;]+)`)
	credentialFlag  = regexp.MustCompile(`(?i)(^|\s)(--?(?:password|passwd|pass|secret|token|api[_-]?key|auth[_-]?token)\s+)("[^"\n]*"?|'[^'\n]*'?|[^\s"'-]\S*)`)
	vendorTokens    = []*regexp.Regexp{
		regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`),
		regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9_]{20,}`),
		regexp.MustCompile(`\bgithub_pat_[A-Za-z0-9_]{20,}`),
		regexp.MustCompile(`\bxox[abposr]-[A-Za-z0-9-]{10,}`),
		regexp.MustCompile(`\bsk-ant-[A-Za-z0-9_-]{10,}`),
		regexp.MustCompile(`\bsk-(?:proj-)?[A-Za-z0-9_-]{16,}`),
		regexp.MustCompile(`\bAIza[0-9A-Za-z_-]{35}`),
		regexp.MustCompile(`\bnpm_[A-Za-z0-9]{36}`),
		regexp.MustCompile(`\beyJ[A-Za-z0-9_-]{8,}\.eyJ[A-Za-z0-9_-]{8,}\.[A-Za-z0-9_-]{8,}`),
	}
	connectionCreds = regexp.MustCompile(`\b([A-Za-z][A-Za-z0-9+.-]*://)[^\s/@:"']+:[^\s/"']+@`)
)

// Privacy-shaped content.
var (
	urlPattern     = regexp.MustCompile("\\b(?:https?|ftp|wss?|git|ssh|postgres(?:ql)?|mysql|mariadb|mongodb(?:\\+srv)?|rediss?|amqps?)://[^\\s\"'<>`]*[^\\s\"'<>`.,;:)\\]]")
	emailPattern   = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	unixPath       = regexp.MustCompile(`(?m)(^|[\s"'=:(\[,])(~?(?:/[A-Za-z0-9._@+~-]+){2,}/?)`)
	windowsPath    = regexp.MustCompile(`\b[A-Za-z]:\\(?:[^\\\s"'<>|:*?]+\\)+[^\\\s"'<>|:*?]*`)
	entropyPattern = regexp.MustCompile(`[A-Za-z0-9+/=_-]{32,}`)
)

const (
	minEntropyLength = 32
	minEntropyBits   = 4.2
)

// SecretRules returns the credential and token classifiers.
func SecretRules() []Rule {
	rules := []Rule{
		{Name: "private_key", Category: CategorySecret, Pattern: privateKeyBlock, Replace: Placeholder},
		{Name: "authorization_header", Category: CategorySecret, Pattern: authHeader, Replace: "${1}" + Placeholder},
		{Name: "bearer_token", Category: CategorySecret, Pattern: bearerToken, Replace: "${1}" + Placeholder},
		{Name: "credential_assignment", Category: CategorySecret, Pattern: credentialPair, Replace: "${1}" + Placeholder},
		{Name: "credential_flag", Category: CategorySecret, Pattern: credentialFlag, Replace: "${1}${2}" + Placeholder},
	}
	for _, p := range vendorTokens {
		rules = append(rules, Rule{Name: "vendor_token", Category: CategorySecret, Pattern: p, Replace: Placeholder})
	}
	return append(rules, Rule{
		Name: "connection_credentials", Category: CategorySecret, Pattern: connectionCreds, Replace: "${1}" + Placeholder + "@",
	})
}

// PrivacyRules returns the URL, email and filesystem path classifiers.
func PrivacyRules() []Rule {
	return []Rule{
		{Name: "url", Category: CategoryURL, Pattern: urlPattern, Replace: PlaceholderURL},
		{Name: "email", Category: CategoryEmail, Pattern: emailPattern, Replace: PlaceholderEmail},
		{Name: "unix_path", Category: CategoryPath, Pattern: unixPath, Replace: "${1}" + PlaceholderPath},
		{Name: "windows_path", Category: CategoryPath, Pattern: windowsPath, Replace: PlaceholderPath},
	}
}

// EntropyRule catches long random-looking tokens that no named rule knows.
func EntropyRule() Rule {
	return Rule{
		Name:     "high_entropy",
		Category: CategorySecret,
		Pattern:  entropyPattern,
		Replace:  Placeholder,
		Accept:   looksRandom,
	}
}

// CompileExtra turns user-supplied expressions into secret rules.
func CompileExtra(patterns []string) ([]Rule, error) {
	rules := make([]Rule, 0, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("extra pattern %d: %w", i, err)
		}
		rules = append(rules, Rule{Name: fmt.Sprintf("extra_%d", i), Category: CategorySecret, Pattern: re, Replace: Placeholder})
	}
	return rules, nil
}

// DefaultRules is the full built-in rule set in evaluation order.
func DefaultRules() []Rule {
	rules := SecretRules()
	rules = append(rules, PrivacyRules()...)
	return append(rules, EntropyRule())
}

// Build assembles a rule set. Extra patterns run after the built-in secret
// rules. With privacy off, URLs, emails and paths are left alone; credentials
// are always removed.
func Build(extra []string, privacy bool) ([]Rule, error) {
	extraRules, err := CompileExtra(extra)
	if err != nil {
		return nil, err
	}
	rules := SecretRules()
	rules = append(rules, extraRules...)
	if privacy {
		rules = append(rules, PrivacyRules()...)
	}
	return append(rules, EntropyRule()), nil
}

func looksRandom(s string) bool {
	if len(s) < minEntropyLength {
		return false
	}
	var upper, lower, digit bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit && shannon(s) >= minEntropyBits
}

// shannon returns the entropy of s in bits per character.
func shannon(s string) float64 {
	if s == "" {
		return 0
	}
	freq := make(map[rune]int)
	for _, r := range s {
		freq[r]++
	}
	n := float64(len(s))
	var h float64
	for _, c := range freq {
		p := float64(c) / n
		h -= p * math.Log2(p)
	}
	return h
}
