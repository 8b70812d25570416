package analyzer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kamilpajak/faultline/pkg/models"
)

// MaxPromptLogBytes caps how much of the log excerpt is sent to a provider.
const MaxPromptLogBytes = 5000

const systemPrompt = `You are an expert DevOps engineer analyzing CI/CD build failures. You give specific, actionable fixes grounded in the log you are shown.`

const instructions = `ANALYSIS RULES:
1. Base the diagnosis on the log. Do not invent errors that are not shown.
2. "fatal: unable to access" or "PROTOCOL_ERROR" against a git host usually means failed authentication, not a network outage.
3. Values shown as [REDACTED], [REDACTED_URL], [REDACTED_PATH] or [REDACTED_EMAIL] were removed on purpose. Do not speculate about them.

Respond in EXACTLY this format:

ROOT CAUSE: <one or two complete sentences>

SUGGESTED FIXES:
- <fix>
- <fix>
- <fix>

CONFIDENCE: <0-100>%
SEVERITY: <low|medium|high>

Give 3 to 5 fixes. Be specific: include exact commands where they help.`

// Prompt is the provider-neutral request text.
type Prompt struct {
	System string
	User   string
}

// BuildPrompt renders the analysis request for a sanitized failure.
func BuildPrompt(sc *models.SanitizedContext) Prompt {
	var sb strings.Builder

	sb.WriteString("Analyze this CI build failure.\n\n")
	sb.WriteString("BUILD INFORMATION:\n")
	fmt.Fprintf(&sb, "- Pipeline: %s\n", sc.Build.Pipeline)
	fmt.Fprintf(&sb, "- Step: %s\n", sc.Build.Step)
	if sc.Build.Branch != "" {
		fmt.Fprintf(&sb, "- Branch: %s\n", sc.Build.Branch)
	}
	fmt.Fprintf(&sb, "- Command: %s\n", sc.Command)
	fmt.Fprintf(&sb, "- Exit Status: %s\n", exitStatus(sc.ExitCode))
	fmt.Fprintf(&sb, "- Error Category: %s\n", sc.ErrorCategory)
	fmt.Fprintf(&sb, "- Phase: %s\n", sc.Build.Phase)

	sb.WriteString("\nERROR LOG (tail):\n```\n")
	sb.WriteString(tailBytes(sc.LogExcerpt, MaxPromptLogBytes))
	sb.WriteString("\n```\n\n")
	sb.WriteString(instructions)

	return Prompt{System: systemPrompt, User: sb.String()}
}

func exitStatus(code int) string {
	if code < 0 {
		return models.Unknown
	}
	return fmt.Sprintf("%d", code)
}

func tailBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	start := len(s) - n
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	s = s[start:]
	if i := strings.IndexByte(s, '\n'); i >= 0 && i < len(s)-1 {
		s = s[i+1:]
	}
	return s
}
