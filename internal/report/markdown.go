package report

import (
	"fmt"
	"strings"

	"github.com/kamilpajak/faultline/pkg/models"
)

func renderMarkdown(res *models.AnalysisResult, sc *models.SanitizedContext, opts Options) string {
	var b strings.Builder

	if res.Degraded() {
		b.WriteString("### AI Error Analysis Unavailable\n\n")
	} else {
		b.WriteString("### AI Error Analysis\n\n")
	}

	fmt.Fprintf(&b, "**Step:** %s · **Command:** %s · **Exit:** %s\n\n",
		code(truncate(sc.Build.Step, maxField)),
		code(truncate(sc.Command, maxField)),
		exitStatus(sc))

	b.WriteString("#### Root Cause\n\n")
	b.WriteString(escape(truncate(oneLine(res.RootCause), maxRootCause)))
	b.WriteString("\n\n")

	if fx := fixes(res); len(fx) > 0 {
		b.WriteString("#### Suggested Fixes\n\n")
		for i, f := range fx {
			fmt.Fprintf(&b, "%d. %s\n", i+1, escape(f))
		}
		b.WriteString("\n")
	}

	if opts.IncludeConfidence {
		filled, empty := confidenceBar(res.Confidence, 20)
		fmt.Fprintf(&b, "**Confidence:** %d%% `%s%s` · **Severity:** %s\n\n", res.Confidence, filled, empty, res.Severity)
	}

	if res.Degraded() && res.Error != "" {
		fmt.Fprintf(&b, "> Last error: %s\n\n", escape(truncate(oneLine(res.Error), maxError)))
	}

	if opts.IncludeRaw && res.RawResponse != "" {
		b.WriteString("<details><summary>Raw response</summary>\n\n```\n")
		b.WriteString(strings.ReplaceAll(truncate(res.RawResponse, maxRawExcerpt), "```", "'''"))
		b.WriteString("\n```\n\n</details>\n\n")
	}

	fmt.Fprintf(&b, "<sub>%s</sub>\n", escape(footer(res, opts.RunID)))
	return b.String()
}

func code(s string) string {
	if s == "" {
		s = models.Unknown
	}
	return "`" + strings.ReplaceAll(oneLine(s), "`", "'") + "`"
}

var mdEscaper = strings.NewReplacer("<", "&lt;", ">", "&gt;")

// escape keeps provider text from injecting HTML into the annotation.
func escape(s string) string {
	return mdEscaper.Replace(s)
}
