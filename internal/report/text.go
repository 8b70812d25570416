package report

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/kamilpajak/faultline/pkg/models"
)

type palette struct {
	bold, dim, red, yellow, green *color.Color
}

func newPalette(enabled bool) palette {
	mk := func(attrs ...color.Attribute) *color.Color {
		c := color.New(attrs...)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c
	}
	return palette{
		bold:   mk(color.Bold),
		dim:    mk(color.FgHiBlack),
		red:    mk(color.FgRed, color.Bold),
		yellow: mk(color.FgYellow),
		green:  mk(color.FgGreen),
	}
}

func renderText(res *models.AnalysisResult, sc *models.SanitizedContext, opts Options) string {
	p := newPalette(opts.Color)
	var b strings.Builder

	if res.Degraded() {
		b.WriteString(p.yellow.Sprint("AI ERROR ANALYSIS UNAVAILABLE"))
	} else {
		b.WriteString(p.red.Sprint("AI ERROR ANALYSIS"))
	}
	b.WriteString("\n")
	b.WriteString(p.dim.Sprintf("  step %s · %s · exit %s",
		truncate(orUnknown(sc.Build.Step), maxField),
		truncate(oneLine(orUnknown(sc.Command)), maxField),
		exitStatus(sc)))
	b.WriteString("\n\n")

	b.WriteString(p.bold.Sprint("Root cause"))
	b.WriteString("\n  ")
	b.WriteString(truncate(oneLine(res.RootCause), maxRootCause))
	b.WriteString("\n")

	if fx := fixes(res); len(fx) > 0 {
		b.WriteString("\n")
		b.WriteString(p.bold.Sprint("Suggested fixes"))
		b.WriteString("\n")
		for i, f := range fx {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, f)
		}
	}

	if opts.IncludeConfidence {
		b.WriteString("\n")
		writeConfidence(&b, p, res)
	}

	if res.Degraded() && res.Error != "" {
		b.WriteString("\n")
		b.WriteString(p.yellow.Sprintf("  Last error: %s", truncate(oneLine(res.Error), maxError)))
		b.WriteString("\n")
	}

	if opts.IncludeRaw && res.RawResponse != "" {
		b.WriteString("\n")
		b.WriteString(p.dim.Sprint("Raw response"))
		b.WriteString("\n")
		b.WriteString(truncate(res.RawResponse, maxRawExcerpt))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(p.dim.Sprint(footer(res, opts.RunID)))
	b.WriteString("\n")
	return b.String()
}

func writeConfidence(b *strings.Builder, p palette, res *models.AnalysisResult) {
	var barColor *color.Color
	switch {
	case res.Confidence >= 80:
		barColor = p.green
	case res.Confidence >= 40:
		barColor = p.yellow
	default:
		barColor = p.red
	}
	filled, empty := confidenceBar(res.Confidence, 24)
	fmt.Fprintf(b, "  Confidence: %d%% ", res.Confidence)
	b.WriteString(barColor.Sprint(filled + empty))
	b.WriteString(p.dim.Sprintf(" (%s severity)", res.Severity))
	b.WriteString("\n")
}

func orUnknown(s string) string {
	if s == "" {
		return models.Unknown
	}
	return s
}
