package collector

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var ansiRe = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]|\x1b\][^\x07\x1b]*(?:\x07|\x1b\\)|\x1b[()][012AB]`)

// StripANSI removes terminal escape sequences.
func StripANSI(s string) string {
	return ansiRe.ReplaceAllString(s, "")
}

// Tail returns the last maxLines lines of log, then trims from the front
// until it fits in maxBytes. Carriage-return progress updates collapse to
// their final state. A limit of zero or less disables that bound.
func Tail(log string, maxLines, maxBytes int) string {
	log = strings.ReplaceAll(StripANSI(log), "\r\n", "\n")
	log = strings.TrimRight(log, "\n")
	if log == "" {
		return ""
	}

	lines := strings.Split(log, "\n")
	for i, l := range lines {
		if j := strings.LastIndexByte(l, '\r'); j >= 0 {
			lines[i] = l[j+1:]
		}
	}
	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	out := strings.Join(lines, "\n")

	if maxBytes > 0 && len(out) > maxBytes {
		out = out[len(out)-maxBytes:]
		// Prefer starting on a whole line, then on a whole rune.
		if i := strings.IndexByte(out, '\n'); i >= 0 && i < len(out)-1 {
			out = out[i+1:]
		}
		for len(out) > 0 && !utf8.RuneStart(out[0]) {
			out = out[1:]
		}
	}
	return out
}
