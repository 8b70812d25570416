// Package collector turns the raw signals of a failed CI step into a
// models.FailureContext. It performs no I/O; callers read logs and the
// environment and hand the results in as Signals.
package collector

import (
	"strconv"
	"strings"
	"time"

	"github.com/kamilpajak/faultline/pkg/models"
)

// Signal keys understood by Collect.
const (
	SignalExitCode    = "exit_code"
	SignalCommand     = "command"
	SignalLog         = "log"
	SignalPipeline    = "pipeline"
	SignalBuildNumber = "build_number"
	SignalBuildURL    = "build_url"
	SignalStep        = "step"
	SignalBranch      = "branch"
	SignalCommit      = "commit"
	SignalAuthor      = "author"
	SignalPhase       = "phase"
)

// Signals are the opaque key/value observations of a failed step.
type Signals map[string]string

// Options bound what Collect keeps.
type Options struct {
	MaxLogLines    int
	MaxLogBytes    int
	IncludeGitInfo bool
	// Now stamps CollectedAt. Defaults to time.Now.
	Now func() time.Time
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		MaxLogLines:    500,
		MaxLogBytes:    64 * 1024,
		IncludeGitInfo: true,
	}
}

// Collect builds a FailureContext from signals. Missing or malformed signals
// never fail the call: they are recorded as "unknown" (or -1 for the exit
// code) so that analysis can still proceed.
func Collect(s Signals, opts Options) models.FailureContext {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	code := parseExitCode(s[SignalExitCode])
	category := CategoryUnknown
	if code >= 0 {
		category = Categorize(code)
	}

	fc := models.FailureContext{
		Build: models.BuildInfo{
			Pipeline:    valueOr(s, SignalPipeline, models.Unknown),
			BuildNumber: valueOr(s, SignalBuildNumber, models.Unknown),
			BuildURL:    strings.TrimSpace(s[SignalBuildURL]),
			Step:        valueOr(s, SignalStep, models.Unknown),
			Phase:       valueOr(s, SignalPhase, "command"),
		},
		Command:       valueOr(s, SignalCommand, models.Unknown),
		ExitCode:      code,
		ErrorCategory: category,
		LogExcerpt:    Tail(s[SignalLog], opts.MaxLogLines, opts.MaxLogBytes),
		CollectedAt:   now().UTC(),
	}

	if opts.IncludeGitInfo {
		fc.Build.Branch = valueOr(s, SignalBranch, models.Unknown)
		fc.Build.Commit = valueOr(s, SignalCommit, models.Unknown)
		fc.Build.Author = strings.TrimSpace(s[SignalAuthor])
	}

	return fc
}

func parseExitCode(v string) int {
	code, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || code < 0 || code > 255 {
		return -1
	}
	return code
}

func valueOr(s Signals, key, fallback string) string {
	if v := strings.TrimSpace(s[key]); v != "" {
		return v
	}
	return fallback
}
