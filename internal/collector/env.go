package collector

import "strings"

// buildkiteSignals maps Buildkite agent environment variables to signal
// keys. The first variable present wins.
var buildkiteSignals = []struct {
	signal string
	vars   []string
}{
	{SignalExitCode, []string{"BUILDKITE_COMMAND_EXIT_STATUS", "BUILDKITE_LAST_HOOK_EXIT_STATUS"}},
	{SignalCommand, []string{"BUILDKITE_COMMAND"}},
	{SignalPipeline, []string{"BUILDKITE_PIPELINE_SLUG", "BUILDKITE_PIPELINE_NAME"}},
	{SignalBuildNumber, []string{"BUILDKITE_BUILD_NUMBER"}},
	{SignalBuildURL, []string{"BUILDKITE_BUILD_URL"}},
	{SignalStep, []string{"BUILDKITE_LABEL", "BUILDKITE_STEP_KEY"}},
	{SignalBranch, []string{"BUILDKITE_BRANCH"}},
	{SignalCommit, []string{"BUILDKITE_COMMIT"}},
	{SignalAuthor, []string{"BUILDKITE_BUILD_AUTHOR"}},
}

// SignalsFromEnv extracts signals from an environment in os.Environ form.
// The log is not part of the environment and must be added by the caller.
func SignalsFromEnv(environ []string) Signals {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if ok {
			env[k] = v
		}
	}

	s := make(Signals)
	for _, m := range buildkiteSignals {
		for _, name := range m.vars {
			if v := env[name]; v != "" {
				s[m.signal] = v
				break
			}
		}
	}
	return s
}
