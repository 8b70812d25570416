package collector

// Error categories derived from the exit status of the failed command.
const (
	CategoryGeneralFailure      = "general_failure"
	CategoryMisuseOfBuiltin     = "misuse_of_shell_builtin"
	CategoryPermissionDenied    = "permission_denied"
	CategoryCommandNotFound     = "command_not_found"
	CategoryInvalidExitArgument = "invalid_exit_argument"
	CategoryInterrupted         = "interrupted"
	CategoryKilled              = "killed"
	CategorySegfault            = "segmentation_fault"
	CategoryTerminated          = "terminated"
	CategorySignal              = "signal"
	CategoryUnknown             = "unknown"
)

var exitCategories = map[int]string{
	1:   CategoryGeneralFailure,
	2:   CategoryMisuseOfBuiltin,
	126: CategoryPermissionDenied,
	127: CategoryCommandNotFound,
	128: CategoryInvalidExitArgument,
	130: CategoryInterrupted, // SIGINT
	137: CategoryKilled,      // SIGKILL, usually the OOM killer
	139: CategorySegfault,    // SIGSEGV
	143: CategoryTerminated,  // SIGTERM
}

// Categorize maps an exit status to an error category. The table is fixed;
// statuses 129-192 not listed explicitly are reported as a generic signal.
func Categorize(code int) string {
	if c, ok := exitCategories[code]; ok {
		return c
	}
	if code > 128 && code <= 192 {
		return CategorySignal
	}
	return CategoryUnknown
}
