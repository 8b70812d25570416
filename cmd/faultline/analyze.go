package faultline

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kamilpajak/faultline/internal/analysis"
	"github.com/kamilpajak/faultline/internal/cache"
	"github.com/kamilpajak/faultline/internal/collector"
	"github.com/kamilpajak/faultline/internal/config"
	"github.com/kamilpajak/faultline/internal/fsutil"
	"github.com/kamilpajak/faultline/internal/llm"
	"github.com/kamilpajak/faultline/internal/logging"
	"github.com/kamilpajak/faultline/internal/metrics"
	"github.com/kamilpajak/faultline/internal/redact"
	"github.com/kamilpajak/faultline/internal/report"
	"github.com/kamilpajak/faultline/internal/secrets"
	"github.com/kamilpajak/faultline/pkg/models"
)

// maxLogInput caps how much of a log is read before tailing.
const maxLogInput = 16 << 20

type analyzeOptions struct {
	logFile     string
	exitCode    int
	command     string
	step        string
	provider    string
	model       string
	format      string
	out         string
	artifact    string
	metricsFile string
	envFile     string
	noCache     bool
	fromEnv     bool
	verbose     bool
}

// Process environment, replaced in tests.
var (
	lookupEnv config.LookupFunc = os.LookupEnv
	environ                     = os.Environ
)

func newAnalyzeCmd() *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Diagnose a failed build step",
		Long: `Diagnose a failed build step and print a report.

The step's log is read from --log-file, or from stdin when it is piped.
Secrets and personal data are removed before anything leaves the machine.

Examples:
  npm test 2>&1 | faultline analyze --exit-code $? --command "npm test"
  faultline analyze --from-env --log-file build.log --format text
  faultline analyze --log-file build.log --provider anthropic --out report.md`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.logFile, "log-file", "", `Build log to analyze ("-" for stdin)`)
	f.IntVar(&opts.exitCode, "exit-code", 0, "Exit status of the failed step")
	f.StringVar(&opts.command, "command", "", "Command the step ran")
	f.StringVar(&opts.step, "step", "", "Step label")
	f.StringVarP(&opts.provider, "provider", "p", "", "LLM provider (openai, anthropic, gemini, azure_openai)")
	f.StringVarP(&opts.model, "model", "m", "", "Specific model name")
	f.StringVarP(&opts.format, "format", "f", "", "Report format (markdown, text, json)")
	f.StringVarP(&opts.out, "out", "o", "", "Write the report to a file instead of stdout")
	f.StringVar(&opts.artifact, "artifact", "", "Write the JSON analysis artifact to this path")
	f.StringVar(&opts.metricsFile, "metrics-file", "", "Write run metrics in Prometheus textfile format")
	f.StringVar(&opts.envFile, "env-file", "", "Dotenv file consulted for API keys")
	f.BoolVar(&opts.noCache, "no-cache", false, "Skip the result cache")
	f.BoolVar(&opts.fromEnv, "from-env", false, "Read build signals from the Buildkite environment")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Show each state and provider attempt")
	return cmd
}

func runAnalyze(cmd *cobra.Command, opts *analyzeOptions) error {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	level := cfg.Log.Level
	if opts.verbose {
		level = "debug"
	}
	logger, err := logging.New(stderr, level, cfg.Log.Format)
	if err != nil {
		return err
	}

	signals, err := buildSignals(cmd, opts)
	if err != nil {
		return err
	}

	rules, err := redact.Build(cfg.Security.ExtraPatterns, cfg.Security.RedactSecrets)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := resolveProviders(cfg, opts, logger)
	if err != nil {
		return err
	}

	store := openCache(ctx, cfg, logger)
	defer store.Close()

	outcome := analysis.Run(ctx, analysis.Params{
		RunID:   uuid.NewString(),
		Signals: signals,
		Collect: collector.Options{
			MaxLogLines:    cfg.Context.MaxLogLines,
			MaxLogBytes:    cfg.Context.MaxLogBytes,
			IncludeGitInfo: cfg.Context.IncludeGitInfo,
		},
		Redactor:      redact.New(rules...),
		Providers:     providers,
		Strategy:      analysis.Strategy(cfg.FallbackStrategy),
		Cache:         store,
		CacheTTL:      cfg.CacheTTLDuration(),
		MaxTokens:     cfg.MaxTokens,
		Temperature:   cfg.Temperature,
		RetryAttempts: cfg.Performance.RetryAttempts,
		BaseDelay:     cfg.RetryBaseDelay(),
		Timeout:       cfg.Timeout(),
		Logger:        logger,
		Emitter:       progressEmitter(stderr, opts.verbose),
	})

	format := report.Format(cfg.Output.Format)
	text, err := report.Render(outcome.Result, &outcome.Context, report.Options{
		Format:            format,
		Style:             report.StyleFor(outcome.Result, report.Style(cfg.Output.Style)),
		IncludeConfidence: cfg.Output.IncludeConfidence,
		IncludeRaw:        cfg.Output.IncludeRaw,
		Color:             format == report.FormatText && opts.out == "" && isTerminal(stdout),
		RunID:             outcome.RunID,
	})
	if err != nil {
		return err
	}

	if opts.out != "" {
		if err := fsutil.WriteAtomic(opts.out, []byte(text), 0o644); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		logger.Info().Str("path", opts.out).Msg("report written")
	} else {
		fmt.Fprint(stdout, text)
	}

	if path := artifactPath(cfg, opts); path != "" {
		if err := fsutil.WriteJSON(path, newArtifact(outcome), 0o644); err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("could not write analysis artifact")
		}
	}

	if opts.metricsFile != "" {
		rec := metrics.New()
		rec.Observe(outcome)
		if err := rec.WriteTextfile(opts.metricsFile); err != nil {
			logger.Warn().Err(err).Str("path", opts.metricsFile).Msg("could not write metrics")
		}
	}

	return nil
}

// loadConfig reads the config file and environment, then applies flag
// overrides and validates again.
func loadConfig(cmd *cobra.Command, opts *analyzeOptions) (*config.Config, error) {
	cfg, err := config.Load(configPath(cmd), lookupEnv)
	if err != nil {
		return nil, err
	}

	if opts.provider != "" {
		cfg.Provider = opts.provider
		cfg.Model = opts.model
		cfg.Providers = nil
	} else if opts.model != "" {
		cfg.Model = opts.model
		if len(cfg.Providers) > 0 {
			cfg.Providers[0].Model = opts.model
		}
	}
	if opts.format != "" {
		cfg.Output.Format = opts.format
	}
	if opts.noCache {
		cfg.EnableCaching = false
	}

	if errs := config.Validate(cfg); len(errs) > 0 {
		return nil, &config.Error{Errors: errs}
	}
	return cfg, nil
}

func buildSignals(cmd *cobra.Command, opts *analyzeOptions) (collector.Signals, error) {
	signals := collector.Signals{}
	if opts.fromEnv {
		signals = collector.SignalsFromEnv(environ())
	}

	if cmd.Flags().Changed("exit-code") {
		signals[collector.SignalExitCode] = strconv.Itoa(opts.exitCode)
	}
	if opts.command != "" {
		signals[collector.SignalCommand] = opts.command
	}
	if opts.step != "" {
		signals[collector.SignalStep] = opts.step
	}

	log, err := readLog(cmd.InOrStdin(), opts.logFile)
	if err != nil {
		return nil, err
	}
	if log != "" {
		signals[collector.SignalLog] = log
	}
	return signals, nil
}

// readLog reads the build log from path, or from in when path is "-" or
// empty and in is piped.
func readLog(in io.Reader, path string) (string, error) {
	var r io.Reader
	switch {
	case path == "-":
		r = in
	case path != "":
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		r = f
	case piped(in):
		r = in
	default:
		return "", nil
	}

	data, err := io.ReadAll(io.LimitReader(r, maxLogInput))
	if err != nil {
		return "", fmt.Errorf("reading log: %w", err)
	}
	return string(data), nil
}

func piped(in io.Reader) bool {
	if in == nil {
		return false
	}
	f, ok := in.(*os.File)
	if !ok {
		return true
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice == 0
}

// resolveProviders builds a client per configured provider. A missing key
// is not fatal: the provider fails its attempts and the run falls back.
func resolveProviders(cfg *config.Config, opts *analyzeOptions, logger zerolog.Logger) ([]analysis.ProviderConfig, error) {
	resolver, err := secrets.NewResolver(lookupEnv, opts.envFile)
	if err != nil {
		return nil, err
	}

	var out []analysis.ProviderConfig
	for _, pc := range cfg.ResolvedProviders() {
		name, err := llm.ParseProvider(pc.Name)
		if err != nil {
			return nil, err
		}
		plog := logger.With().Str("provider", string(name)).Logger()

		key, err := resolver.Resolve(name, pc.SecretRef)
		if err != nil {
			plog.Warn().Str("source", resolver.Source(name, pc.SecretRef)).Msg("no API key found")
		}

		client, err := llm.New(name, llm.Endpoint{BaseURL: pc.Endpoint, AllowedHosts: cfg.Security.AllowedHosts})
		if err != nil {
			return nil, err
		}

		if pc.Model != "" {
			if _, ok := llm.LookupModel(name, pc.Model); !ok {
				plog.Warn().Str("model", pc.Model).Msg("model not in catalog, using it as given")
			}
		}

		out = append(out, analysis.ProviderConfig{
			Name:     name,
			Model:    pc.Model,
			Priority: pc.Priority,
			APIKey:   key,
			Client:   llm.RateLimited(client, cfg.Performance.RequestsPerMinute),
		})
	}
	return out, nil
}

// openCache falls back to no caching when the backend cannot be opened.
// cacheOpenTimeout caps how long an unreachable backend can hold up a run.
var cacheOpenTimeout = 10 * time.Second

func openCache(ctx context.Context, cfg *config.Config, logger zerolog.Logger) cache.Backend {
	ctx, cancel := context.WithTimeout(ctx, min(cacheOpenTimeout, cfg.Timeout()))
	defer cancel()

	store, err := cache.Open(ctx, cache.Options{
		Enabled:     cfg.EnableCaching,
		Backend:     cfg.Cache.Backend,
		Dir:         cfg.Cache.Dir,
		DSN:         cfg.Cache.DSN,
		LockTimeout: cfg.LockTimeout(),
	})
	if err != nil {
		logger.Warn().Err(err).Str("backend", cfg.Cache.Backend).Msg("cache unavailable, continuing without it")
		return cache.Nop{}
	}
	return store
}

func artifactPath(cfg *config.Config, opts *analyzeOptions) string {
	if opts.artifact != "" {
		return opts.artifact
	}
	if cfg.Output.SaveArtifact {
		return cfg.Output.ArtifactPath
	}
	return ""
}

// artifact is the JSON record of a run kept next to the build.
type artifact struct {
	RunID       string                  `json:"run_id"`
	Fingerprint string                  `json:"fingerprint"`
	Degraded    bool                    `json:"degraded"`
	Context     models.SanitizedContext `json:"context"`
	Result      *models.AnalysisResult  `json:"result"`
	Trace       []analysis.State        `json:"trace"`
	Attempts    []analysis.Attempt      `json:"attempts"`
	DurationMS  int64                   `json:"duration_ms"`
	CreatedAt   time.Time               `json:"created_at"`
}

func newArtifact(o *analysis.Outcome) artifact {
	return artifact{
		RunID:       o.RunID,
		Fingerprint: o.Fingerprint,
		Degraded:    o.Result.Degraded(),
		Context:     o.Context,
		Result:      o.Result,
		Trace:       o.Trace,
		Attempts:    o.Attempts,
		DurationMS:  o.Duration.Milliseconds(),
		CreatedAt:   time.Now().UTC(),
	}
}
