package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yuya-takeyama/strict-fanout-copy/internal/config"
	"github.com/yuya-takeyama/strict-fanout-copy/internal/logging"
	"github.com/yuya-takeyama/strict-fanout-copy/internal/metrics"
	"github.com/yuya-takeyama/strict-fanout-copy/pkg/executor"
	"github.com/yuya-takeyama/strict-fanout-copy/pkg/fanout"
	"github.com/yuya-takeyama/strict-fanout-copy/pkg/logger"
	"github.com/yuya-takeyama/strict-fanout-copy/pkg/report"
	"github.com/yuya-takeyama/strict-fanout-copy/pkg/s3client"
)

const appName = "strict-fanout-copy"

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
	builtBy = "unknown"
)

var (
	configFile      string
	dryRun          bool
	noVerify        bool
	noSync          bool
	excludes        []string
	quiet           bool
	logLevel        string
	hashConcurrency int
	reportTarget    string
	reportFormat    string
	resultJSONFile  string
	metricsFile     string
	profile         string
	region          string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   appName + " <SourceDir> <DestDir>...",
		Short: "Copy a directory tree to several destinations and verify every copy",
		Long: `strict-fanout-copy reads each source file once and writes it to every
destination concurrently, then re-hashes the source and all copies with
xxHash64 and reports any file whose copies differ.`,
		Version:      fmt.Sprintf("%s (commit: %s, built at: %s by %s)", version, commit, date, builtBy),
		Args:         cobra.ArbitraryArgs,
		RunE:         run,
		SilenceUsage: true,
	}

	flags := rootCmd.Flags()
	flags.StringVar(&configFile, "config", "", "Path to a YAML job file")
	flags.BoolVar(&dryRun, "dryrun", false, "Shows the files that would be copied without copying")
	flags.BoolVar(&noVerify, "no-verify", false, "Skip verification after the copy")
	flags.BoolVar(&noSync, "no-sync", false, "Do not fsync destination files")
	flags.StringSliceVar(&excludes, "exclude", nil, "Exclude patterns (multiple allowed)")
	flags.BoolVar(&quiet, "quiet", false, "Suppress non-error output")
	flags.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flags.IntVar(&hashConcurrency, "hash-concurrency", 0, "Hashes running at once per file (0 for one per replica)")
	flags.StringVar(&reportTarget, "report", "", "Write the consistency report to a path or s3:// URI")
	flags.StringVar(&reportFormat, "report-format", "csv", "Report format (csv, json)")
	flags.StringVar(&resultJSONFile, "result-json-file", "", "Path to output run result as JSON file")
	flags.StringVar(&metricsFile, "metrics-file", "", "Path to write Prometheus metrics in textfile format")
	flags.StringVar(&profile, "profile", "", "AWS profile to use for s3:// reports")
	flags.StringVar(&region, "region", "", "AWS region (uses default if not specified)")

	return rootCmd
}

// loadConfig merges the job file, positional arguments and explicitly set
// flags, in that order of precedence from lowest to highest.
func loadConfig(cmd *cobra.Command, args []string) (config.Config, error) {
	cfg := config.Default()
	if configFile != "" {
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			return cfg, err
		}
	}

	if len(args) > 0 {
		cfg.Source = args[0]
	}
	if len(args) > 1 {
		cfg.Destinations = args[1:]
	}

	flags := cmd.Flags()
	if flags.Changed("dryrun") {
		cfg.DryRun = dryRun
	}
	if flags.Changed("no-verify") {
		cfg.Verify = !noVerify
	}
	if flags.Changed("no-sync") {
		cfg.NoSync = noSync
	}
	if flags.Changed("exclude") {
		cfg.Excludes = excludes
	}
	if flags.Changed("quiet") {
		cfg.Quiet = quiet
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("hash-concurrency") {
		cfg.HashConcurrency = hashConcurrency
	}
	if flags.Changed("report") {
		cfg.Report = reportTarget
	}
	if flags.Changed("report-format") {
		cfg.ReportFormat = reportFormat
	}
	if flags.Changed("result-json-file") {
		cfg.ResultJSONFile = resultJSONFile
	}
	if flags.Changed("metrics-file") {
		cfg.MetricsFile = metricsFile
	}
	if flags.Changed("profile") {
		cfg.Profile = profile
	}
	if flags.Changed("region") {
		cfg.Region = region
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runID := uuid.NewString()
	slogger := logging.New(appName, cfg.LogLevel, os.Stderr).With("run", runID)
	slogger.Info("starting", "source", cfg.Source, "destinations", cfg.Destinations, "dryrun", cfg.DryRun)

	var events logger.Logger = &logger.VerboseLogger{Logger: slogger}
	if cfg.Quiet {
		events = &logger.QuietLogger{Out: os.Stderr}
	}

	var pipelineOpts []fanout.Option
	if cfg.NoSync {
		pipelineOpts = append(pipelineOpts, fanout.WithoutSync())
	}

	rec := metrics.New()
	exec := executor.NewExecutor(events,
		executor.WithMetrics(rec),
		executor.WithPipeline(fanout.New(pipelineOpts...)),
		executor.WithHashConcurrency(cfg.HashConcurrency),
		executor.WithExcludes(cfg.Excludes),
	)

	start := time.Now()
	result := newRunResult(runID, cfg)
	summary := logging.Summary{RunID: runID, Destinations: len(cfg.Destinations)}

	runErr := execute(ctx, cfg, exec, slogger, result, &summary)

	summary.Duration = time.Since(start)
	summary.Failed = runErr != nil
	result.finish(runErr)

	if cfg.ResultJSONFile != "" {
		if err := writeRunResult(cfg.ResultJSONFile, result); err != nil {
			return fmt.Errorf("failed to write result JSON: %w", err)
		}
	}
	if cfg.MetricsFile != "" && !cfg.DryRun {
		if err := rec.WriteTextfile(cfg.MetricsFile); err != nil {
			slogger.Error("failed to write metrics", "error", err)
		}
	}
	if !cfg.Quiet {
		logging.PrintSummary(os.Stdout, summary)
	}

	return runErr
}

// execute runs the copy phase, then verification and the report export.
func execute(ctx context.Context, cfg config.Config, exec *executor.Executor, slogger *slog.Logger, result *RunResult, summary *logging.Summary) error {
	if cfg.DryRun {
		planned, err := exec.DryRun(cfg.Source, cfg.Destinations)
		if err != nil {
			return fmt.Errorf("failed to plan copy: %w", err)
		}
		summary.Files = len(planned.Files)
		summary.BytesCopied = planned.Bytes
		result.Summary.Files = len(planned.Files)
		result.Summary.Bytes = planned.Bytes
		return nil
	}

	printer := newProgressPrinter(os.Stdout, cfg.Quiet)

	rx, copyFuture := exec.StartCopy(ctx, cfg.Source, cfg.Destinations)
	printer.Follow(ctx, logger.PhaseCopy, rx)
	copied, err := copyFuture.Wait(ctx)
	if err != nil {
		result.addError(logger.PhaseCopy, err)
		return fmt.Errorf("copy failed: %w", err)
	}
	summary.Files = len(copied.Files)
	summary.BytesCopied = copied.Bytes
	result.Summary.Files = len(copied.Files)
	result.Summary.Bytes = copied.Bytes

	if !cfg.Verify {
		return nil
	}

	rx, verifyFuture := exec.StartVerify(ctx, cfg.Source, cfg.Destinations, copied.Files)
	printer.Follow(ctx, logger.PhaseVerify, rx)
	rep, err := verifyFuture.Wait(ctx)
	if err != nil {
		result.addError(logger.PhaseVerify, err)
		return fmt.Errorf("verification failed: %w", err)
	}
	summary.Verified = rep.TotalFiles()
	summary.Inconsistent = rep.CountErrors()
	result.addReport(rep)

	if cfg.Report != "" {
		if err := exportReport(ctx, cfg, rep, result.RunID); err != nil {
			result.addError("report", err)
			return err
		}
		slogger.Info("report written", "target", cfg.Report)
	}

	if n := rep.CountErrors(); n > 0 {
		return fmt.Errorf("%d of %d files are inconsistent", n, rep.TotalFiles())
	}
	return nil
}

func exportReport(ctx context.Context, cfg config.Config, rep *report.Report, runID string) error {
	format, err := report.ParseFormat(cfg.ReportFormat)
	if err != nil {
		return err
	}

	var client s3client.Client
	if s3client.IsS3URI(cfg.Report) {
		if client, err = newS3Client(ctx, cfg); err != nil {
			return err
		}
	}

	meta := &report.Meta{RunID: runID, Source: cfg.Source, Destinations: cfg.Destinations}
	if err := report.Export(ctx, client, cfg.Report, rep, format, meta); err != nil {
		return fmt.Errorf("failed to export report: %w", err)
	}
	return nil
}

func newS3Client(ctx context.Context, cfg config.Config) (s3client.Client, error) {
	var configOpts []func(*awsconfig.LoadOptions) error
	if cfg.Profile != "" {
		configOpts = append(configOpts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.Region != "" {
		configOpts = append(configOpts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return s3client.NewRetryClient(s3client.NewAWSClient(awsCfg)), nil
}

// fileOf returns the relative path of a failed file, if err carries one.
func fileOf(err error) string {
	var fileErr *executor.FileError
	if errors.As(err, &fileErr) {
		return fileErr.RelPath
	}
	return ""
}
