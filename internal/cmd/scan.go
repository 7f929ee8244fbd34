package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/kosinter/kosinter/internal/config"
	"github.com/kosinter/kosinter/internal/core"
	"github.com/kosinter/kosinter/internal/core/checker"
	"github.com/kosinter/kosinter/internal/core/engine"
	"github.com/kosinter/kosinter/internal/core/registry"
	"github.com/kosinter/kosinter/internal/observability"
	"github.com/kosinter/kosinter/internal/output"
)

var scanCmd = &cobra.Command{
	Use:   "scan [handle...]",
	Short: "Scan handles and their variants across platforms",
	Long: `Scan checks each handle, plus its split and joined variants, on every
registered platform. Without arguments it prompts for handles interactively.`,
	Example: `  kosinter scan john.doe
  kosinter scan --platforms github,reddit --output table alice
  kosinter scan --handles-file handles.txt --output json`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	registerScanFlags(scanCmd)
}

func registerScanFlags(cmd *cobra.Command) {
	cmd.Flags().String("output", "console", "Output format: console, table, json, markdown")
	cmd.Flags().StringSlice("platforms", nil, "Platforms to scan (default all)")
	cmd.Flags().Bool("no-variants", false, "Scan only the handle as given")
	cmd.Flags().Int("workers", 0, "Concurrent probes (default from config)")
	cmd.Flags().Duration("timeout", 0, "Per-request timeout (default from config)")
	cmd.Flags().Int("retries", 0, "Extra attempts after a transport failure")
	cmd.Flags().Bool("validate-handles", false, "Skip probes for spellings a platform does not allow")
	cmd.Flags().Bool("no-color", false, "Disable colored console output")
	cmd.Flags().Bool("no-banner", false, "Do not print the banner in interactive mode")
	cmd.Flags().String("handles-file", "", "Read handles from file (one per line, '-' for stdin)")
}

func runScan(cmd *cobra.Command, args []string) error {
	formatValue, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	format, err := output.ParseFormat(formatValue)
	if err != nil {
		return withExitCode(ExitUsage, err)
	}

	handlesFile, err := cmd.Flags().GetString("handles-file")
	if err != nil {
		return err
	}
	handles, err := resolveHandles(args, handlesFile)
	if err != nil {
		return withExitCode(ExitUsage, err)
	}

	noColor, err := cmd.Flags().GetBool("no-color")
	if err != nil {
		return err
	}
	noBanner, err := cmd.Flags().GetBool("no-banner")
	if err != nil {
		return err
	}

	overrides, err := flagOverrides(cmd)
	if err != nil {
		return err
	}
	cfg, err := config.Load(viper.GetViper(), overrides)
	if err != nil {
		return withExitCode(ExitConfigInvalid, err)
	}
	if !verbose {
		if err := observability.SetLevel(cfg.Logging.Level); err != nil {
			return withExitCode(ExitConfigInvalid, err)
		}
	}

	orchestrator, err := buildOrchestrator(cfg, observability.CLILogger)
	if err != nil {
		if errors.Is(err, registry.ErrUnknownPlatform) {
			return withExitCode(ExitUsage, err)
		}
		return err
	}

	opts := output.Options{NoColor: noColor, Names: platformNames(orchestrator.Registry)}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	if len(handles) == 0 {
		if !noBanner && format == output.FormatConsole {
			output.PrintBanner(out, noColor)
		}
		formatter := output.NewFormatter(format, opts)
		return runInteractive(ctx, cmd.InOrStdin(), out, func(ctx context.Context, handle string) (string, error) {
			tables, err := scanHandles(ctx, orchestrator, []string{handle})
			if len(tables) == 0 {
				return "", err
			}
			rendered, renderErr := formatter.FormatTable(tables[0])
			if renderErr != nil {
				return "", renderErr
			}
			return rendered, err
		})
	}

	tables, scanErr := scanHandles(ctx, orchestrator, handles)
	rendered, err := output.FormatTableList(format, opts, tables)
	if err != nil {
		return err
	}
	if rendered != "" {
		fmt.Fprintln(out, rendered)
	}
	return scanErr
}

// scanHandles scans each handle in turn. It stops at the first error and
// returns the tables completed so far, including a cancelled scan's table.
func scanHandles(ctx context.Context, orchestrator *engine.Orchestrator, handles []string) ([]*core.ResultTable, error) {
	tables := make([]*core.ResultTable, 0, len(handles))
	for _, handle := range handles {
		startedAt := time.Now()
		table, err := orchestrator.Scan(ctx, handle)
		if table != nil {
			tables = append(tables, table)
			logThroughput(table.Len(), startedAt)
		}
		if err != nil {
			return tables, fmt.Errorf("scan %q: %w", handle, err)
		}
	}
	return tables, nil
}

// flagOverrides turns explicitly set flags into config runtime overrides.
func flagOverrides(cmd *cobra.Command) (map[string]any, error) {
	overrides := map[string]any{}
	httpOverrides := map[string]any{}
	scanOverrides := map[string]any{}
	flags := cmd.Flags()

	if flags.Changed("workers") {
		workers, err := flags.GetInt("workers")
		if err != nil {
			return nil, err
		}
		overrides["workers"] = workers
	}
	if flags.Changed("timeout") {
		timeout, err := flags.GetDuration("timeout")
		if err != nil {
			return nil, err
		}
		httpOverrides["timeout"] = timeout.String()
	}
	if flags.Changed("retries") {
		retries, err := flags.GetInt("retries")
		if err != nil {
			return nil, err
		}
		httpOverrides["retries"] = retries
	}
	if flags.Changed("platforms") {
		platforms, err := flags.GetStringSlice("platforms")
		if err != nil {
			return nil, err
		}
		scanOverrides["platforms"] = platforms
	}
	if flags.Changed("no-variants") {
		noVariants, err := flags.GetBool("no-variants")
		if err != nil {
			return nil, err
		}
		scanOverrides["variants"] = !noVariants
	}
	if flags.Changed("validate-handles") {
		validate, err := flags.GetBool("validate-handles")
		if err != nil {
			return nil, err
		}
		scanOverrides["validate_handles"] = validate
	}

	if len(httpOverrides) > 0 {
		overrides["http"] = httpOverrides
	}
	if len(scanOverrides) > 0 {
		overrides["scan"] = scanOverrides
	}
	return overrides, nil
}

func buildOrchestrator(cfg *config.Config, logger *zap.Logger) (*engine.Orchestrator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	reg, err := registry.Default()
	if err != nil {
		return nil, fmt.Errorf("load platform registry: %w", err)
	}
	reg, err = reg.Select(cfg.Scan.Platforms)
	if err != nil {
		return nil, err
	}

	limiter := engine.NewMemoryRateLimiter()
	limiter.ApplyOverrides(cfg.RateLimits)
	limiter.ApplySafetyMargin(cfg.RateLimitMargin)

	prober := &checker.Prober{
		Client:       &http.Client{},
		Timeout:      cfg.HTTP.Timeout,
		UserAgent:    cfg.HTTP.UserAgent,
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
		Retries:      cfg.HTTP.Retries,
		RetryBackoff: cfg.HTTP.RetryBackoff,
		Limiter:      limiter,
		Hosts:        checker.NewHostLimiter(cfg.HTTP.PerHost),
		Logger:       logger,
	}

	classifier := checker.NewClassifier(prober, reg)
	classifier.ValidateHandles = cfg.Scan.ValidateHandles
	classifier.ToolVersion = toolVersion()
	if cfg.HTTP.AcceptLanguage != "" {
		for _, strategy := range classifier.Strategies {
			if html, ok := strategy.(*checker.ConservativeHTMLStrategy); ok {
				html.AcceptLanguage = cfg.HTTP.AcceptLanguage
			}
		}
	}

	return &engine.Orchestrator{
		Classifier: classifier,
		Registry:   reg,
		Workers:    cfg.Workers,
		NoVariants: !cfg.Scan.Variants,
		OnResult: func(result *core.CheckResult) {
			logger.Debug("Check resolved",
				zap.String("platform", result.Platform),
				zap.String("handle", result.Handle),
				zap.Stringer("verdict", result.Verdict),
				zap.String("reason", string(result.Reason)),
				zap.Int("status", result.StatusCode),
				zap.Int("attempts", result.Provenance.Attempts),
			)
		},
	}, nil
}

func platformNames(reg *registry.Registry) map[string]string {
	names := make(map[string]string, reg.Len())
	for _, p := range reg.All() {
		names[p.ID] = p.Name
	}
	return names
}

func logThroughput(count int, startedAt time.Time) {
	if count <= 0 {
		return
	}
	elapsed := time.Since(startedAt)
	if elapsed <= 0 {
		return
	}
	rate := float64(count) / elapsed.Seconds()
	observability.CLILogger.Info(
		"Scan throughput",
		zap.Int("checks", count),
		zap.Duration("elapsed", elapsed),
		zap.Float64("rate_per_sec", rate),
	)
}
