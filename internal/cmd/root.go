package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"logsieve/internal/banner"
	"logsieve/internal/config"
	"logsieve/internal/enrichment"
	"logsieve/internal/filter"
	"logsieve/internal/ingestion"
	"logsieve/internal/parser/combined"
)

var rootCmd = &cobra.Command{
	Use:   "logsieve [patterns...]",
	Short: "Combined-format access-log ingestion",
	Long: `logsieve ingests Apache/Nginx combined-format access logs, parses each
line into a structured record, optionally enriches (GeoIP country,
user-agent decomposition) and anonymizes it, and writes the result as raw
lines, JSON, CSV, or rows in a relational table with per-day deduplication.

Input paths may be glob patterns and may point at gzip- or xz-compressed
files. Examples:

  logsieve --format=csv --output=out /var/log/nginx/access.log*
  logsieve --format=sql --database=access.db "/var/log/**/access.log.gz"`,
	Args:          cobra.MinimumNArgs(1),
	RunE:          run,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Validation and backend failures terminate
// with a non-zero status before any input is read.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.Flags()
	flags.String("format", "", "output format: raw[.gz|.xz], json[.gz|.xz], csv[.gz|.xz], or sql")
	flags.String("host", "", "host label for these logs, useful when logs of multiple hosts are aggregated")
	flags.String("output", "", "base output directory for per-input-file outputs (default: stdout)")
	flags.String("database", "", "database connection string for --format=sql")
	flags.String("geoip2-database", "", "path to the GeoIP2 country database")
	flags.String("anonymize", "", "anonymization mode: daily, weekly, monthly, or eternally")
	flags.String("salts-path", "", "directory for persisted anonymization salts")
	flags.Int("chunking", 0, "flush after this many buffered records, for low-memory runs")
	flags.Bool("anonymize-skip-user-agent", false, "leave the user agent out of the anonymization hash")
	flags.StringArray("ignore-host", nil, "remote host prefix to ignore, can be repeated")
	flags.StringArray("ignore-method", nil, "request method to ignore, can be repeated")
	flags.StringArray("ignore-path", nil, "request path prefix to ignore, can be repeated")
	flags.IntSlice("ignore-status", nil, "status code to ignore, can be repeated")
	flags.String("log-level", "", "log level: trace, debug, info, warn, error, or fatal")
	flags.String("log-file", "", "write log output to this file instead of stderr")
}

func run(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	applyFlags(cmd, cfg)
	cfg.InputPatterns = args

	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, cleanup, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	// The banner goes to stdout, which may be the data sink.
	if cfg.OutputDir != "" || cfg.BaseFormat() == "sql" {
		banner.Print()
	}

	mode, _ := enrichment.ParseMode(cfg.Anonymize)
	var anonymizer *enrichment.Anonymizer
	if mode != enrichment.ModeNone {
		salts := enrichment.NewSaltStore(cfg.SaltsPath, logger)
		anonymizer = enrichment.NewAnonymizer(mode, cfg.AnonymizeSkipUserAgent, salts)
		logger.Info("Anonymization enabled", logger.Args("mode", mode.String()))
	}

	var geoIP *enrichment.GeoIP
	if cfg.GeoIPDatabase != "" {
		geoIP, err = enrichment.NewGeoIP(cfg.GeoIPDatabase, cfg.GeoIPCacheSize, logger)
		if err != nil {
			logger.Warn("GeoIP database unavailable, continuing without country lookup",
				logger.Args("path", cfg.GeoIPDatabase, "error", err))
			geoIP = nil
		} else {
			defer geoIP.Close()
		}
	}

	parser := combined.NewParser(cfg.Host, geoIP, enrichment.NewUserAgentDecomposer(), anonymizer, logger)

	rules := filter.Rules{
		Hosts:    cfg.IgnoreHosts,
		Methods:  cfg.IgnoreMethods,
		Paths:    cfg.IgnorePaths,
		Statuses: cfg.IgnoreStatuses,
	}

	runner := ingestion.NewRunner(cfg, parser, rules, logger)
	if _, err := runner.Run(); err != nil {
		return err
	}
	return nil
}

// applyFlags overrides loaded configuration with explicitly set flags.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("format") {
		cfg.Format, _ = flags.GetString("format")
	}
	if flags.Changed("host") {
		cfg.Host, _ = flags.GetString("host")
	}
	if flags.Changed("output") {
		cfg.OutputDir, _ = flags.GetString("output")
	}
	if flags.Changed("database") {
		cfg.Database, _ = flags.GetString("database")
	}
	if flags.Changed("geoip2-database") {
		cfg.GeoIPDatabase, _ = flags.GetString("geoip2-database")
	}
	if flags.Changed("anonymize") {
		cfg.Anonymize, _ = flags.GetString("anonymize")
	}
	if flags.Changed("salts-path") {
		cfg.SaltsPath, _ = flags.GetString("salts-path")
	}
	if flags.Changed("chunking") {
		cfg.ChunkSize, _ = flags.GetInt("chunking")
	}
	if flags.Changed("anonymize-skip-user-agent") {
		cfg.AnonymizeSkipUserAgent, _ = flags.GetBool("anonymize-skip-user-agent")
	}
	if flags.Changed("ignore-host") {
		cfg.IgnoreHosts, _ = flags.GetStringArray("ignore-host")
	}
	if flags.Changed("ignore-method") {
		cfg.IgnoreMethods, _ = flags.GetStringArray("ignore-method")
	}
	if flags.Changed("ignore-path") {
		cfg.IgnorePaths, _ = flags.GetStringArray("ignore-path")
	}
	if flags.Changed("ignore-status") {
		cfg.IgnoreStatuses, _ = flags.GetIntSlice("ignore-status")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-file") {
		cfg.LogFile, _ = flags.GetString("log-file")
	}
}

// newLogger builds the application logger from LOG_LEVEL and LOG_FILE.
func newLogger(cfg *config.Config) (*pterm.Logger, func(), error) {
	var level pterm.LogLevel
	switch strings.ToLower(cfg.LogLevel) {
	case "trace":
		level = pterm.LogLevelTrace
	case "debug":
		level = pterm.LogLevelDebug
	case "info":
		level = pterm.LogLevelInfo
	case "warn", "warning":
		level = pterm.LogLevelWarn
	case "error":
		level = pterm.LogLevelError
	case "fatal":
		level = pterm.LogLevelFatal
	default:
		level = pterm.LogLevelWarn
	}

	logger := pterm.DefaultLogger.WithLevel(level)

	cleanup := func() {}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file %s: %w", cfg.LogFile, err)
		}
		logger = logger.WithWriter(f)
		cleanup = func() { f.Close() }
	} else {
		// Keep diagnostics off stdout; it may be the data sink.
		logger = logger.WithWriter(os.Stderr)
	}

	return logger, cleanup, nil
}
