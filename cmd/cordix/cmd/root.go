package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/adrennan/cordix/pkg/config"
	"github.com/adrennan/cordix/pkg/telemetry"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "cordix",
	Short: "cordix - a persistent on-disk B-tree key/value index",
	Long: `cordix manages a fixed-block B-tree index file: create it,
insert and search key/value pairs, bulk-load from CSV, and print or
extract its contents in ascending key order.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		if config.ConfigExists(configPath) {
			loaded, err := config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			cfg = loaded
		} else {
			cfg = config.DefaultConfig()
		}

		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: parseLevel(cfg.LogLevel),
		}))
		correlationID = telemetry.NewCorrelationID()
		metrics = telemetry.NewMetrics()
		return nil
	},
}

// cfg, logger, metrics, and correlationID are set once per process in
// PersistentPreRunE and read by every subcommand.
var (
	cfg           *config.Config
	logger        *slog.Logger
	metrics       *telemetry.Metrics
	correlationID string
)

// Execute adds all child commands to the root command and runs it.
// Called by main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", config.GetDefaultConfigPath(), "Path to a cordix config file")
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// logInvocation emits the one structured log line required of every
// subcommand: operation, correlation id, duration, status, and the
// index file it operated on. It never affects the plain-text CLI
// output spec-mandated messages carry on stdout/stderr.
func logInvocation(operation, indexFile string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	attrs := []any{
		"operation", operation,
		"correlation_id", correlationID,
		"duration_ms", time.Since(start).Milliseconds(),
		"status", status,
		"index_file", indexFile,
	}
	if err != nil {
		attrs = append(attrs, "error", err.Error())
	}
	logger.Info("cordix invocation", attrs...)
}

// fail prints a mandated plain-text diagnostic to stdout (matching the
// distilled CLI's own stream choice) and exits non-zero, per spec
// section 6's exit code policy.
func fail(message string) {
	fmt.Println(message)
	os.Exit(1)
}
