// Command cropsim simulates crop growth and BBCH development stages, either
// as batch runs from a scenario or as an HTTP service.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/talgya/phenosim/internal/crop"
)

var (
	logLevel string

	rootCmd = &cobra.Command{
		Use:   "cropsim",
		Short: "Crop growth and BBCH stage simulator",
		Long: `cropsim runs a day-stepped crop growth model, classifies the development
stage onto BBCH codes and forecasts harvest timing and yield.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(logLevel)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", envOrDefault("PHENOSIM_LOG_LEVEL", "info"),
		"log level: debug, info, warn or error")

	rootCmd.AddCommand(runCmd, serveCmd, stagesCmd, cropsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return fmt.Errorf("invalid log level %q", level)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: lvl,
	}))
	slog.SetDefault(logger)
	return nil
}

func loadTable() (*crop.Table, error) {
	table, err := crop.Default()
	if err != nil {
		return nil, fmt.Errorf("load crop table: %w", err)
	}
	return table, nil
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}
