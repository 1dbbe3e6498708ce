package main

import (
	"context"
	"fmt"
	"os"

	"weighline/internal/xpkg/config"
	"weighline/internal/xpkg/logger"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "weighline",
	Short: "Weighing station for pharmaceutical production",
	Long: `weighline keeps the weighing station's order list, the excipient
totals derived from it and the cleaning timers of the mixing bins.

Available subcommands:
  serve    - Run the weighing HTTP service and the bin ticker
  notifier - Print bin notifications published by serve`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config-path", "config.yaml", "path for config yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: DEBUG, INFO, WARN, ERROR (default log.level from config)")

	rootCmd.AddCommand(serveCmd, notifierCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger tagged with the subcommand name.
// --log-level wins over the config file and WEIGHLINE_LOG_LEVEL.
func newLogger(service string) (logger.Logger, error) {
	level := logLevel
	if level == "" {
		level = config.LogLevel(configPath)
	}
	mylog, err := logger.New(level)
	if err != nil {
		return nil, err
	}
	return mylog.With("service", service), nil
}
