package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mimir-aip/microfinance-go/pkg/config"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

var (
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:           "microfinance",
	Short:         "Microfinance scoring and compliance service",
	Long:          `Credit scoring, KYC/AML checks, behavioral analysis, ESG tracking and loan recommendations behind an HTTP API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format, text or json (overrides LOG_FORMAT)")
	rootCmd.AddCommand(serveCmd, demoCmd, versionCmd)
}

// loadConfig reads the environment, applies flag overrides and sets up
// logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	if err := config.InitLogging(cfg.LogLevel, cfg.LogFormat); err != nil {
		return nil, err
	}
	return cfg, nil
}
