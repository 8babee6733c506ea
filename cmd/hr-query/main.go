// cmd/hr-query/main.go
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hr-query-engine/internal/app"
	"hr-query-engine/internal/common/config"
	"hr-query-engine/internal/common/logger"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "hr-query",
	Short: "Answer natural-language questions about employee data",
	Long: `hr-query classifies a question, builds an aggregation plan and answers it
from the configured employee data stores.

Available subcommands:
  serve  - Run the HTTP API (and the Zeebe worker when enabled)
  ask    - Answer one question and print the result
  mcp    - Serve the engine as MCP tools over stdio
  warmup - Prime the result cache with common questions`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config.yaml (default: ./configs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override logging.level")

	rootCmd.AddCommand(serveCmd, askCmd, mcpCmd, warmupCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

// bootstrap loads configuration and builds the engine. When quiet is set all
// log output goes to stderr at warn level or above, keeping stdout clean.
func bootstrap(ctx context.Context, quiet bool) (*app.App, *zap.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("config load failed: %w", err)
	}

	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	output := cfg.Logging.Output
	if quiet {
		output = "stderr"
		if logLevel == "" {
			level = "warn"
		}
	}

	zapLog := logger.New(level, cfg.Logging.Format, output)

	a, err := app.Build(ctx, cfg, zapLog)
	if err != nil {
		zapLog.Error("engine bootstrap failed", zap.Error(err))
		_ = zapLog.Sync()
		return nil, nil, err
	}
	return a, zapLog, nil
}
