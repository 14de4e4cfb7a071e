package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/confluo/internal/app"
	"github.com/ternarybob/confluo/internal/common"
)

var (
	// Command-line flags
	configFiles []string // Multiple --config flags supported

	// Global state
	config      *common.Config
	logger      arbor.ILogger
	application *app.App
)

var rootCmd = &cobra.Command{
	Use:   "confluo",
	Short: "Theme and leader momentum screener with model-assisted analysis",
	Long: `Confluo intersects thematic stock groups with daily leader lists
(price gainers, volume, turnover) and discusses the surviving candidates
with a language model, grounded on freshly aggregated news.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringArrayVarP(&configFiles, "config", "c", nil,
		"Configuration file path (can be specified multiple times, later files override earlier ones)")

	rootCmd.AddCommand(screenCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(marketCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(versionCmd)
}

// setup runs the startup sequence (REQUIRED ORDER):
// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
// 2. Initialize logger
// 3. Print banner
// 4. Initialize application
func setup(cmd *cobra.Command, args []string) error {
	if cmd == versionCmd {
		return nil
	}

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("confluo.toml"); err == nil {
			configFiles = append(configFiles, "confluo.toml")
		} else if _, err := os.Stat("deployments/local/confluo.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/confluo.toml")
		}
	}

	var err error
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		return fmt.Errorf("failed to load configuration %v: %w", configFiles, err)
	}

	logger = common.InitLogger(config)
	common.PrintBanner(os.Stderr, config, logger)

	logger.Debug().
		Strs("config_files", configFiles).
		Str("log_level", config.Logging.Level).
		Strs("markets", config.Screen.Markets).
		Msg("Resolved configuration")

	application, err = app.New(config, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return nil
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			path := common.WriteCrashReport(r, debug.Stack())
			fmt.Fprintf(os.Stderr, "confluo crashed: %v (report: %s)\n", r, path)
			os.Exit(2)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if application != nil {
		if cerr := application.Close(); cerr != nil {
			logger.Warn().Err(cerr).Msg("Failed to close application")
		}
	}
	if err != nil {
		os.Exit(1)
	}
}
