package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/fr4nk3nst1ner/compsleuth/internal/config"
	"github.com/fr4nk3nst1ner/compsleuth/internal/logging"
	"github.com/fr4nk3nst1ner/compsleuth/internal/ui"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "compsleuth",
	Short: "Collect and summarize levels.fyi compensation listings",
	Long: "compsleuth crawls a paginated levels.fyi salary listing, keeps every new record in a timestamped CSV " +
		"(and optionally SQLite), and reports compensation statistics from the collected data.",
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		ui.PrintBanner(silence || noBanner)
	},
}

var (
	configPath string
	debug      bool
	silence    bool
	noBanner   bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to the YAML config file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&silence, "silence", false, "Silence the banner")
	rootCmd.PersistentFlags().BoolVar(&noBanner, "nobanner", false, "Silence the banner (alias for --silence)")
}

// loadConfig reads the config file named by --config and applies --debug
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if debug {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	return logging.New(os.Stderr, cfg.Logging.Level)
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
