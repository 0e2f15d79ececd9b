package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pmackar/aireshark/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "aireshark",
	Short: "PE acquisition tracker for the HVAC industry",
	Long:  "Scrapes trade press, RSS feeds, web search, Gmail alerts, and platform brand pages; classifies and extracts acquisitions via Claude; reconciles them into the tracking database.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
