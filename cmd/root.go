package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/johanlb/scapin-sub003/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "triage",
	Short: "Multi-pass triage decision core",
	Long:  "Analyzes perceived events (mail, chat, calendar) with tiered Claude models, escalating only when confidence or stakes warrant it, and arbitrates what auto-executes versus what is queued for review.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if cfg.ProfilePath != "" {
			profile, err := config.LoadProfile(cfg.ProfilePath)
			if err != nil {
				return fmt.Errorf("load profile: %w", err)
			}
			profile.Apply(cfg)
		}

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
