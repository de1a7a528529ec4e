package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opengov-labs/govassist/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "govassist",
	Short: "AI assistant for Polkadot OpenGov proposals",
	Long:  "Extracts proposal references from natural language, fetches proposal data from Polkassembly, and answers questions about governance proposals via Claude.",
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
