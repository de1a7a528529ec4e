package main

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opengov-labs/govassist/internal/store"
)

var cleanupHistoryDays int

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove expired rate-limit rows and old query history",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, cfg.Store.SQLitePath)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		limits, err := st.DeleteExpiredLimits(ctx)
		if err != nil {
			return err
		}

		queries, err := st.DeleteOldQueries(ctx, time.Duration(cleanupHistoryDays)*24*time.Hour)
		if err != nil {
			return err
		}

		zap.L().Info("cleanup complete",
			zap.Int64("expired_limits", limits),
			zap.Int64("old_queries", queries),
			zap.Int("history_days", cleanupHistoryDays),
		)
		return nil
	},
}

func init() {
	cleanupCmd.Flags().IntVar(&cleanupHistoryDays, "history-days", 30, "delete query history older than this many days")
	rootCmd.AddCommand(cleanupCmd)
}
