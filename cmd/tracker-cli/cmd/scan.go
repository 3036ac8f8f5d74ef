package cmd

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"inventory-tracker/lib/configutil"
	"inventory-tracker/lib/serviceutil"
	"inventory-tracker/pkg/migrations"
	"inventory-tracker/services/scanner"

	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a single scan cycle across all configured sites, then exit.",
	Run: func(command *cobra.Command, args []string) {
		ctx := context.Background()

		config, err := configutil.ReadConfig[scanner.Config](configPath)
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}

		adapters, err := scanner.BuildAdapters(config)
		if err != nil {
			serviceutil.Fatal("failed to build site adapters", err)
		}

		service := scanner.NewService(func() (*sql.DB, error) {
			return migrations.OpenDB(config.Database)
		}, adapters)

		start := time.Now()
		summary, err := service.RunCycle(ctx)
		if err != nil {
			serviceutil.Fatal("scan cycle failed", err)
		}

		for _, adapter := range summary.Adapters {
			slog.Info("site scanned",
				"site", adapter.Site,
				"discovered", adapter.Discovered,
				"persisted", adapter.Persisted,
				"skipped", adapter.Skipped,
			)
		}
		slog.Info("scan time", "seconds", time.Since(start).Seconds())
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}
