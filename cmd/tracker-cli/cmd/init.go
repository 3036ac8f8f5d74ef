package cmd

import (
	"context"
	"log/slog"

	"inventory-tracker/lib/configutil"
	"inventory-tracker/lib/serviceutil"
	"inventory-tracker/lib/stockstore"
	"inventory-tracker/pkg/migrations"
	"inventory-tracker/services/scanner"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the inventory log database, upgrading an existing one in place if needed.",
	Run: func(command *cobra.Command, args []string) {
		ctx := context.Background()

		config, err := configutil.ReadConfig[scanner.Config](configPath)
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}

		db, err := migrations.OpenDB(config.Database)
		if err != nil {
			serviceutil.Fatal("failed to open database", err)
		}
		defer db.Close()

		err = stockstore.NewStore(db).Initialize(ctx)
		if err != nil {
			serviceutil.Fatal("failed to initialize database", err)
		}

		slog.Info("database ready", "path", config.Database)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
