package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log/slog"
	"os"
	"time"

	"inventory-tracker/lib/configutil"
	"inventory-tracker/lib/serviceutil"
	"inventory-tracker/lib/stockstore"
	"inventory-tracker/lib/telemetry"
	"inventory-tracker/pkg/migrations"
	"inventory-tracker/services/scanner"

	"github.com/lmittmann/tint"
)

func main() {
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)

	ctx := serviceutil.SignalContext()

	config, err := configutil.ReadConfig[scanner.Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}

	t, err := telemetry.SetupFromEnv(ctx, "tracker")
	if os.IsNotExist(err) {
		slog.Warn("no telemetry.json5 found, traces and metrics will not be exported")
	} else if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	} else {
		defer t.Shutdown(context.Background())
		telemetry.InstrumentPerfStats(ctx)
	}

	// confirm the schema before the first cycle, upgrading in place if needed
	db, err := migrations.OpenDB(config.Database)
	if err != nil {
		serviceutil.Fatal("failed to open database", err)
	}
	err = stockstore.NewStore(db).Initialize(ctx)
	db.Close()
	if err != nil {
		serviceutil.Fatal("failed to initialize database", err)
	}

	adapters, err := scanner.BuildAdapters(config)
	if err != nil {
		serviceutil.Fatal("failed to build site adapters", err)
	}
	if len(adapters) == 0 {
		serviceutil.Fatal("invalid config", errors.New("no sites configured"))
	}

	service := scanner.NewService(func() (*sql.DB, error) {
		return migrations.OpenDB(config.Database)
	}, adapters)

	scheduler := scanner.NewScheduler(config.ScanInterval(), config.SchedulerTick())
	scheduler.Run(ctx, func(ctx context.Context) {
		summary, err := service.RunCycle(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "scan cycle failed", "err", err)
			return
		}
		for _, adapter := range summary.Adapters {
			slog.InfoContext(ctx, "scan cycle complete",
				"site", adapter.Site,
				"discovered", adapter.Discovered,
				"persisted", adapter.Persisted,
				"skipped", adapter.Skipped,
			)
		}
	})
}
