// Package scanner runs scan cycles: every configured storefront adapter
// in a fixed order, one shared timestamp, results appended to the
// snapshot log.
package scanner

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"inventory-tracker/lib/scrape"
	"inventory-tracker/lib/stockstore"
	"inventory-tracker/lib/timezone"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/scanner")

// OpenStore opens the snapshot log database. each cycle opens its own
// connection and closes it when the cycle ends, nothing else touches
// the database in between.
type OpenStore func() (*sql.DB, error)

type Service struct {
	openStore OpenStore
	adapters  []scrape.Adapter
}

func NewService(openStore OpenStore, adapters []scrape.Adapter) Service {
	return Service{
		openStore: openStore,
		adapters:  adapters,
	}
}

type AdapterSummary struct {
	Site       string
	Discovered int
	Persisted  int
	Skipped    int
}

// Summary is one cycle's outcome. per-item failures never abort a
// cycle, they only show up here as skip counts.
type Summary struct {
	Time     time.Time
	Adapters []AdapterSummary
}

// RunCycle scans every adapter once under a single captured run time.
// adapter errors (pagination failures) end that adapter's contribution
// only. the cycle itself fails only when the store cannot be opened,
// initialized, or written.
func (s Service) RunCycle(ctx context.Context) (Summary, error) {
	ctx, span := tracer.Start(ctx, "RunCycle")
	defer span.End()

	runTime := timezone.Now()
	summary := Summary{Time: runTime}

	slog.InfoContext(ctx, "starting inventory scan", "run_time", timezone.Format(runTime))

	db, err := s.openStore()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return summary, fmt.Errorf("open snapshot log: %w", err)
	}
	defer db.Close()

	store := stockstore.NewStore(db)
	err = store.Initialize(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return summary, fmt.Errorf("initialize snapshot log: %w", err)
	}

	for _, adapter := range s.adapters {
		result, err := adapter.Scan(ctx)
		if err != nil {
			// discovery ended early for this adapter, whatever it
			// found up to that point still counts
			span.RecordError(err)
			slog.ErrorContext(ctx, "adapter scan ended early", "site", adapter.Site(), "err", err)
		}

		persisted := 0
		for _, snapshot := range result.Snapshots {
			snapshot.Time = runTime
			err := store.Append(ctx, snapshot)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return summary, fmt.Errorf("append snapshot for %s: %w", adapter.Site(), err)
			}
			persisted++
		}

		summary.Adapters = append(summary.Adapters, AdapterSummary{
			Site:       adapter.Site(),
			Discovered: result.Discovered,
			Persisted:  persisted,
			Skipped:    result.Skipped,
		})
		slog.InfoContext(ctx, "adapter scan complete",
			"site", adapter.Site(),
			"discovered", result.Discovered,
			"persisted", persisted,
			"skipped", result.Skipped,
		)
	}

	span.SetAttributes(attribute.Int("adapters", len(summary.Adapters)))
	slog.InfoContext(ctx, "scan complete", "run_time", timezone.Format(runTime))
	return summary, nil
}
