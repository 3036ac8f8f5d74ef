package stockstore

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"inventory-tracker/lib/telemetry"
	"inventory-tracker/lib/timezone"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	sqlite, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sqlite.Close() })
	return sqlite
}

func scanTime(d time.Duration) time.Time {
	return time.Date(2024, time.March, 4, 9, 0, 0, 0, timezone.Location).Add(d)
}

func TestInitializeIdempotent(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:stockstore")
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	store := NewStore(openTestDB(t))
	require.NoError(t, store.Initialize(ctx))
	require.NoError(t, store.Initialize(ctx))

	err := store.Append(ctx, Snapshot{
		Time:       scanTime(0),
		Site:       "cpapoutlet",
		Name:       "AirSense 11",
		SKU:        "39001",
		URL:        "https://www.cpapoutlet.ca/products/airsense-11",
		VariantID:  "default",
		StockCount: 4,
	})
	require.NoError(t, err)

	rows, err := store.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

// a database created before the site column existed must come out of
// Initialize with the column added and every old row backfilled
func TestInitializeBackfillsSiteColumn(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:stockstore")
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	sqlite := openTestDB(t)
	_, err := sqlite.Exec(`
		CREATE TABLE inventory_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp DATETIME,
			product_name TEXT,
			sku TEXT,
			product_url TEXT,
			variant_id TEXT,
			stock_count INTEGER
		)
	`)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = sqlite.Exec(`
			INSERT INTO inventory_log (timestamp, product_name, sku, product_url, variant_id, stock_count)
			VALUES (?, ?, ?, ?, ?, ?)
		`, timezone.Format(scanTime(time.Duration(i)*time.Hour)), "AirSense 11", "39001",
			"https://www.cpapoutlet.ca/products/airsense-11", "default", 7-i)
		require.NoError(t, err)
	}

	store := NewStore(sqlite)
	require.NoError(t, store.Initialize(ctx))

	rows, err := store.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for _, row := range rows {
		require.Equal(t, LegacySite, row.Site)
	}
}

// oldest known format: no sku column either. both appended columns
// pick up their documented backfill values.
func TestInitializeBackfillsEveryMissingColumn(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:stockstore")
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	sqlite := openTestDB(t)
	_, err := sqlite.Exec(`
		CREATE TABLE inventory_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp DATETIME,
			product_name TEXT,
			product_url TEXT,
			variant_id TEXT,
			stock_count INTEGER
		)
	`)
	require.NoError(t, err)
	_, err = sqlite.Exec(`
		INSERT INTO inventory_log (timestamp, product_name, product_url, variant_id, stock_count)
		VALUES (?, ?, ?, ?, ?)
	`, timezone.Format(scanTime(0)), "AirFit F20",
		"https://www.cpapoutlet.ca/products/airfit-f20", "default", 2)
	require.NoError(t, err)

	store := NewStore(sqlite)
	require.NoError(t, store.Initialize(ctx))

	rows, err := store.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "N/A", rows[0].SKU)
	require.Equal(t, LegacySite, rows[0].Site)
}

// N appends always yield exactly N rows, identical to what went in.
// no dedup, no mutation, even for byte-identical snapshots.
func TestAppendOnly(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:stockstore")
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	store := NewStore(openTestDB(t))
	require.NoError(t, store.Initialize(ctx))

	inserted := []Snapshot{
		{scanTime(0), "cpapoutlet", "AirSense 11", "39001", "https://www.cpapoutlet.ca/products/airsense-11", "default", 4},
		{scanTime(0), "cpapoutlet", "AirSense 11", "39001", "https://www.cpapoutlet.ca/products/airsense-11", "default", 4},
		{scanTime(time.Hour), "cpapoutlet", "AirSense 11", "39001", "https://www.cpapoutlet.ca/products/airsense-11", "default", 3},
		{scanTime(time.Hour), "shopify-demo", "AirFit F20 (Medium)", "N/A", "https://demo.example.com/products/airfit-f20", "40123", 11},
		{scanTime(2 * time.Hour), "shopify-demo", "AirFit F20 (Medium)", "N/A", "https://demo.example.com/products/airfit-f20", "40123", 0},
	}
	for _, snapshot := range inserted {
		require.NoError(t, store.Append(ctx, snapshot))
	}

	rows, err := store.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, rows, len(inserted))

	sortSnapshots := cmpopts.SortSlices(func(a, b Snapshot) bool {
		if !a.Time.Equal(b.Time) {
			return a.Time.Before(b.Time)
		}
		if a.Site != b.Site {
			return a.Site < b.Site
		}
		return a.StockCount < b.StockCount
	})
	if diff := cmp.Diff(inserted, rows, sortSnapshots); diff != "" {
		t.Fatalf("read-back mismatch (-inserted +read):\n%s", diff)
	}
}
