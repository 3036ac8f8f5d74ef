package scanner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"inventory-tracker/lib/scrape"
	"inventory-tracker/lib/scrapers/collection"
	"inventory-tracker/lib/stockstore"
	"inventory-tracker/lib/telemetry"
	"inventory-tracker/pkg/migrations"

	"github.com/stretchr/testify/require"
)

type fakeAdapter struct {
	site   string
	result scrape.Result
	err    error
	scans  int
}

func (f *fakeAdapter) Site() string {
	return f.site
}

func (f *fakeAdapter) Scan(ctx context.Context) (scrape.Result, error) {
	f.scans++
	return f.result, f.err
}

func observation(site, name string, count int64) stockstore.Snapshot {
	return stockstore.Snapshot{
		Site:       site,
		Name:       name,
		SKU:        "N/A",
		URL:        fmt.Sprintf("https://%s.example.com/products/%s", site, name),
		VariantID:  "default",
		StockCount: count,
	}
}

func tempStore(t *testing.T) OpenStore {
	path := filepath.Join(t.TempDir(), "inventory.db")
	return func() (*sql.DB, error) {
		return migrations.OpenDB(path)
	}
}

func readAll(t *testing.T, open OpenStore) []stockstore.Snapshot {
	db, err := open()
	require.NoError(t, err)
	defer db.Close()

	rows, err := stockstore.NewStore(db).ReadAll(context.Background())
	require.NoError(t, err)
	return rows
}

func TestRunCycleSharedTimestamp(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scanner")
	defer cleanup()

	open := tempStore(t)
	service := NewService(open, []scrape.Adapter{
		&fakeAdapter{
			site: "alpha",
			result: scrape.Result{
				Snapshots:  []stockstore.Snapshot{observation("alpha", "a1", 4), observation("alpha", "a2", 9)},
				Discovered: 3,
				Skipped:    1,
			},
		},
		&fakeAdapter{
			site: "beta",
			result: scrape.Result{
				Snapshots:  []stockstore.Snapshot{observation("beta", "b1", 2)},
				Discovered: 1,
			},
		},
	})

	summary, err := service.RunCycle(context.Background())
	require.NoError(t, err)

	require.Equal(t, []AdapterSummary{
		{Site: "alpha", Discovered: 3, Persisted: 2, Skipped: 1},
		{Site: "beta", Discovered: 1, Persisted: 1, Skipped: 0},
	}, summary.Adapters)

	rows := readAll(t, open)
	require.Len(t, rows, 3)
	for _, row := range rows {
		require.True(t, row.Time.Equal(rows[0].Time), "all snapshots of one cycle share the run time")
	}
}

// a failing adapter contributes what it found and never sinks the
// cycle or the adapters after it
func TestRunCycleIsolatesAdapterFailure(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scanner")
	defer cleanup()

	open := tempStore(t)
	broken := &fakeAdapter{
		site: "broken",
		result: scrape.Result{
			Snapshots:  []stockstore.Snapshot{observation("broken", "partial", 1)},
			Discovered: 1,
		},
		err: errors.New("listing page 2: connection reset"),
	}
	healthy := &fakeAdapter{
		site: "healthy",
		result: scrape.Result{
			Snapshots:  []stockstore.Snapshot{observation("healthy", "h1", 5)},
			Discovered: 1,
		},
	}

	service := NewService(open, []scrape.Adapter{broken, healthy})
	summary, err := service.RunCycle(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, healthy.scans)
	require.Len(t, summary.Adapters, 2)
	require.Len(t, readAll(t, open), 2)
}

func TestRunCycleFailsWhenStoreCannotOpen(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scanner")
	defer cleanup()

	adapter := &fakeAdapter{site: "alpha"}
	service := NewService(func() (*sql.DB, error) {
		return nil, errors.New("disk gone")
	}, []scrape.Adapter{adapter})

	_, err := service.RunCycle(context.Background())
	require.Error(t, err)
	require.Equal(t, 0, adapter.scans, "no scan proceeds without a confirmed store")
}

// full pipeline over a fixture storefront: 3 products, 2 with stock
// text, 1 without. exactly 2 rows land, both under one run time, the
// third is counted but not recorded.
func TestRunCycleEndToEnd(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scanner")
	defer cleanup()

	mux := http.NewServeMux()
	mux.HandleFunc("/collections/all", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "1" {
			fmt.Fprint(w, `
				<a href="/products/one">1</a>
				<a href="/products/two">2</a>
				<a href="/products/three">3</a>
			`)
			return
		}
		fmt.Fprint(w, "<html></html>")
	})
	mux.HandleFunc("/products/one", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<h1>One</h1><div class="sku">SKU: S1</div><p>4 in stock</p>`)
	})
	mux.HandleFunc("/products/two", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<h1>Two</h1><p>7 in stock</p>`)
	})
	mux.HandleFunc("/products/three", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<h1>Three</h1><p>sold out</p>`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	adapter, err := collection.NewClient(collection.Options{
		Site:         "fixture",
		BaseUrl:      server.URL,
		RequestDelay: time.Millisecond,
	})
	require.NoError(t, err)

	open := tempStore(t)
	service := NewService(open, []scrape.Adapter{adapter})

	summary, err := service.RunCycle(context.Background())
	require.NoError(t, err)
	require.Equal(t, []AdapterSummary{
		{Site: "fixture", Discovered: 3, Persisted: 2, Skipped: 1},
	}, summary.Adapters)

	rows := readAll(t, open)
	require.Len(t, rows, 2)
	require.True(t, rows[0].Time.Equal(rows[1].Time))
	require.Equal(t, "One", rows[0].Name)
	require.Equal(t, "S1", rows[0].SKU)
	require.Equal(t, int64(4), rows[0].StockCount)
	require.Equal(t, "Two", rows[1].Name)
	require.Equal(t, int64(7), rows[1].StockCount)
}
