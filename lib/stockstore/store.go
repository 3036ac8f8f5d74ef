// Package stockstore persists stock snapshots into an append-only
// sqlite log. rows are never updated or deleted, history stays readable
// forever, so the schema may only ever grow by appending columns.
package stockstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"inventory-tracker/lib/timezone"

	_ "embed"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

// site label backfilled onto rows written before the log tracked
// more than one storefront
const LegacySite = "cpapoutlet"

// Snapshot is one normalized stock observation for a product variant
// at a scan instant. (Site, URL, VariantID) identifies the tracked item
// across time, Time orders its history.
type Snapshot struct {
	Time       time.Time
	Site       string
	Name       string
	SKU        string
	URL        string
	VariantID  string
	StockCount int64
}

type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) Store {
	return Store{db: database}
}

// columns appended to the log after its first release. each carries a
// backfill value so rows that predate the column never read as null.
// columns are never removed or renamed.
type addedColumn struct {
	name     string
	sqlType  string
	backfill string
}

var addedColumns = []addedColumn{
	{name: "sku", sqlType: "TEXT", backfill: "N/A"},
	{name: "site", sqlType: "TEXT", backfill: LegacySite},
}

// Initialize creates the log table if absent and appends any column
// from the current schema that an older database file is missing,
// backfilling pre-existing rows. safe to call on every start; scanning
// must not proceed if it fails.
func (s Store) Initialize(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, Schema)
	if err != nil {
		return fmt.Errorf("create log table: %w", err)
	}

	existing, err := s.tableColumns(ctx)
	if err != nil {
		return err
	}

	for _, col := range addedColumns {
		if existing[col.name] {
			continue
		}
		slog.InfoContext(ctx, "upgrading log schema", "column", col.name, "backfill", col.backfill)

		_, err = s.db.ExecContext(ctx, fmt.Sprintf(
			"ALTER TABLE inventory_log ADD COLUMN %s %s", col.name, col.sqlType,
		))
		if err != nil {
			return fmt.Errorf("add column %s: %w", col.name, err)
		}
		_, err = s.db.ExecContext(ctx, fmt.Sprintf(
			"UPDATE inventory_log SET %s = ? WHERE %s IS NULL", col.name, col.name,
		), col.backfill)
		if err != nil {
			return fmt.Errorf("backfill column %s: %w", col.name, err)
		}
	}

	return nil
}

func (s Store) tableColumns(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, "PRAGMA table_info(inventory_log)")
	if err != nil {
		return nil, fmt.Errorf("read table info: %w", err)
	}
	defer rows.Close()

	columns := map[string]bool{}
	for rows.Next() {
		var (
			cid          int64
			name, sqlTyp string
			notNull      int64
			defaultValue sql.NullString
			primaryKey   int64
		)
		err := rows.Scan(&cid, &name, &sqlTyp, &notNull, &defaultValue, &primaryKey)
		if err != nil {
			return nil, fmt.Errorf("scan table info: %w", err)
		}
		columns[name] = true
	}
	return columns, rows.Err()
}

// Append inserts one immutable row. there is no upsert and no
// deduplication, every call adds exactly one row.
func (s Store) Append(ctx context.Context, snapshot Snapshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO inventory_log (timestamp, site, product_name, sku, product_url, variant_id, stock_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		timezone.Format(snapshot.Time),
		snapshot.Site,
		snapshot.Name,
		snapshot.SKU,
		snapshot.URL,
		snapshot.VariantID,
		snapshot.StockCount,
	)
	if err != nil {
		return fmt.Errorf("append snapshot: %w", err)
	}
	return nil
}

// ReadAll returns every row in the log, unordered. sorting and grouping
// are the reporting layer's responsibility.
func (s Store) ReadAll(ctx context.Context) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, site, product_name, sku, product_url, variant_id, stock_count
		FROM inventory_log
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		var row Snapshot
		var timestamp string
		err := rows.Scan(
			&timestamp,
			&row.Site,
			&row.Name,
			&row.SKU,
			&row.URL,
			&row.VariantID,
			&row.StockCount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan log row: %w", err)
		}

		row.Time, err = timezone.Parse(timestamp)
		if err != nil {
			slog.WarnContext(ctx, "unparsable timestamp in log", "timestamp", timestamp, "err", err)
		}
		snapshots = append(snapshots, row)
	}
	return snapshots, rows.Err()
}
