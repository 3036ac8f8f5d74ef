// Package scrape defines the contract between storefront adapters and
// the scan orchestrator.
//
// an adapter is one source's discovery+fetch+extract pipeline. scraping
// here is read-only: input -> request -> response -> normalized output,
// with no state mutated on the far side. adapters swallow per-item
// failures (a broken product page should never sink a whole scan) and
// report them through Result counters instead.
package scrape

import (
	"context"

	"inventory-tracker/lib/stockstore"
)

type Adapter interface {
	// Site is the stable source identifier written into every row
	// this adapter produces.
	Site() string

	// Scan runs one full discovery+fetch+extract pass. snapshot times
	// are left zero, the orchestrator stamps every snapshot of a cycle
	// with one shared instant.
	//
	// a non-nil error means discovery ended early (pagination failure).
	// whatever Result holds up to that point is still valid and should
	// be persisted.
	Scan(ctx context.Context) (Result, error)
}

type Result struct {
	Snapshots []stockstore.Snapshot

	// items seen during discovery
	Discovered int
	// items dropped due to fetch or extraction failures
	Skipped int
}
