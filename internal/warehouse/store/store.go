// Package store defines the read contract between the dashboard and its backends.
package store

import (
	"context"

	"github.com/odyssey-erp/odyssey-wms/internal/warehouse"
	"github.com/odyssey-erp/odyssey-wms/internal/warehouse/predicate"
)

// MaxSearchLimit bounds every listing.
const MaxSearchLimit = 200

// SearchOptions controls Search.
type SearchOptions struct {
	// Limit is clamped to (0, MaxSearchLimit].
	Limit int
	// WithLines loads active line items of each shipment.
	WithLines bool
}

// ClampLimit applies the listing bound.
func (o SearchOptions) ClampLimit() int {
	if o.Limit <= 0 || o.Limit > MaxSearchLimit {
		return MaxSearchLimit
	}
	return o.Limit
}

// Reader answers queries against one consistent view of the data. Archived
// shipments are never visible. Search orders by id descending.
type Reader interface {
	Count(ctx context.Context, where predicate.Expr) (int, error)
	SumArea(ctx context.Context, where predicate.Expr) (float64, error)
	Search(ctx context.Context, where predicate.Expr, opts SearchOptions) ([]warehouse.Shipment, error)
}

// Snapshotter runs fn against a single snapshot.
type Snapshotter interface {
	Snapshot(ctx context.Context, fn func(ctx context.Context, r Reader) error) error
}

// LocationLister lists storage locations.
type LocationLister interface {
	InternalLocations(ctx context.Context) ([]warehouse.Location, error)
}
