package memory

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-wms/internal/rbac"
	"github.com/odyssey-erp/odyssey-wms/internal/warehouse"
	"github.com/odyssey-erp/odyssey-wms/internal/warehouse/predicate"
	"github.com/odyssey-erp/odyssey-wms/internal/warehouse/store"
	"github.com/odyssey-erp/odyssey-wms/internal/warehouse/zones"
)

const fixture = `{
  "locations": [
    {"id": 1, "name": "WH", "usage": "view"},
    {"id": 2, "name": "WH/Main", "parent_id": 1, "usage": "internal"},
    {"id": 3, "name": "WH/Main/Rack A", "parent_id": 2, "usage": "internal"}
  ],
  "refs": {"__import__.loc_main_warehouse": 2},
  "users": {"7": {"partner_id": 42, "groups": ["base.group_portal"]}},
  "shipments": [
    {"id": 1, "name": "IN/001", "status": "done", "area_chargeable": 4.5,
     "lines": [{"id": 10, "dest_location_id": 3}]},
    {"id": 2, "name": "IN/002", "status": "done", "dest_location_id": 1,
     "lines": [{"id": 11, "length_m": 2, "width_m": 1.25}, {"id": 12, "length_m": 1, "width_m": 1, "archived": true}]},
    {"id": 3, "name": "IN/003", "status": "done", "archived": true, "area_chargeable": 99}
  ]
}`

func loadFixture(t *testing.T) *Store {
	t.Helper()
	s := New()
	require.NoError(t, s.Load(strings.NewReader(fixture)))
	return s
}

func TestSnapshotHidesArchivedAndOrdersNewestFirst(t *testing.T) {
	s := loadFixture(t)
	err := s.Snapshot(context.Background(), func(ctx context.Context, r store.Reader) error {
		rows, err := r.Search(ctx, predicate.True, store.SearchOptions{})
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, int64(2), rows[0].ID)
		assert.Equal(t, int64(1), rows[1].ID)
		assert.Nil(t, rows[0].Lines)

		n, err := r.Count(ctx, predicate.Eq(predicate.FieldStatus, warehouse.StatusDone))
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		return nil
	})
	require.NoError(t, err)
}

func TestPutRecomputesChargeableAreaFromActiveLines(t *testing.T) {
	s := loadFixture(t)
	_ = s.Snapshot(context.Background(), func(ctx context.Context, r store.Reader) error {
		sum, err := r.SumArea(ctx, predicate.Eq(predicate.FieldID, int64(2)))
		require.NoError(t, err)
		assert.InDelta(t, 2.5, sum, 1e-9)

		rows, err := r.Search(ctx, predicate.Eq(predicate.FieldID, int64(2)), store.SearchOptions{WithLines: true})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Len(t, rows[0].Lines, 1)
		assert.Equal(t, int64(2), rows[0].Lines[0].ShipmentID)
		return nil
	})
}

func TestSnapshotFillsCustomerStock(t *testing.T) {
	s := New()
	s.PutShipment(warehouse.Shipment{
		ID: 1, Status: warehouse.StatusDone, PickingType: warehouse.PickingIncoming, CustomerID: warehouse.IDPtr(42),
		Lines: []warehouse.LineItem{{ID: 10, ProductName: "Valve", Quantity: 10, DestLocationID: warehouse.IDPtr(8)}},
	})
	s.PutShipment(warehouse.Shipment{
		ID: 2, Status: warehouse.StatusDone, PickingType: warehouse.PickingOutgoing, CustomerID: warehouse.IDPtr(42),
		Lines: []warehouse.LineItem{{ID: 20, ProductName: "Valve", Quantity: 4, SourceLocationID: warehouse.IDPtr(8)}},
	})
	s.PutShipment(warehouse.Shipment{
		ID: 3, Status: warehouse.StatusAllocated, PickingType: warehouse.PickingOutgoing, CustomerID: warehouse.IDPtr(42),
		Lines: []warehouse.LineItem{{ID: 30, ProductName: "Valve", Quantity: 5, SourceLocationID: warehouse.IDPtr(8)}},
	})

	err := s.Snapshot(context.Background(), func(ctx context.Context, r store.Reader) error {
		rows, err := r.Search(ctx, predicate.Eq(predicate.FieldID, int64(3)), store.SearchOptions{WithLines: true})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		require.Len(t, rows[0].Lines, 1)
		line := rows[0].Lines[0]
		assert.InDelta(t, 6, line.InStockQty, 1e-9)

		rollup := warehouse.Summarize(rows[0], time.Now(), nil)
		require.Len(t, rollup.Lines, 1)
		assert.InDelta(t, 1, rollup.Lines[0].Balance, 1e-9)
		return nil
	})
	require.NoError(t, err)

	s.mu.RLock()
	defer s.mu.RUnlock()
	assert.Zero(t, s.shipments[3].Lines[0].InStockQty, "stored lines stay untouched")
}

func TestChildOfWalksLocationHierarchy(t *testing.T) {
	s := loadFixture(t)
	id, err := s.ResolveRef(context.Background(), "__import__.loc_main_warehouse")
	require.NoError(t, err)

	where := predicate.Or(
		predicate.ChildOf(predicate.FieldDestLocation, []int64{id}),
		predicate.ChildOf(predicate.FieldLineDestLocation, []int64{id}),
	)
	_ = s.Snapshot(context.Background(), func(ctx context.Context, r store.Reader) error {
		sum, err := r.SumArea(ctx, where)
		require.NoError(t, err)
		assert.InDelta(t, 4.5, sum, 1e-9)
		return nil
	})
}

func TestSearchClampsLimit(t *testing.T) {
	s := New()
	for i := 1; i <= store.MaxSearchLimit+25; i++ {
		s.PutShipment(warehouse.Shipment{ID: int64(i)})
	}
	_ = s.Snapshot(context.Background(), func(ctx context.Context, r store.Reader) error {
		rows, err := r.Search(ctx, predicate.True, store.SearchOptions{Limit: 1000})
		require.NoError(t, err)
		assert.Len(t, rows, store.MaxSearchLimit)
		assert.Equal(t, int64(store.MaxSearchLimit+25), rows[0].ID)

		rows, err = r.Search(ctx, predicate.True, store.SearchOptions{Limit: 3})
		require.NoError(t, err)
		assert.Len(t, rows, 3)
		return nil
	})
}

func TestResolveRefMissing(t *testing.T) {
	_, err := New().ResolveRef(context.Background(), "__import__.nowhere")
	assert.True(t, errors.Is(err, zones.ErrRefNotFound))
}

func TestInternalLocations(t *testing.T) {
	s := loadFixture(t)
	locs, err := s.InternalLocations(context.Background())
	require.NoError(t, err)
	require.Len(t, locs, 2)
	assert.Equal(t, "WH/Main", locs[0].Name)
	assert.Equal(t, "WH/Main/Rack A", locs[1].Name)
}

func TestSnapshotHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := New().Snapshot(ctx, func(context.Context, store.Reader) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestFixtureUsersServeAsDirectory(t *testing.T) {
	s := loadFixture(t)
	var dir rbac.Directory = s

	groups, err := dir.UserGroups(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, []string{"base.group_portal"}, groups)
	partner, err := dir.UserPartner(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(42), partner)

	_, err = dir.UserGroups(context.Background(), 8)
	assert.ErrorIs(t, err, rbac.ErrNotFound)
}
