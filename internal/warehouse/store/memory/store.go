// Package memory is an in-process warehouse store for development and tests.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/odyssey-erp/odyssey-wms/internal/rbac"
	"github.com/odyssey-erp/odyssey-wms/internal/warehouse"
	"github.com/odyssey-erp/odyssey-wms/internal/warehouse/predicate"
	"github.com/odyssey-erp/odyssey-wms/internal/warehouse/store"
	"github.com/odyssey-erp/odyssey-wms/internal/warehouse/zones"
)

// Store keeps shipments, locations and location references in memory.
// Snapshots copy the data under a read lock, so readers never observe a
// concurrent Put halfway.
type Store struct {
	mu        sync.RWMutex
	shipments map[int64]warehouse.Shipment
	locations map[int64]warehouse.Location
	refs      map[string]int64
	users     rbac.StaticDirectory
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		shipments: make(map[int64]warehouse.Shipment),
		locations: make(map[int64]warehouse.Location),
		refs:      make(map[string]int64),
		users:     make(rbac.StaticDirectory),
	}
}

// PutShipment inserts or replaces a shipment. When any line carries
// dimensions the chargeable area is recomputed from the lines.
func (s *Store) PutShipment(sh warehouse.Shipment) {
	lines := make([]warehouse.LineItem, len(sh.Lines))
	copy(lines, sh.Lines)
	sh.Lines = lines
	for i := range sh.Lines {
		sh.Lines[i].ShipmentID = sh.ID
	}
	if hasDimensions(sh.Lines) {
		sh.AreaChargeable = warehouse.ChargeableArea(activeLines(sh.Lines))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.shipments[sh.ID] = sh
}

// PutLocation inserts or replaces a location.
func (s *Store) PutLocation(loc warehouse.Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations[loc.ID] = loc
}

// PutRef registers a symbolic location reference.
func (s *Store) PutRef(ref string, id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs[ref] = id
}

// ResolveRef implements zones.Registry.
func (s *Store) ResolveRef(_ context.Context, ref string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.refs[ref]
	if !ok {
		return 0, fmt.Errorf("%s: %w", ref, zones.ErrRefNotFound)
	}
	return id, nil
}

// Snapshot runs fn against a copy of the current data.
func (s *Store) Snapshot(ctx context.Context, fn func(ctx context.Context, r store.Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	snap := &reader{
		shipments: make([]warehouse.Shipment, 0, len(s.shipments)),
		tree:      make(tree, len(s.locations)),
	}
	for _, sh := range s.shipments {
		if sh.Archived {
			continue
		}
		snap.shipments = append(snap.shipments, sh)
	}
	for id, loc := range s.locations {
		if loc.ParentID != nil {
			snap.tree[id] = *loc.ParentID
		}
	}
	s.mu.RUnlock()

	snap.shipments = withStock(snap.shipments)
	sort.Slice(snap.shipments, func(i, j int) bool { return snap.shipments[i].ID > snap.shipments[j].ID })
	return fn(ctx, snap)
}

// InternalLocations lists locations with internal usage ordered by name.
func (s *Store) InternalLocations(_ context.Context) ([]warehouse.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]warehouse.Location, 0, len(s.locations))
	for _, loc := range s.locations {
		if loc.Usage == warehouse.LocationUsageInternal {
			out = append(out, loc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Fixture is the JSON layout accepted by Load.
type Fixture struct {
	Shipments []warehouse.Shipment      `json:"shipments"`
	Locations []warehouse.Location      `json:"locations"`
	Refs      map[string]int64          `json:"refs"`
	Users     map[int64]rbac.StaticUser `json:"users"`
}

// Load reads a JSON fixture into the store.
func (s *Store) Load(r io.Reader) error {
	var fx Fixture
	if err := json.NewDecoder(r).Decode(&fx); err != nil {
		return fmt.Errorf("decode fixture: %w", err)
	}
	for _, loc := range fx.Locations {
		s.PutLocation(loc)
	}
	for ref, id := range fx.Refs {
		s.PutRef(ref, id)
	}
	for _, sh := range fx.Shipments {
		s.PutShipment(sh)
	}
	for id, u := range fx.Users {
		s.PutUser(id, u)
	}
	return nil
}

// PutUser inserts or replaces a host user.
func (s *Store) PutUser(id int64, u rbac.StaticUser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = u
}

// UserGroups implements rbac.Directory.
func (s *Store) UserGroups(ctx context.Context, userID int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users.UserGroups(ctx, userID)
}

// UserPartner implements rbac.Directory.
func (s *Store) UserPartner(ctx context.Context, userID int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users.UserPartner(ctx, userID)
}

type reader struct {
	shipments []warehouse.Shipment
	tree      tree
}

func (r *reader) Count(ctx context.Context, where predicate.Expr) (int, error) {
	n := 0
	for _, sh := range r.shipments {
		if predicate.Match(where, sh, r.tree) {
			n++
		}
	}
	return n, ctx.Err()
}

func (r *reader) SumArea(ctx context.Context, where predicate.Expr) (float64, error) {
	var total float64
	for _, sh := range r.shipments {
		if predicate.Match(where, sh, r.tree) {
			total += sh.AreaChargeable
		}
	}
	return total, ctx.Err()
}

func (r *reader) Search(ctx context.Context, where predicate.Expr, opts store.SearchOptions) ([]warehouse.Shipment, error) {
	limit := opts.ClampLimit()
	out := make([]warehouse.Shipment, 0)
	for _, sh := range r.shipments {
		if len(out) == limit {
			break
		}
		if !predicate.Match(where, sh, r.tree) {
			continue
		}
		if opts.WithLines {
			sh.Lines = activeLines(sh.Lines)
		} else {
			sh.Lines = nil
		}
		out = append(out, sh)
	}
	return out, ctx.Err()
}

// tree maps a location to its parent.
type tree map[int64]int64

func (t tree) Within(id int64, ancestors []int64) bool {
	visited := make(map[int64]struct{})
	for cur := id; ; {
		for _, a := range ancestors {
			if a == cur {
				return true
			}
		}
		if _, seen := visited[cur]; seen {
			return false
		}
		visited[cur] = struct{}{}
		parent, ok := t[cur]
		if !ok {
			return false
		}
		cur = parent
	}
}

// withStock fills each line's customer stock at its source location. Lines
// are copied so stored shipments stay untouched.
func withStock(shipments []warehouse.Shipment) []warehouse.Shipment {
	out := make([]warehouse.Shipment, len(shipments))
	for i, sh := range shipments {
		if len(sh.Lines) == 0 {
			out[i] = sh
			continue
		}
		lines := make([]warehouse.LineItem, len(sh.Lines))
		copy(lines, sh.Lines)
		if sh.CustomerID != nil {
			for j, line := range lines {
				if line.SourceLocationID == nil {
					continue
				}
				lines[j].InStockQty = warehouse.CustomerStock(shipments, *sh.CustomerID, line.ProductName, *line.SourceLocationID)
			}
		}
		sh.Lines = lines
		out[i] = sh
	}
	return out
}

func activeLines(lines []warehouse.LineItem) []warehouse.LineItem {
	out := make([]warehouse.LineItem, 0, len(lines))
	for _, line := range lines {
		if !line.Archived {
			out = append(out, line)
		}
	}
	return out
}

func hasDimensions(lines []warehouse.LineItem) bool {
	for _, line := range lines {
		if line.LengthM != 0 || line.WidthM != 0 {
			return true
		}
	}
	return false
}
