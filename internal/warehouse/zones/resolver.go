// Package zones maps warehouse zones to the storage location ids configured in the host.
package zones

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrRefNotFound is returned by registries when a symbolic reference is not configured.
var ErrRefNotFound = errors.New("zones: reference not found")

// Zone is a named group of storage locations.
type Zone string

const (
	ZoneMainWarehouse   Zone = "main_warehouse"
	ZoneBondedWarehouse Zone = "bonded_warehouse"
	ZoneCoveredStacking Zone = "covered_stacking"
	ZoneOpenStacking    Zone = "open_stacking"
)

// DefaultGroups lists the host's location references per zone.
var DefaultGroups = map[Zone][]string{
	ZoneMainWarehouse: {
		"__import__.loc_main_warehouse",
		"__import__.loc_security_storage_2",
	},
	ZoneBondedWarehouse: {
		"__import__.loc_security_storage_1",
	},
	ZoneCoveredStacking: {
		"__import__.loc_covered_stacking_area",
		"__import__.loc_security_storage_3",
	},
	ZoneOpenStacking: {
		"__import__.loc_open_stacking_area_1",
		"__import__.loc_open_stacking_area_2",
		"__import__.loc_open_stacking_area_3",
	},
}

// Registry resolves a symbolic reference ("module.name") to a location id.
type Registry interface {
	ResolveRef(ctx context.Context, ref string) (int64, error)
}

// Resolver turns zones into deduplicated location id lists.
type Resolver struct {
	registry Registry
	groups   map[Zone][]string
	logger   *slog.Logger
}

// NewResolver constructs a Resolver. Nil groups fall back to DefaultGroups.
func NewResolver(registry Registry, groups map[Zone][]string, logger *slog.Logger) *Resolver {
	if groups == nil {
		groups = DefaultGroups
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{registry: registry, groups: groups, logger: logger}
}

// Resolve returns the location ids of zone. Missing references are skipped;
// the result may be empty, and callers must treat empty as "matches nothing".
func (r *Resolver) Resolve(ctx context.Context, zone Zone) ([]int64, error) {
	refs, ok := r.groups[zone]
	if !ok {
		r.logger.Warn("zone has no configured references", slog.String("zone", string(zone)))
		return nil, nil
	}
	return r.ResolveRefs(ctx, refs)
}

// ResolveRefs resolves refs in order, skipping unconfigured ones and dropping duplicates.
// Any failure other than ErrRefNotFound is returned.
func (r *Resolver) ResolveRefs(ctx context.Context, refs []string) ([]int64, error) {
	ids := make([]int64, 0, len(refs))
	seen := make(map[int64]struct{}, len(refs))
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		id, err := r.registry.ResolveRef(ctx, ref)
		if err != nil {
			if errors.Is(err, ErrRefNotFound) {
				r.logger.Warn("zone reference not configured", slog.String("ref", ref))
				continue
			}
			return nil, fmt.Errorf("resolve %s: %w", ref, err)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

// SplitRef splits "module.name" into its parts. References without a module
// are returned with an empty module.
func SplitRef(ref string) (module, name string) {
	if i := strings.IndexByte(ref, '.'); i >= 0 {
		return ref[:i], ref[i+1:]
	}
	return "", ref
}

// StaticRegistry is a fixed reference table.
type StaticRegistry map[string]int64

// ResolveRef implements Registry.
func (s StaticRegistry) ResolveRef(_ context.Context, ref string) (int64, error) {
	id, ok := s[ref]
	if !ok {
		return 0, fmt.Errorf("%s: %w", ref, ErrRefNotFound)
	}
	return id, nil
}
