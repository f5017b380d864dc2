package dashboard

import (
	"strconv"
	"strings"

	p "github.com/odyssey-erp/odyssey-wms/internal/warehouse/predicate"
)

// Caller is the identity a query runs for. It is passed explicitly to every
// entry point; nothing is read from ambient request state.
type Caller struct {
	UserID    int64
	PartnerID int64
	// Privileged callers bypass the ownership restriction.
	Privileged bool
}

// Filters are the free-text narrowing inputs shared by every card.
type Filters struct {
	Client     string `json:"client,omitempty"`
	Vessel     string `json:"vessel,omitempty"`
	LocationID string `json:"location_id,omitempty"`
}

// Normalize trims surrounding whitespace.
func (f Filters) Normalize() Filters {
	return Filters{
		Client:     strings.TrimSpace(f.Client),
		Vessel:     strings.TrimSpace(f.Vessel),
		LocationID: strings.TrimSpace(f.LocationID),
	}
}

// Location returns the numeric location filter. Values that are not plain
// digits are ignored.
func (f Filters) Location() (int64, bool) {
	raw := strings.TrimSpace(f.LocationID)
	if raw == "" {
		return 0, false
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// SecurityBase builds the predicate every query for caller is conjoined with.
// Non-privileged callers only see shipments owned by their partner; a caller
// without a partner sees nothing.
func SecurityBase(lib Library, caller Caller, filters Filters) p.Expr {
	filters = filters.Normalize()
	terms := []p.Expr{lib.WarehouseManaged()}
	if !caller.Privileged {
		if caller.PartnerID <= 0 {
			return p.False
		}
		terms = append(terms, p.Eq(p.FieldCustomerID, caller.PartnerID))
	}
	if filters.Client != "" {
		terms = append(terms, p.ILike(p.FieldCustomerName, filters.Client))
	}
	if filters.Vessel != "" {
		terms = append(terms, p.ILike(p.FieldVessel, filters.Vessel))
	}
	if id, ok := filters.Location(); ok {
		terms = append(terms, p.Eq(p.FieldLineDestLocation, id))
	}
	return p.And(terms...)
}
