package dashboard

import (
	"time"

	"github.com/odyssey-erp/odyssey-wms/internal/warehouse"
	p "github.com/odyssey-erp/odyssey-wms/internal/warehouse/predicate"
)

// Library builds the card predicates relative to a fixed calendar day.
type Library struct {
	Today time.Time
}

// NewLibrary pins the library to the day of now.
func NewLibrary(now time.Time) Library {
	return Library{Today: warehouse.Date(now)}
}

// WarehouseManaged matches shipments the warehouse handles: flagged as warehouse
// inventory or linked to a financial file.
func (Library) WarehouseManaged() p.Expr {
	return p.Or(p.Eq(p.FieldWarehouseManaged, true), p.IsSet(p.FieldFinancialRef))
}

func (l Library) TotalInventory() p.Expr {
	return p.And(
		p.In(p.FieldStatus,
			warehouse.StatusDraft,
			warehouse.StatusArrived,
			warehouse.StatusAllocated,
			warehouse.StatusDone,
			warehouse.StatusAwaitingDispatch,
		),
		p.Le(p.FieldArrivalDate, l.Today),
		l.WarehouseManaged(),
	)
}

// ExpectedToday matches non-cancelled financial shipments scheduled for today.
func (l Library) ExpectedToday() p.Expr {
	return p.And(
		p.Eq(p.FieldScheduledDate, l.Today),
		p.IsSet(p.FieldFinancialRef),
		p.NotIn(p.FieldStatus, warehouse.StatusCancelled),
	)
}

// ExpectedLater matches shipments scheduled after today that have not arrived yet.
func (l Library) ExpectedLater() p.Expr {
	return p.And(
		p.Gt(p.FieldScheduledDate, l.Today),
		p.Or(p.IsUnset(p.FieldArrivalDate), p.Gt(p.FieldArrivalDate, l.Today)),
		p.IsSet(p.FieldFinancialRef),
		p.NotIn(p.FieldStatus, warehouse.StatusCancelled),
	)
}

// LongerThan matches inbound stock that arrived more than days ago and is still held.
func (l Library) LongerThan(days int) p.Expr {
	return p.And(
		p.Lt(p.FieldArrivalDate, l.Today.AddDate(0, 0, -days)),
		p.In(p.FieldStatus, warehouse.StatusArrived, warehouse.StatusAllocated, warehouse.StatusDone),
		p.Eq(p.FieldPickingType, warehouse.PickingIncoming),
		l.WarehouseManaged(),
	)
}

func (Library) ToBePutInStock() p.Expr {
	return p.And(
		p.In(p.FieldStatus, warehouse.StatusArrived, warehouse.StatusAllocated),
		p.IsSet(p.FieldFinancialRef),
	)
}

func (Library) WithoutAllocatedStorage() p.Expr {
	return p.And(
		p.IsSet(p.FieldFinancialRef),
		p.IsSet(p.FieldLines),
		p.Eq(p.FieldStatus, warehouse.StatusAllocated),
	)
}

func (Library) LabelsToBePrinted() p.Expr {
	return p.And(
		p.NotIn(p.FieldStatus, warehouse.StatusDraft, warehouse.StatusCancelled),
		p.IsSet(p.FieldFinancialRef),
		p.IsSet(p.FieldLines),
		p.Eq(p.FieldLineLabelPrinted, false),
	)
}

// OpenOSDInventory matches arrived shipments awaiting the over/short/damaged check.
func (Library) OpenOSDInventory() p.Expr {
	return p.And(
		p.Eq(p.FieldStatus, warehouse.StatusArrived),
		p.IsSet(p.FieldFinancialRef),
	)
}

func (Library) PendingDispatch() p.Expr {
	return p.And(
		p.Eq(p.FieldPickingType, warehouse.PickingOutgoing),
		p.Eq(p.FieldStatus, warehouse.StatusAwaitingDispatch),
		p.Eq(p.FieldWarehouseManaged, true),
		p.IsSet(p.FieldLines),
	)
}

func (Library) CriticalItems() p.Expr {
	return p.Eq(p.FieldLineCritical, true)
}

func (Library) DangerousGoods() p.Expr {
	return p.Eq(p.FieldLineDangerous, true)
}

func (Library) TemperatureSensitive() p.Expr {
	return p.And(
		p.Eq(p.FieldLineTemperature, true),
		p.Eq(p.FieldPickingType, warehouse.PickingIncoming),
	)
}

// ZoneUtilization matches stored shipments placed in any of the zone's
// locations, at shipment or line level. No locations means no match.
func (Library) ZoneUtilization(locationIDs []int64) p.Expr {
	if len(locationIDs) == 0 {
		return p.False
	}
	return p.And(
		p.Eq(p.FieldStatus, warehouse.StatusDone),
		p.IsSet(p.FieldFinancialRef),
		p.Or(
			p.ChildOf(p.FieldDestLocation, locationIDs),
			p.ChildOf(p.FieldLineDestLocation, locationIDs),
		),
	)
}
