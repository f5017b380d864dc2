package warehouse

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates that a shipment or line is absent from the caller's partition.
	ErrNotFound = errors.New("warehouse: not found")
	// ErrUpstream marks failures of the backing store; callers must not degrade them to empty results.
	ErrUpstream = errors.New("warehouse: upstream query failed")
)

// ============================================================================
// INVENTORY STATUS
// ============================================================================

// Status is the warehouse lifecycle state of a shipment.
type Status string

const (
	StatusDraft            Status = "draft"
	StatusArrived          Status = "arrived"
	StatusAllocated        Status = "allocated"
	StatusDone             Status = "done"
	StatusAwaitingDispatch Status = "awaiting_dispatch"
	StatusDispatch         Status = "dispatch"
	StatusCancelled        Status = "cancelled"
)

var statusLabels = map[Status]string{
	StatusDraft:            "Draft",
	StatusArrived:          "Allocated",
	StatusAllocated:        "Put Away",
	StatusDone:             "Stored",
	StatusAwaitingDispatch: "Awaiting Dispatch",
	StatusDispatch:         "Dispatched",
	StatusCancelled:        "Cancelled",
}

// IsValid checks if the status is one of the known codes.
func (s Status) IsValid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label returns the human label shown in listings. Unknown codes are returned verbatim.
func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// PickingType distinguishes inbound, outbound and internal shipments.
type PickingType string

const (
	PickingIncoming PickingType = "incoming"
	PickingOutgoing PickingType = "outgoing"
	PickingInternal PickingType = "internal"
)

// ============================================================================
// SHIPMENT
// ============================================================================

// Shipment is a read-only snapshot of an inbound or outbound stock shipment.
type Shipment struct {
	ID               int64       `json:"id"`
	Name             string      `json:"name"`
	Status           Status      `json:"status"`
	PickingType      PickingType `json:"picking_type"`
	ScheduledDate    *time.Time  `json:"scheduled_date,omitempty"`
	ArrivalDate      *time.Time  `json:"arrival_date,omitempty"`
	CustomerID       *int64      `json:"customer_id,omitempty"`
	CustomerName     string      `json:"customer_name"`
	Vessel           string      `json:"vessel"`
	AreaChargeable   float64     `json:"area_chargeable"`
	WarehouseManaged bool        `json:"warehouse_managed"`
	FinancialRef     *int64      `json:"financial_ref,omitempty"`
	FinancialCode    string      `json:"financial_code,omitempty"`
	WarehouseID      *int64      `json:"warehouse_id,omitempty"`
	DestLocationID   *int64      `json:"dest_location_id,omitempty"`
	SupplierPO       string      `json:"supplier_po,omitempty"`
	WaybillNumber    string      `json:"waybill_number,omitempty"`
	RelatedInbound   string      `json:"related_inbound,omitempty"`
	Archived         bool        `json:"archived"`
	Lines            []LineItem  `json:"lines,omitempty"`
}

// LineItem is a single stock move within a shipment.
type LineItem struct {
	ID                   int64   `json:"id"`
	ShipmentID           int64   `json:"shipment_id"`
	ProductName          string  `json:"product_name"`
	UoM                  string  `json:"uom"`
	Critical             bool    `json:"critical"`
	Dangerous            bool    `json:"dangerous"`
	DangerousClass       string  `json:"dangerous_class,omitempty"`
	TemperatureSensitive bool    `json:"temperature_sensitive"`
	LabelPrinted         bool    `json:"label_printed"`
	SourceLocationID     *int64  `json:"source_location_id,omitempty"`
	DestLocationID       *int64  `json:"dest_location_id,omitempty"`
	Quantity             float64 `json:"quantity"`
	InStockQty           float64 `json:"in_stock_qty"`
	NoOfItems            int     `json:"no_of_items"`
	LengthM              float64 `json:"length_m"`
	WidthM               float64 `json:"width_m"`
	HeightM              float64 `json:"height_m"`
	WeightKg             float64 `json:"weight_kg"`
	Archived             bool    `json:"archived"`
}

// Line returns the line with the given id.
func (s Shipment) Line(id int64) (LineItem, bool) {
	for _, line := range s.Lines {
		if line.ID == id {
			return line, true
		}
	}
	return LineItem{}, false
}

// Location is a storage location in the warehouse hierarchy.
type Location struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id,omitempty"`
	Usage    string `json:"usage"`
}

// LocationUsageInternal marks physical storage locations.
const LocationUsageInternal = "internal"

// Date truncates t to its calendar day, expressed as UTC midnight.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DatePtr is a convenience for building optional dates.
func DatePtr(year int, month time.Month, day int) *time.Time {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &t
}

// IDPtr returns a pointer to id.
func IDPtr(id int64) *int64 {
	return &id
}
