package odoo

import (
	"context"
	"errors"
	"fmt"

	"github.com/kolo/xmlrpc"

	"github.com/odyssey-erp/odyssey-wms/internal/warehouse"
	"github.com/odyssey-erp/odyssey-wms/internal/warehouse/predicate"
	"github.com/odyssey-erp/odyssey-wms/internal/warehouse/store"
	"github.com/odyssey-erp/odyssey-wms/internal/warehouse/zones"
)

const (
	modelPicking  = "stock.picking"
	modelMove     = "stock.move"
	modelLocation = "stock.location"
	modelMemo     = "memo.model"
	modelData     = "ir.model.data"
)

var shipmentFields = []string{
	"id", "name", "inventory_status", "picking_type_code", "scheduled_date",
	"actual_date_of_arrival", "customer_id", "intended_vessel", "area_chargeable",
	"is_warehouse_inventory", "financial_id", "warehouse_id", "location_dest_id",
	"supplier_po_number", "receiving_waybill_number", "related_inbound_shipment",
}

var lineFields = []string{
	"id", "picking_id", "name", "product_uom", "item_classification_critical",
	"item_classification_dangerous", "dangerous_goods_class", "item_classification_temperature",
	"is_label_printed", "location_id", "location_dest_id", "product_uom_qty", "no_of_items",
	"length_mtr", "width_mtr", "height_mtr", "weight_kg", "remaining_qty",
}

// Store implements the dashboard repository against an Odoo host. The host
// API has no multi-statement snapshot, so each query sees the latest data.
type Store struct {
	exec Executor
}

// New constructs a Store.
func New(exec Executor) *Store {
	return &Store{exec: exec}
}

// Snapshot runs fn against the host. Consistency across queries is best-effort.
func (s *Store) Snapshot(ctx context.Context, fn func(ctx context.Context, r store.Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx, &reader{s: s})
}

func (s *Store) execute(ctx context.Context, model, method string, args []any, kwargs map[string]any) (any, error) {
	reply, err := s.exec.ExecuteKW(ctx, model, method, args, kwargs)
	if err != nil {
		return nil, wrapErr(err)
	}
	return reply, nil
}

func (s *Store) searchRead(ctx context.Context, model string, domain []any, kwargs map[string]any) ([]record, error) {
	reply, err := s.execute(ctx, model, "search_read", []any{domain}, kwargs)
	if err != nil {
		return nil, err
	}
	rows, err := records(reply)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", warehouse.ErrUpstream, err)
	}
	return rows, nil
}

// ============================================================================
// READER
// ============================================================================

type reader struct {
	s *Store
}

func (r *reader) Count(ctx context.Context, where predicate.Expr) (int, error) {
	if where == predicate.False {
		return 0, nil
	}
	domain, err := predicate.Domain(where)
	if err != nil {
		return 0, err
	}
	reply, err := r.s.execute(ctx, modelPicking, "search_count", []any{domain}, nil)
	if err != nil {
		return 0, err
	}
	return int(record{"n": reply}.int64("n")), nil
}

// SumArea sums area_chargeable over matching shipments, as the host's own
// dashboard does with mapped().
func (r *reader) SumArea(ctx context.Context, where predicate.Expr) (float64, error) {
	if where == predicate.False {
		return 0, nil
	}
	domain, err := predicate.Domain(where)
	if err != nil {
		return 0, err
	}
	rows, err := r.s.searchRead(ctx, modelPicking, domain, map[string]any{"fields": []string{"area_chargeable"}})
	if err != nil {
		return 0, err
	}
	var total float64
	for _, row := range rows {
		total += row.float("area_chargeable")
	}
	return total, nil
}

func (r *reader) Search(ctx context.Context, where predicate.Expr, opts store.SearchOptions) ([]warehouse.Shipment, error) {
	out := make([]warehouse.Shipment, 0)
	if where == predicate.False {
		return out, nil
	}
	domain, err := predicate.Domain(where)
	if err != nil {
		return nil, err
	}
	rows, err := r.s.searchRead(ctx, modelPicking, domain, map[string]any{
		"fields": shipmentFields,
		"limit":  opts.ClampLimit(),
		"order":  "id desc",
	})
	if err != nil {
		return nil, err
	}

	var financialIDs []any
	for _, row := range rows {
		sh, err := toShipment(row)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", warehouse.ErrUpstream, err)
		}
		if sh.FinancialRef != nil {
			financialIDs = append(financialIDs, *sh.FinancialRef)
		}
		out = append(out, sh)
	}
	if len(out) == 0 {
		return out, nil
	}

	if err := r.attachFinancialCodes(ctx, out, financialIDs); err != nil {
		return nil, err
	}
	if opts.WithLines {
		if err := r.attachLines(ctx, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// attachFinancialCodes replaces financial display names with file codes.
func (r *reader) attachFinancialCodes(ctx context.Context, shipments []warehouse.Shipment, ids []any) error {
	if len(ids) == 0 {
		return nil
	}
	rows, err := r.s.searchRead(ctx, modelMemo, []any{[]any{"id", "in", ids}}, map[string]any{"fields": []string{"id", "code"}})
	if err != nil {
		return err
	}
	codes := make(map[int64]string, len(rows))
	for _, row := range rows {
		codes[row.int64("id")] = row.str("code")
	}
	for i := range shipments {
		if ref := shipments[i].FinancialRef; ref != nil {
			shipments[i].FinancialCode = codes[*ref]
		}
	}
	return nil
}

func (r *reader) attachLines(ctx context.Context, shipments []warehouse.Shipment) error {
	ids := make([]any, len(shipments))
	index := make(map[int64]int, len(shipments))
	for i, sh := range shipments {
		ids[i] = sh.ID
		index[sh.ID] = i
		shipments[i].Lines = []warehouse.LineItem{}
	}
	rows, err := r.s.searchRead(ctx, modelMove, []any{[]any{"picking_id", "in", ids}}, map[string]any{
		"fields": lineFields,
		"order":  "picking_id, id",
	})
	if err != nil {
		return err
	}
	for _, row := range rows {
		line := toLine(row)
		if i, ok := index[line.ShipmentID]; ok {
			shipments[i].Lines = append(shipments[i].Lines, line)
		}
	}
	return nil
}

// ============================================================================
// LOCATIONS AND REFERENCES
// ============================================================================

// InternalLocations lists internal locations ordered by full name.
func (s *Store) InternalLocations(ctx context.Context) ([]warehouse.Location, error) {
	rows, err := s.searchRead(ctx, modelLocation, []any{[]any{"usage", "=", warehouse.LocationUsageInternal}}, map[string]any{
		"fields": []string{"id", "complete_name", "name", "location_id", "usage"},
		"order":  "complete_name, id",
	})
	if err != nil {
		return nil, err
	}
	out := make([]warehouse.Location, 0, len(rows))
	for _, row := range rows {
		name := row.str("complete_name")
		if name == "" {
			name = row.str("name")
		}
		parent, _ := row.many2one("location_id")
		out = append(out, warehouse.Location{
			ID:       row.int64("id"),
			Name:     name,
			ParentID: parent,
			Usage:    row.str("usage"),
		})
	}
	return out, nil
}

// ResolveRef looks up a "module.name" external identifier.
func (s *Store) ResolveRef(ctx context.Context, ref string) (int64, error) {
	module, name := zones.SplitRef(ref)
	rows, err := s.searchRead(ctx, modelData, []any{
		[]any{"module", "=", module},
		[]any{"name", "=", name},
		[]any{"model", "=", modelLocation},
	}, map[string]any{"fields": []string{"res_id"}, "limit": 1})
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || rows[0].int64("res_id") == 0 {
		return 0, fmt.Errorf("%s: %w", ref, zones.ErrRefNotFound)
	}
	return rows[0].int64("res_id"), nil
}

// ============================================================================
// CONVERSION
// ============================================================================

func toShipment(row record) (warehouse.Shipment, error) {
	scheduled, err := row.date("scheduled_date")
	if err != nil {
		return warehouse.Shipment{}, err
	}
	arrival, err := row.date("actual_date_of_arrival")
	if err != nil {
		return warehouse.Shipment{}, err
	}
	customerID, customerName := row.many2one("customer_id")
	financialRef, _ := row.many2one("financial_id")
	warehouseID, _ := row.many2one("warehouse_id")
	destLocation, _ := row.many2one("location_dest_id")
	_, related := row.many2one("related_inbound_shipment")

	return warehouse.Shipment{
		ID:               row.int64("id"),
		Name:             row.str("name"),
		Status:           warehouse.Status(row.str("inventory_status")),
		PickingType:      warehouse.PickingType(row.str("picking_type_code")),
		ScheduledDate:    scheduled,
		ArrivalDate:      arrival,
		CustomerID:       customerID,
		CustomerName:     customerName,
		Vessel:           row.str("intended_vessel"),
		AreaChargeable:   row.float("area_chargeable"),
		WarehouseManaged: row.boolean("is_warehouse_inventory"),
		FinancialRef:     financialRef,
		WarehouseID:      warehouseID,
		DestLocationID:   destLocation,
		SupplierPO:       row.str("supplier_po_number"),
		WaybillNumber:    row.str("receiving_waybill_number"),
		RelatedInbound:   related,
	}, nil
}

func toLine(row record) warehouse.LineItem {
	shipmentID, _ := row.many2one("picking_id")
	_, uom := row.many2one("product_uom")
	source, _ := row.many2one("location_id")
	dest, _ := row.many2one("location_dest_id")
	line := warehouse.LineItem{
		ID:                   row.int64("id"),
		ProductName:          row.str("name"),
		UoM:                  uom,
		Critical:             row.boolean("item_classification_critical"),
		Dangerous:            row.boolean("item_classification_dangerous"),
		DangerousClass:       row.str("dangerous_goods_class"),
		TemperatureSensitive: row.boolean("item_classification_temperature"),
		LabelPrinted:         row.boolean("is_label_printed"),
		SourceLocationID:     source,
		DestLocationID:       dest,
		Quantity:             row.float("product_uom_qty"),
		InStockQty:           row.float("remaining_qty"),
		NoOfItems:            int(row.float("no_of_items")),
		LengthM:              row.float("length_mtr"),
		WidthM:               row.float("width_mtr"),
		HeightM:              row.float("height_mtr"),
		WeightKg:             row.float("weight_kg"),
	}
	if shipmentID != nil {
		line.ShipmentID = *shipmentID
	}
	return line
}

// wrapErr tags host failures with warehouse.ErrUpstream. XML-RPC faults carry
// the host's error text; context errors pass through.
func wrapErr(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var fault xmlrpc.FaultError
	if errors.As(err, &fault) {
		return fmt.Errorf("%w: odoo fault %d: %s", warehouse.ErrUpstream, fault.Code, fault.String)
	}
	return fmt.Errorf("%w: %w", warehouse.ErrUpstream, err)
}
