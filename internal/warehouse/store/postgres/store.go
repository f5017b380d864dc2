// Package postgres reads warehouse data directly from the host ERP database.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-wms/internal/platform/db"
	"github.com/odyssey-erp/odyssey-wms/internal/warehouse"
	"github.com/odyssey-erp/odyssey-wms/internal/warehouse/predicate"
	"github.com/odyssey-erp/odyssey-wms/internal/warehouse/store"
	"github.com/odyssey-erp/odyssey-wms/internal/warehouse/zones"
)

// querier is satisfied by pgx.Tx and *pgxpool.Pool.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements the dashboard repository on top of a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

// New constructs a Store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Snapshot runs fn inside a read-only RepeatableRead transaction.
func (s *Store) Snapshot(ctx context.Context, fn func(ctx context.Context, r store.Reader) error) error {
	var fnErr error
	err := db.ReadSnapshot(ctx, s.pool, func(tx pgx.Tx) error {
		fnErr = fn(ctx, &reader{q: tx})
		return fnErr
	})
	if err != nil && fnErr == nil {
		return wrapErr("snapshot", err)
	}
	return err
}

// ============================================================================
// READER
// ============================================================================

const fromShipments = `
FROM stock_picking sp
LEFT JOIN stock_picking_type spt ON spt.id = sp.picking_type_id
LEFT JOIN res_partner rp ON rp.id = sp.customer_id`

type reader struct {
	q querier
}

// where compiles e into a WHERE clause that also hides archived shipments.
func where(c *compiler, e predicate.Expr) (string, error) {
	sql, err := c.compile(e)
	if err != nil {
		return "", err
	}
	return "sp.active IS NOT FALSE AND " + sql, nil
}

func (r *reader) Count(ctx context.Context, e predicate.Expr) (int, error) {
	c := &compiler{}
	clause, err := where(c, e)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*)`+fromShipments+` WHERE `+clause, c.args...).Scan(&n); err != nil {
		return 0, wrapErr("count", err)
	}
	return int(n), nil
}

func (r *reader) SumArea(ctx context.Context, e predicate.Expr) (float64, error) {
	c := &compiler{}
	clause, err := where(c, e)
	if err != nil {
		return 0, err
	}
	var total float64
	query := `SELECT COALESCE(SUM(sp.area_chargeable), 0)::float8` + fromShipments + ` WHERE ` + clause
	if err := r.q.QueryRow(ctx, query, c.args...).Scan(&total); err != nil {
		return 0, wrapErr("sum area", err)
	}
	return total, nil
}

const selectShipments = `
SELECT sp.id, COALESCE(sp.name, ''), COALESCE(sp.inventory_status, ''), COALESCE(spt.code, ''),
	sp.scheduled_date, sp.actual_date_of_arrival, sp.customer_id, COALESCE(rp.name, ''),
	COALESCE(sp.intended_vessel, ''), COALESCE(sp.area_chargeable, 0)::float8,
	COALESCE(sp.is_warehouse_inventory, false), sp.financial_id, COALESCE(mm.code, ''),
	sp.warehouse_id, sp.location_dest_id, COALESCE(sp.supplier_po_number, ''),
	COALESCE(sp.receiving_waybill_number, ''), COALESCE(rel.name, '')`

const joinReferences = `
LEFT JOIN memo_model mm ON mm.id = sp.financial_id
LEFT JOIN stock_picking rel ON rel.id = sp.related_inbound_shipment`

func (r *reader) Search(ctx context.Context, e predicate.Expr, opts store.SearchOptions) ([]warehouse.Shipment, error) {
	c := &compiler{}
	clause, err := where(c, e)
	if err != nil {
		return nil, err
	}
	query := selectShipments + fromShipments + joinReferences +
		` WHERE ` + clause + ` ORDER BY sp.id DESC LIMIT ` + c.arg(opts.ClampLimit())

	rows, err := r.q.Query(ctx, query, c.args...)
	if err != nil {
		return nil, wrapErr("search", err)
	}
	defer rows.Close()

	out := make([]warehouse.Shipment, 0)
	for rows.Next() {
		var (
			sh          warehouse.Shipment
			status      string
			pickingType string
		)
		if err := rows.Scan(
			&sh.ID, &sh.Name, &status, &pickingType,
			&sh.ScheduledDate, &sh.ArrivalDate, &sh.CustomerID, &sh.CustomerName,
			&sh.Vessel, &sh.AreaChargeable,
			&sh.WarehouseManaged, &sh.FinancialRef, &sh.FinancialCode,
			&sh.WarehouseID, &sh.DestLocationID, &sh.SupplierPO,
			&sh.WaybillNumber, &sh.RelatedInbound,
		); err != nil {
			return nil, wrapErr("scan shipment", err)
		}
		sh.Status = warehouse.Status(status)
		sh.PickingType = warehouse.PickingType(pickingType)
		out = append(out, sh)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("search", err)
	}

	if opts.WithLines && len(out) > 0 {
		if err := r.attachLines(ctx, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

const selectLines = `
SELECT sm.id, sm.picking_id, COALESCE(sm.name, ''), COALESCE(uu.name->>'en_US', ''),
	COALESCE(sm.item_classification_critical, false), COALESCE(sm.item_classification_dangerous, false),
	COALESCE(sm.dangerous_goods_class, ''), COALESCE(sm.item_classification_temperature, false),
	COALESCE(sm.is_label_printed, false), sm.location_id, sm.location_dest_id,
	COALESCE(sm.product_uom_qty, 0)::float8, COALESCE(sm.no_of_items, 0)::int,
	COALESCE(sm.length_mtr, 0)::float8, COALESCE(sm.width_mtr, 0)::float8,
	COALESCE(sm.height_mtr, 0)::float8, COALESCE(sm.weight_kg, 0)::float8,
	COALESCE(sm.remaining_qty, 0)::float8
FROM stock_move sm
LEFT JOIN uom_uom uu ON uu.id = sm.product_uom
WHERE sm.picking_id = ANY($1) AND sm.active IS NOT FALSE
ORDER BY sm.picking_id, sm.id`

func (r *reader) attachLines(ctx context.Context, shipments []warehouse.Shipment) error {
	ids := make([]int64, len(shipments))
	index := make(map[int64]int, len(shipments))
	for i, sh := range shipments {
		ids[i] = sh.ID
		index[sh.ID] = i
		shipments[i].Lines = []warehouse.LineItem{}
	}

	rows, err := r.q.Query(ctx, selectLines, ids)
	if err != nil {
		return wrapErr("lines", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line warehouse.LineItem
		if err := rows.Scan(
			&line.ID, &line.ShipmentID, &line.ProductName, &line.UoM,
			&line.Critical, &line.Dangerous,
			&line.DangerousClass, &line.TemperatureSensitive,
			&line.LabelPrinted, &line.SourceLocationID, &line.DestLocationID,
			&line.Quantity, &line.NoOfItems,
			&line.LengthM, &line.WidthM,
			&line.HeightM, &line.WeightKg,
			&line.InStockQty,
		); err != nil {
			return wrapErr("scan line", err)
		}
		if i, ok := index[line.ShipmentID]; ok {
			shipments[i].Lines = append(shipments[i].Lines, line)
		}
	}
	if err := rows.Err(); err != nil {
		return wrapErr("lines", err)
	}
	return nil
}

// ============================================================================
// LOCATIONS AND REFERENCES
// ============================================================================

// InternalLocations lists active internal locations ordered by full name.
func (s *Store) InternalLocations(ctx context.Context) ([]warehouse.Location, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, COALESCE(complete_name, name, ''), location_id, COALESCE(usage, '')
		FROM stock_location
		WHERE usage = 'internal' AND active IS NOT FALSE
		ORDER BY complete_name, id`)
	if err != nil {
		return nil, wrapErr("locations", err)
	}
	defer rows.Close()

	out := make([]warehouse.Location, 0)
	for rows.Next() {
		var loc warehouse.Location
		if err := rows.Scan(&loc.ID, &loc.Name, &loc.ParentID, &loc.Usage); err != nil {
			return nil, wrapErr("scan location", err)
		}
		out = append(out, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("locations", err)
	}
	return out, nil
}

// ResolveRef looks up a "module.name" reference in ir_model_data.
func (s *Store) ResolveRef(ctx context.Context, ref string) (int64, error) {
	module, name := zones.SplitRef(strings.TrimSpace(ref))
	var id int64
	err := s.pool.QueryRow(ctx, `
		SELECT res_id FROM ir_model_data
		WHERE module = $1 AND name = $2 AND model = 'stock.location'`, module, name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%s: %w", ref, zones.ErrRefNotFound)
	}
	if err != nil {
		return 0, wrapErr("resolve ref", err)
	}
	return id, nil
}

// wrapErr tags database failures with warehouse.ErrUpstream. Context errors
// are passed through so callers can tell cancellation from outages.
func wrapErr(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("postgres %s (%s): %w: %w", op, pgErr.Code, warehouse.ErrUpstream, err)
	}
	return fmt.Errorf("postgres %s: %w: %w", op, warehouse.ErrUpstream, err)
}
