package postgres

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-wms/internal/warehouse/predicate"
)

var errUnsupported = errors.New("postgres: unsupported predicate")

// columns maps fields onto the host schema. Shipment fields are relative to
// stock_picking sp (joined with stock_picking_type spt and res_partner rp);
// line fields are relative to stock_move sm.
var columns = map[predicate.Field]string{
	predicate.FieldID:               "sp.id",
	predicate.FieldStatus:           "sp.inventory_status",
	predicate.FieldPickingType:      "spt.code",
	predicate.FieldScheduledDate:    "sp.scheduled_date::date",
	predicate.FieldArrivalDate:      "sp.actual_date_of_arrival",
	predicate.FieldCustomerID:       "sp.customer_id",
	predicate.FieldCustomerName:     "rp.name",
	predicate.FieldVessel:           "sp.intended_vessel",
	predicate.FieldWarehouseManaged: "sp.is_warehouse_inventory",
	predicate.FieldFinancialRef:     "sp.financial_id",
	predicate.FieldWarehouseID:      "sp.warehouse_id",
	predicate.FieldDestLocation:     "sp.location_dest_id",
	predicate.FieldLineCritical:     "sm.item_classification_critical",
	predicate.FieldLineDangerous:    "sm.item_classification_dangerous",
	predicate.FieldLineTemperature:  "sm.item_classification_temperature",
	predicate.FieldLineLabelPrinted: "sm.is_label_printed",
	predicate.FieldLineDestLocation: "sm.location_dest_id",
}

const activeMoves = `SELECT 1 FROM stock_move sm WHERE sm.picking_id = sp.id AND sm.active IS NOT FALSE`

const childLocations = `SELECT child.id FROM stock_location child
	JOIN stock_location anc ON child.parent_path LIKE anc.parent_path || '%'
	WHERE anc.id = ANY(%s)`

// compiler renders predicates as parameterised SQL. Placeholders are numbered
// from the current length of args, so one compiler can serve a whole statement.
type compiler struct {
	args []any
}

func (c *compiler) arg(v any) string {
	c.args = append(c.args, v)
	return fmt.Sprintf("$%d", len(c.args))
}

func (c *compiler) compile(e predicate.Expr) (string, error) {
	switch t := e.(type) {
	case predicate.Const:
		if t {
			return "TRUE", nil
		}
		return "FALSE", nil
	case predicate.Junction:
		sep := " AND "
		if t.Kind == predicate.OrKind {
			sep = " OR "
		}
		parts := make([]string, 0, len(t.Terms))
		for _, term := range t.Terms {
			sql, err := c.compile(term)
			if err != nil {
				return "", err
			}
			parts = append(parts, sql)
		}
		return "(" + strings.Join(parts, sep) + ")", nil
	case predicate.Cond:
		return c.cond(t)
	}
	return "", fmt.Errorf("%w: %T", errUnsupported, e)
}

func (c *compiler) cond(cond predicate.Cond) (string, error) {
	if cond.Field == predicate.FieldLines {
		switch cond.Op {
		case predicate.OpSet:
			return "EXISTS (" + activeMoves + ")", nil
		case predicate.OpUnset:
			return "NOT EXISTS (" + activeMoves + ")", nil
		}
		return "", fmt.Errorf("%w: %s %s", errUnsupported, cond.Field, cond.Op)
	}
	col, ok := columns[cond.Field]
	if !ok {
		return "", fmt.Errorf("%w: field %q", errUnsupported, cond.Field)
	}
	sql, err := c.comparison(col, cond)
	if err != nil {
		return "", err
	}
	if cond.Field.LineLevel() {
		return "EXISTS (" + activeMoves + " AND " + sql + ")", nil
	}
	return sql, nil
}

func (c *compiler) comparison(col string, cond predicate.Cond) (string, error) {
	if cond.Field.Kind() == predicate.KindBool {
		want, ok := cond.Value.(bool)
		if !ok {
			return "", fmt.Errorf("%w: %s needs a boolean", errUnsupported, cond.Field)
		}
		switch cond.Op {
		case predicate.OpEq:
			return boolTest(col, want), nil
		case predicate.OpNe:
			return boolTest(col, !want), nil
		}
		return "", fmt.Errorf("%w: %s %s", errUnsupported, cond.Field, cond.Op)
	}

	switch cond.Op {
	case predicate.OpSet:
		return col + " IS NOT NULL", nil
	case predicate.OpUnset:
		return col + " IS NULL", nil
	case predicate.OpEq:
		return col + " = " + c.arg(scalar(cond.Value)), nil
	case predicate.OpNe:
		return col + " IS DISTINCT FROM " + c.arg(scalar(cond.Value)), nil
	case predicate.OpLt, predicate.OpLe, predicate.OpGt, predicate.OpGe:
		return col + " " + string(cond.Op) + " " + c.arg(scalar(cond.Value)), nil
	case predicate.OpIn, predicate.OpNotIn:
		list, err := typedList(cond.Value)
		if err != nil {
			return "", fmt.Errorf("%s: %w", cond.Field, err)
		}
		if cond.Op == predicate.OpIn {
			return col + " = ANY(" + c.arg(list) + ")", nil
		}
		return "(" + col + " IS NULL OR " + col + " <> ALL(" + c.arg(list) + "))", nil
	case predicate.OpILike:
		pattern, _ := cond.Value.(string)
		return col + " ILIKE " + c.arg("%"+escapeLike(pattern)+"%"), nil
	case predicate.OpChildOf:
		ids, ok := cond.Value.([]int64)
		if !ok {
			return "", fmt.Errorf("%w: child_of needs location ids", errUnsupported)
		}
		return col + " IN (" + fmt.Sprintf(childLocations, c.arg(ids)) + ")", nil
	}
	return "", fmt.Errorf("%w: operator %q", errUnsupported, cond.Op)
}

// boolTest follows the host convention that NULL booleans read as false.
func boolTest(col string, want bool) string {
	if want {
		return col + " IS TRUE"
	}
	return col + " IS NOT TRUE"
}

func scalar(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.Format(time.DateOnly)
	}
	return v
}

// typedList converts a membership list into a slice pgx can encode as an array.
func typedList(v any) (any, error) {
	items, ok := v.([]any)
	if !ok || len(items) == 0 {
		return nil, fmt.Errorf("%w: empty membership list", errUnsupported)
	}
	switch items[0].(type) {
	case string:
		out := make([]string, len(items))
		for i, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: mixed list", errUnsupported)
			}
			out[i] = s
		}
		return out, nil
	case int64:
		out := make([]int64, len(items))
		for i, item := range items {
			n, ok := item.(int64)
			if !ok {
				return nil, fmt.Errorf("%w: mixed list", errUnsupported)
			}
			out[i] = n
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: list of %T", errUnsupported, items[0])
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
