package predicate

import (
	"fmt"
	"time"
)

const hostDatetime = "2006-01-02 15:04:05"

// hostFields maps fields onto the host ERP's stock.picking field paths.
var hostFields = map[Field]string{
	FieldID:               "id",
	FieldStatus:           "inventory_status",
	FieldPickingType:      "picking_type_code",
	FieldScheduledDate:    "scheduled_date",
	FieldArrivalDate:      "actual_date_of_arrival",
	FieldCustomerID:       "customer_id",
	FieldCustomerName:     "customer_id.name",
	FieldVessel:           "intended_vessel",
	FieldWarehouseManaged: "is_warehouse_inventory",
	FieldFinancialRef:     "financial_id",
	FieldWarehouseID:      "warehouse_id",
	FieldDestLocation:     "location_dest_id",
	FieldLines:            "move_ids_without_package",
	FieldLineCritical:     "move_ids_without_package.item_classification_critical",
	FieldLineDangerous:    "move_ids_without_package.item_classification_dangerous",
	FieldLineTemperature:  "move_ids_without_package.item_classification_temperature",
	FieldLineLabelPrinted: "move_ids_without_package.is_label_printed",
	FieldLineDestLocation: "move_ids_without_package.location_dest_id",
}

// hostDatetimes lists fields stored as timestamps on the host. Calendar-day
// comparisons against them are rendered as half-open ranges.
var hostDatetimes = map[Field]bool{
	FieldScheduledDate: true,
}

// HostField returns the host field path for f.
func HostField(f Field) (string, bool) {
	name, ok := hostFields[f]
	return name, ok
}

// Domain renders e in the host's prefix notation: a flat list of operators
// ("&", "|") and three-element leaves. True renders as the empty domain.
func Domain(e Expr) ([]any, error) {
	if c, ok := e.(Const); ok && bool(c) {
		return []any{}, nil
	}
	return domainTerms(e)
}

func domainTerms(e Expr) ([]any, error) {
	switch t := e.(type) {
	case Const:
		if t {
			return []any{[]any{1, "=", 1}}, nil
		}
		return []any{[]any{0, "=", 1}}, nil
	case Cond:
		if day, ok := t.Value.(time.Time); ok && hostDatetimes[t.Field] {
			return dayRange(t, day)
		}
		leaf, err := domainLeaf(t)
		if err != nil {
			return nil, err
		}
		return []any{leaf}, nil
	case Junction:
		op := "&"
		if t.Kind == OrKind {
			op = "|"
		}
		out := make([]any, 0, len(t.Terms)*2)
		for i := 1; i < len(t.Terms); i++ {
			out = append(out, op)
		}
		for _, term := range t.Terms {
			sub, err := domainTerms(term)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
		return out, nil
	}
	return nil, fmt.Errorf("predicate: unsupported expression %T", e)
}

func domainLeaf(c Cond) ([]any, error) {
	name, ok := hostFields[c.Field]
	if !ok {
		return nil, fmt.Errorf("predicate: unknown field %q", c.Field)
	}
	switch c.Op {
	case OpSet:
		return []any{name, "!=", false}, nil
	case OpUnset:
		return []any{name, "=", false}, nil
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe, OpIn, OpNotIn, OpILike, OpChildOf:
		return []any{name, string(c.Op), hostValue(c.Value)}, nil
	}
	return nil, fmt.Errorf("predicate: unsupported operator %q", c.Op)
}

func hostValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.Format(time.DateOnly)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = hostValue(item)
		}
		return out
	case []int64:
		out := make([]any, len(t))
		for i, id := range t {
			out[i] = id
		}
		return out
	}
	return v
}

func dayRange(c Cond, day time.Time) ([]any, error) {
	name, ok := hostFields[c.Field]
	if !ok {
		return nil, fmt.Errorf("predicate: unknown field %q", c.Field)
	}
	start := day.Format(hostDatetime)
	end := day.AddDate(0, 0, 1).Format(hostDatetime)
	switch c.Op {
	case OpEq:
		return []any{"&", []any{name, ">=", start}, []any{name, "<", end}}, nil
	case OpNe:
		return []any{"|", "|", []any{name, "=", false}, []any{name, "<", start}, []any{name, ">=", end}}, nil
	case OpLt:
		return []any{[]any{name, "<", start}}, nil
	case OpLe:
		return []any{[]any{name, "<", end}}, nil
	case OpGt:
		return []any{[]any{name, ">=", end}}, nil
	case OpGe:
		return []any{[]any{name, ">=", start}}, nil
	}
	return nil, fmt.Errorf("predicate: unsupported operator %q on %s", c.Op, c.Field)
}
