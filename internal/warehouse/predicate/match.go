package predicate

import (
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/odyssey-erp/odyssey-wms/internal/warehouse"
)

// LocationTree answers hierarchy questions for child_of conditions.
type LocationTree interface {
	// Within reports whether location id equals or descends from any of ancestors.
	Within(id int64, ancestors []int64) bool
}

// Match evaluates e against a shipment. Archived lines never match line-level
// conditions. A nil tree treats child_of as plain membership.
func Match(e Expr, s warehouse.Shipment, tree LocationTree) bool {
	switch t := e.(type) {
	case Const:
		return bool(t)
	case Junction:
		if t.Kind == AndKind {
			for _, term := range t.Terms {
				if !Match(term, s, tree) {
					return false
				}
			}
			return true
		}
		for _, term := range t.Terms {
			if Match(term, s, tree) {
				return true
			}
		}
		return false
	case Cond:
		return matchCond(t, s, tree)
	}
	return false
}

func matchCond(c Cond, s warehouse.Shipment, tree LocationTree) bool {
	if c.Field == FieldLines {
		has := false
		for _, line := range s.Lines {
			if !line.Archived {
				has = true
				break
			}
		}
		if c.Op == OpUnset {
			return !has
		}
		return has
	}
	if c.Field.LineLevel() {
		for _, line := range s.Lines {
			if line.Archived {
				continue
			}
			value, set := lineValue(line, c.Field)
			if compare(c, value, set, tree) {
				return true
			}
		}
		return false
	}
	value, set := shipmentValue(s, c.Field)
	return compare(c, value, set, tree)
}

func shipmentValue(s warehouse.Shipment, f Field) (any, bool) {
	switch f {
	case FieldID:
		return s.ID, true
	case FieldStatus:
		return string(s.Status), s.Status != ""
	case FieldPickingType:
		return string(s.PickingType), s.PickingType != ""
	case FieldScheduledDate:
		return derefDate(s.ScheduledDate)
	case FieldArrivalDate:
		return derefDate(s.ArrivalDate)
	case FieldCustomerID:
		return derefID(s.CustomerID)
	case FieldCustomerName:
		return s.CustomerName, s.CustomerName != ""
	case FieldVessel:
		return s.Vessel, s.Vessel != ""
	case FieldWarehouseManaged:
		return s.WarehouseManaged, true
	case FieldFinancialRef:
		return derefID(s.FinancialRef)
	case FieldWarehouseID:
		return derefID(s.WarehouseID)
	case FieldDestLocation:
		return derefID(s.DestLocationID)
	}
	return nil, false
}

func lineValue(l warehouse.LineItem, f Field) (any, bool) {
	switch f {
	case FieldLineCritical:
		return l.Critical, true
	case FieldLineDangerous:
		return l.Dangerous, true
	case FieldLineTemperature:
		return l.TemperatureSensitive, true
	case FieldLineLabelPrinted:
		return l.LabelPrinted, true
	case FieldLineDestLocation:
		return derefID(l.DestLocationID)
	}
	return nil, false
}

func compare(c Cond, value any, set bool, tree LocationTree) bool {
	switch c.Op {
	case OpSet:
		return set
	case OpUnset:
		return !set
	case OpNe:
		return !set || !equal(value, c.Value)
	case OpNotIn:
		return !set || !member(value, c.Value)
	}
	if !set {
		return false
	}
	switch c.Op {
	case OpEq:
		return equal(value, c.Value)
	case OpIn:
		return member(value, c.Value)
	case OpLt, OpLe, OpGt, OpGe:
		n, ok := order(value, c.Value)
		if !ok {
			return false
		}
		switch c.Op {
		case OpLt:
			return n < 0
		case OpLe:
			return n <= 0
		case OpGt:
			return n > 0
		}
		return n >= 0
	case OpILike:
		s, _ := value.(string)
		pattern, _ := c.Value.(string)
		fold := cases.Fold()
		return strings.Contains(fold.String(s), fold.String(pattern))
	case OpChildOf:
		id, _ := value.(int64)
		ancestors, _ := c.Value.([]int64)
		if tree == nil {
			for _, a := range ancestors {
				if a == id {
					return true
				}
			}
			return false
		}
		return tree.Within(id, ancestors)
	}
	return false
}

func equal(a, b any) bool {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && warehouse.Date(ta).Equal(warehouse.Date(tb))
	}
	return a == b
}

func member(v any, list any) bool {
	items, _ := list.([]any)
	for _, item := range items {
		if equal(v, item) {
			return true
		}
	}
	return false
}

// order compares two values of the same kind. ok is false for mismatched kinds.
func order(a, b any) (n int, ok bool) {
	switch ta := a.(type) {
	case time.Time:
		tb, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return warehouse.Date(ta).Compare(warehouse.Date(tb)), true
	case int64:
		tb, ok := b.(int64)
		if !ok {
			return 0, false
		}
		switch {
		case ta < tb:
			return -1, true
		case ta > tb:
			return 1, true
		}
		return 0, true
	case string:
		tb, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(ta, tb), true
	}
	return 0, false
}

func derefDate(t *time.Time) (any, bool) {
	if t == nil {
		return nil, false
	}
	return warehouse.Date(*t), true
}

func derefID(id *int64) (any, bool) {
	if id == nil {
		return nil, false
	}
	return *id, true
}
