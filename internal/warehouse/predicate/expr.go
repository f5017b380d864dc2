// Package predicate models composable boolean filters over warehouse shipments.
//
// Expressions are immutable values. Backends compile them into their own query
// language (SQL, host domains) or evaluate them in memory with Match.
package predicate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-wms/internal/warehouse"
)

// Field names an attribute a predicate can test. The set is closed.
type Field string

const (
	FieldID               Field = "id"
	FieldStatus           Field = "status"
	FieldPickingType      Field = "picking_type"
	FieldScheduledDate    Field = "scheduled_date"
	FieldArrivalDate      Field = "arrival_date"
	FieldCustomerID       Field = "customer_id"
	FieldCustomerName     Field = "customer_name"
	FieldVessel           Field = "vessel"
	FieldWarehouseManaged Field = "warehouse_managed"
	FieldFinancialRef     Field = "financial_ref"
	FieldWarehouseID      Field = "warehouse_id"
	FieldDestLocation     Field = "dest_location"
	// FieldLines tests for the existence of active lines; only Set and Unset apply.
	FieldLines Field = "lines"

	FieldLineCritical     Field = "line.critical"
	FieldLineDangerous    Field = "line.dangerous"
	FieldLineTemperature  Field = "line.temperature_sensitive"
	FieldLineLabelPrinted Field = "line.label_printed"
	FieldLineDestLocation Field = "line.dest_location"
)

// Kind describes the value domain of a field.
type Kind int

const (
	KindInt Kind = iota
	KindString
	KindBool
	KindDate
	KindLocation
	KindRelation
)

type fieldSpec struct {
	kind Kind
	line bool
}

var fieldSpecs = map[Field]fieldSpec{
	FieldID:               {kind: KindInt},
	FieldStatus:           {kind: KindString},
	FieldPickingType:      {kind: KindString},
	FieldScheduledDate:    {kind: KindDate},
	FieldArrivalDate:      {kind: KindDate},
	FieldCustomerID:       {kind: KindInt},
	FieldCustomerName:     {kind: KindString},
	FieldVessel:           {kind: KindString},
	FieldWarehouseManaged: {kind: KindBool},
	FieldFinancialRef:     {kind: KindInt},
	FieldWarehouseID:      {kind: KindInt},
	FieldDestLocation:     {kind: KindLocation},
	FieldLines:            {kind: KindRelation},
	FieldLineCritical:     {kind: KindBool, line: true},
	FieldLineDangerous:    {kind: KindBool, line: true},
	FieldLineTemperature:  {kind: KindBool, line: true},
	FieldLineLabelPrinted: {kind: KindBool, line: true},
	FieldLineDestLocation: {kind: KindLocation, line: true},
}

// Valid reports whether f belongs to the closed field set.
func (f Field) Valid() bool {
	_, ok := fieldSpecs[f]
	return ok
}

// LineLevel reports whether f is evaluated against line items with any-line semantics.
func (f Field) LineLevel() bool {
	return fieldSpecs[f].line
}

// Kind returns the value domain of f.
func (f Field) Kind() Kind {
	return fieldSpecs[f].kind
}

// Op is a comparison operator.
type Op string

const (
	OpEq      Op = "="
	OpNe      Op = "!="
	OpLt      Op = "<"
	OpLe      Op = "<="
	OpGt      Op = ">"
	OpGe      Op = ">="
	OpIn      Op = "in"
	OpNotIn   Op = "not in"
	OpILike   Op = "ilike"
	OpChildOf Op = "child_of"
	OpSet     Op = "set"
	OpUnset   Op = "unset"
)

// Expr is a boolean expression. Implementations are Cond, Junction and Const.
type Expr interface {
	String() string
	expr()
}

// Cond compares one field against a value.
type Cond struct {
	Field Field
	Op    Op
	Value any
}

func (Cond) expr() {}

func (c Cond) String() string {
	switch c.Op {
	case OpSet, OpUnset:
		return fmt.Sprintf("%s %s", c.Field, c.Op)
	}
	return fmt.Sprintf("%s %s %s", c.Field, c.Op, formatValue(c.Value))
}

// JunctionKind selects conjunction or disjunction.
type JunctionKind int

const (
	AndKind JunctionKind = iota
	OrKind
)

// Junction joins two or more terms.
type Junction struct {
	Kind  JunctionKind
	Terms []Expr
}

func (Junction) expr() {}

func (j Junction) String() string {
	sep := " AND "
	if j.Kind == OrKind {
		sep = " OR "
	}
	parts := make([]string, len(j.Terms))
	for i, term := range j.Terms {
		parts[i] = term.String()
	}
	return "(" + strings.Join(parts, sep) + ")"
}

// Const is a constant truth value.
type Const bool

func (Const) expr() {}

func (c Const) String() string {
	if c {
		return "TRUE"
	}
	return "FALSE"
}

var (
	// True matches every record.
	True Expr = Const(true)
	// False matches nothing.
	False Expr = Const(false)
)

// Eq matches records whose field equals v.
func Eq(f Field, v any) Expr { return Cond{Field: f, Op: OpEq, Value: normalize(v)} }

// Ne matches records whose field differs from v, including unset values.
func Ne(f Field, v any) Expr { return Cond{Field: f, Op: OpNe, Value: normalize(v)} }

// Lt matches records whose field is set and strictly less than v.
func Lt(f Field, v any) Expr { return Cond{Field: f, Op: OpLt, Value: normalize(v)} }

// Le matches records whose field is set and at most v.
func Le(f Field, v any) Expr { return Cond{Field: f, Op: OpLe, Value: normalize(v)} }

// Gt matches records whose field is set and strictly greater than v.
func Gt(f Field, v any) Expr { return Cond{Field: f, Op: OpGt, Value: normalize(v)} }

// Ge matches records whose field is set and at least v.
func Ge(f Field, v any) Expr { return Cond{Field: f, Op: OpGe, Value: normalize(v)} }

// ILike matches a case-insensitive substring.
func ILike(f Field, pattern string) Expr { return Cond{Field: f, Op: OpILike, Value: pattern} }

// IsSet matches records where the field has a value.
func IsSet(f Field) Expr { return Cond{Field: f, Op: OpSet} }

// IsUnset matches records where the field has no value.
func IsUnset(f Field) Expr { return Cond{Field: f, Op: OpUnset} }

// In matches membership. An empty list matches nothing.
func In[T any](f Field, values ...T) Expr {
	if len(values) == 0 {
		return False
	}
	return Cond{Field: f, Op: OpIn, Value: normalizeList(values)}
}

// NotIn excludes the listed values. An empty list excludes nothing.
func NotIn[T any](f Field, values ...T) Expr {
	if len(values) == 0 {
		return True
	}
	return Cond{Field: f, Op: OpNotIn, Value: normalizeList(values)}
}

// ChildOf matches locations equal to or nested under any of ids. An empty
// list matches nothing.
func ChildOf(f Field, ids []int64) Expr {
	if len(ids) == 0 {
		return False
	}
	cp := make([]int64, len(ids))
	copy(cp, ids)
	return Cond{Field: f, Op: OpChildOf, Value: cp}
}

// And conjoins terms. False absorbs, True is dropped, nested conjunctions are flattened.
func And(terms ...Expr) Expr {
	return join(AndKind, terms)
}

// Or disjoins terms. True absorbs, False is dropped, nested disjunctions are flattened.
func Or(terms ...Expr) Expr {
	return join(OrKind, terms)
}

func join(kind JunctionKind, terms []Expr) Expr {
	identity, absorbing := True, False
	if kind == OrKind {
		identity, absorbing = False, True
	}
	flat := make([]Expr, 0, len(terms))
	for _, term := range terms {
		switch t := term.(type) {
		case nil:
			continue
		case Const:
			if Expr(t) == absorbing {
				return absorbing
			}
			continue
		case Junction:
			if t.Kind == kind {
				flat = append(flat, t.Terms...)
				continue
			}
		}
		flat = append(flat, term)
	}
	switch len(flat) {
	case 0:
		return identity
	case 1:
		return flat[0]
	}
	return Junction{Kind: kind, Terms: flat}
}

// Fields lists every field referenced by e, sorted.
func Fields(e Expr) []Field {
	seen := map[Field]struct{}{}
	var walk func(Expr)
	walk = func(e Expr) {
		switch t := e.(type) {
		case Cond:
			seen[t.Field] = struct{}{}
		case Junction:
			for _, term := range t.Terms {
				walk(term)
			}
		}
	}
	walk(e)
	out := make([]Field, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func normalize(v any) any {
	switch t := v.(type) {
	case warehouse.Status:
		return string(t)
	case warehouse.PickingType:
		return string(t)
	case time.Time:
		return warehouse.Date(t)
	case int:
		return int64(t)
	case int32:
		return int64(t)
	}
	return v
}

func normalizeList[T any](values []T) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = normalize(v)
	}
	return out
}

func formatValue(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.Format(time.DateOnly)
	case string:
		return fmt.Sprintf("%q", t)
	case []any:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = formatValue(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return fmt.Sprint(v)
}
