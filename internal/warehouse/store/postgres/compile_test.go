package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-wms/internal/warehouse"
	"github.com/odyssey-erp/odyssey-wms/internal/warehouse/predicate"
)

func compileExpr(t *testing.T, e predicate.Expr) (string, []any) {
	t.Helper()
	c := &compiler{}
	sql, err := where(c, e)
	require.NoError(t, err)
	return sql, c.args
}

func TestCompileConstants(t *testing.T) {
	sql, args := compileExpr(t, predicate.True)
	assert.Equal(t, "sp.active IS NOT FALSE AND TRUE", sql)
	assert.Empty(t, args)

	sql, _ = compileExpr(t, predicate.False)
	assert.Equal(t, "sp.active IS NOT FALSE AND FALSE", sql)
}

func TestCompileShipmentConditions(t *testing.T) {
	day := time.Date(2025, 6, 15, 13, 0, 0, 0, time.UTC)
	e := predicate.And(
		predicate.Eq(predicate.FieldWarehouseManaged, true),
		predicate.Eq(predicate.FieldCustomerID, int64(42)),
		predicate.In(predicate.FieldStatus, warehouse.StatusArrived, warehouse.StatusAllocated),
		predicate.Lt(predicate.FieldArrivalDate, day),
	)

	sql, args := compileExpr(t, e)
	assert.Equal(t,
		"sp.active IS NOT FALSE AND (sp.is_warehouse_inventory IS TRUE AND sp.customer_id = $1"+
			" AND sp.inventory_status = ANY($2) AND sp.actual_date_of_arrival < $3)",
		sql)
	require.Len(t, args, 3)
	assert.Equal(t, int64(42), args[0])
	assert.Equal(t, []string{"arrived", "allocated"}, args[1])
	assert.Equal(t, "2025-06-15", args[2])
}

func TestCompileNegationsIncludeNulls(t *testing.T) {
	sql, args := compileExpr(t, predicate.Or(
		predicate.Ne(predicate.FieldVessel, "MV Aurora"),
		predicate.NotIn(predicate.FieldWarehouseID, int64(1), int64(2)),
		predicate.Ne(predicate.FieldWarehouseManaged, true),
	))
	assert.Equal(t,
		"sp.active IS NOT FALSE AND (sp.intended_vessel IS DISTINCT FROM $1"+
			" OR (sp.warehouse_id IS NULL OR sp.warehouse_id <> ALL($2))"+
			" OR sp.is_warehouse_inventory IS NOT TRUE)",
		sql)
	assert.Equal(t, []any{"MV Aurora", []int64{1, 2}}, args)
}

func TestCompileLineConditionsUseExists(t *testing.T) {
	sql, _ := compileExpr(t, predicate.Eq(predicate.FieldLineCritical, true))
	assert.Equal(t,
		"sp.active IS NOT FALSE AND EXISTS (SELECT 1 FROM stock_move sm WHERE sm.picking_id = sp.id"+
			" AND sm.active IS NOT FALSE AND sm.item_classification_critical IS TRUE)",
		sql)

	sql, _ = compileExpr(t, predicate.IsUnset(predicate.FieldLines))
	assert.True(t, strings.HasPrefix(strings.TrimPrefix(sql, "sp.active IS NOT FALSE AND "), "NOT EXISTS ("))
}

func TestCompileChildOfUsesParentPath(t *testing.T) {
	sql, args := compileExpr(t, predicate.ChildOf(predicate.FieldLineDestLocation, []int64{7, 9}))
	assert.Contains(t, sql, "sm.location_dest_id IN (SELECT child.id FROM stock_location child")
	assert.Contains(t, sql, "child.parent_path LIKE anc.parent_path || '%'")
	assert.Contains(t, sql, "anc.id = ANY($1)")
	assert.Equal(t, []any{[]int64{7, 9}}, args)
}

func TestCompileILikeEscapesWildcards(t *testing.T) {
	sql, args := compileExpr(t, predicate.ILike(predicate.FieldCustomerName, "50%_off"))
	assert.Equal(t, "sp.active IS NOT FALSE AND rp.name ILIKE $1", sql)
	assert.Equal(t, []any{`%50\%\_off%`}, args)
}

func TestCompilePlaceholdersContinueAcrossStatement(t *testing.T) {
	c := &compiler{}
	_, err := where(c, predicate.Eq(predicate.FieldID, int64(5)))
	require.NoError(t, err)
	assert.Equal(t, "$2", c.arg(200))
	assert.Len(t, c.args, 2)
}

func TestCompileRejectsMalformedConditions(t *testing.T) {
	c := &compiler{}
	_, err := c.compile(predicate.Cond{Field: predicate.FieldWarehouseManaged, Op: predicate.OpEq, Value: "yes"})
	assert.True(t, errors.Is(err, errUnsupported))

	_, err = c.compile(predicate.Cond{Field: predicate.FieldStatus, Op: predicate.OpIn, Value: []any{}})
	assert.True(t, errors.Is(err, errUnsupported))

	_, err = c.compile(predicate.Cond{Field: predicate.Field("bogus"), Op: predicate.OpEq, Value: 1})
	assert.True(t, errors.Is(err, errUnsupported))
}

func TestWrapErrMarksUpstreamButNotCancellation(t *testing.T) {
	assert.True(t, errors.Is(wrapErr("count", errors.New("boom")), warehouse.ErrUpstream))

	err := wrapErr("count", context.Canceled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, warehouse.ErrUpstream))
}
