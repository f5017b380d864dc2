package predicate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-wms/internal/warehouse"
)

// ============================================================================
// CONSTRUCTION
// ============================================================================

func TestEmptyMembershipNeverWidens(t *testing.T) {
	assert.Equal(t, False, In[int64](FieldCustomerID))
	assert.Equal(t, False, ChildOf(FieldDestLocation, nil))
	assert.Equal(t, True, NotIn[string](FieldStatus))
}

func TestAndSimplification(t *testing.T) {
	a := Eq(FieldStatus, warehouse.StatusDone)
	b := IsSet(FieldFinancialRef)

	assert.Equal(t, True, And())
	assert.Equal(t, a, And(a, True))
	assert.Equal(t, False, And(a, False, b))

	nested := And(a, And(b, a))
	j, ok := nested.(Junction)
	require.True(t, ok)
	assert.Equal(t, AndKind, j.Kind)
	assert.Len(t, j.Terms, 3)
}

func TestOrSimplification(t *testing.T) {
	a := Eq(FieldWarehouseManaged, true)
	assert.Equal(t, False, Or())
	assert.Equal(t, a, Or(False, a))
	assert.Equal(t, True, Or(a, True))

	mixed := Or(a, And(a, IsSet(FieldLines)))
	j, ok := mixed.(Junction)
	require.True(t, ok)
	assert.Equal(t, OrKind, j.Kind)
	assert.Len(t, j.Terms, 2)
}

func TestValuesAreNormalised(t *testing.T) {
	c := Eq(FieldCustomerID, 42).(Cond)
	assert.Equal(t, int64(42), c.Value)

	c = Eq(FieldScheduledDate, time.Date(2025, 1, 2, 17, 30, 0, 0, time.UTC)).(Cond)
	assert.Equal(t, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), c.Value)

	c = In(FieldStatus, warehouse.StatusArrived, warehouse.StatusAllocated).(Cond)
	assert.Equal(t, []any{"arrived", "allocated"}, c.Value)
}

func TestFieldsAndString(t *testing.T) {
	e := And(Eq(FieldStatus, "done"), Or(IsSet(FieldFinancialRef), Eq(FieldLineCritical, true)))
	assert.Equal(t, []Field{FieldFinancialRef, FieldLineCritical, FieldStatus}, Fields(e))
	assert.Equal(t, `(status = "done" AND (financial_ref set OR line.critical = true))`, e.String())
	assert.True(t, FieldLineCritical.LineLevel())
	assert.False(t, FieldStatus.LineLevel())
	assert.False(t, Field("bogus").Valid())
}

// ============================================================================
// HOST DOMAIN
// ============================================================================

func TestDomainPrefixNotation(t *testing.T) {
	e := And(
		Or(Eq(FieldWarehouseManaged, true), IsSet(FieldFinancialRef)),
		Eq(FieldCustomerID, int64(7)),
		ILike(FieldVessel, "Aurora"),
	)
	domain, err := Domain(e)
	require.NoError(t, err)
	assert.Equal(t, []any{
		"&", "&",
		"|",
		[]any{"is_warehouse_inventory", "=", true},
		[]any{"financial_id", "!=", false},
		[]any{"customer_id", "=", int64(7)},
		[]any{"intended_vessel", "ilike", "Aurora"},
	}, domain)
}

func TestDomainConstants(t *testing.T) {
	domain, err := Domain(True)
	require.NoError(t, err)
	assert.Empty(t, domain)

	domain, err = Domain(False)
	require.NoError(t, err)
	assert.Equal(t, []any{[]any{0, "=", 1}}, domain)
}

func TestDomainDatesAndChildOf(t *testing.T) {
	e := And(
		Le(FieldArrivalDate, time.Date(2025, 5, 6, 0, 0, 0, 0, time.UTC)),
		ChildOf(FieldLineDestLocation, []int64{3, 9}),
	)
	domain, err := Domain(e)
	require.NoError(t, err)
	assert.Equal(t, []any{
		"&",
		[]any{"actual_date_of_arrival", "<=", "2025-05-06"},
		[]any{"move_ids_without_package.location_dest_id", "child_of", []any{int64(3), int64(9)}},
	}, domain)
}

func TestDomainScheduledDateRendersDayRange(t *testing.T) {
	day := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	domain, err := Domain(And(
		Eq(FieldScheduledDate, day),
		Eq(FieldStatus, warehouse.StatusDraft),
	))
	require.NoError(t, err)
	assert.Equal(t, []any{
		"&",
		"&",
		[]any{"scheduled_date", ">=", "2025-06-15 00:00:00"},
		[]any{"scheduled_date", "<", "2025-06-16 00:00:00"},
		[]any{"inventory_status", "=", "draft"},
	}, domain)

	domain, err = Domain(Gt(FieldScheduledDate, day))
	require.NoError(t, err)
	assert.Equal(t, []any{[]any{"scheduled_date", ">=", "2025-06-16 00:00:00"}}, domain)
}

func TestDomainRejectsUnknownField(t *testing.T) {
	_, err := Domain(Eq(Field("bogus"), 1))
	require.Error(t, err)
}
