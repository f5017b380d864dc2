package shared

// Warehouse permissions.
const (
	// PermDashboardView grants the customer dashboard, scoped to the caller's partner.
	PermDashboardView = "warehouse.dashboard.view"
	// PermDashboardStaff grants the staff dashboard across all partners.
	PermDashboardStaff = "warehouse.dashboard.staff"
	// PermInventoryAdmin lifts the partner restriction on the customer dashboard.
	PermInventoryAdmin = "warehouse.inventory.admin"
)

// WarehouseScopes lists all warehouse permissions.
func WarehouseScopes() []string {
	return []string{
		PermDashboardView,
		PermDashboardStaff,
		PermInventoryAdmin,
	}
}
