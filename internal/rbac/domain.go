package rbac

import (
	"context"
	"errors"

	"github.com/odyssey-erp/odyssey-wms/internal/shared"
)

// ErrNotFound indicates that the requested user does not exist or is archived.
var ErrNotFound = errors.New("rbac: not found")

// Directory resolves host users. Groups are external identifiers in
// "module.name" form.
type Directory interface {
	UserGroups(ctx context.Context, userID int64) ([]string, error)
	UserPartner(ctx context.Context, userID int64) (int64, error)
}

// Grants maps host groups to the permissions they confer.
type Grants map[string][]string

// DefaultGrants mirrors the host's warehouse security groups.
var DefaultGrants = Grants{
	"warehousing_system.group_inventory_admin": {
		shared.PermDashboardView, shared.PermDashboardStaff, shared.PermInventoryAdmin,
	},
	"stock.group_stock_manager": {shared.PermDashboardView, shared.PermDashboardStaff},
	"stock.group_stock_user":    {shared.PermDashboardView, shared.PermDashboardStaff},
	"base.group_portal":         {shared.PermDashboardView},
	"base.group_user":           {shared.PermDashboardView},
}

// Identity is the resolved caller behind a session.
type Identity struct {
	UserID      int64    `json:"user_id"`
	PartnerID   int64    `json:"partner_id"`
	Permissions []string `json:"permissions"`
}

// Has reports whether the identity holds perm.
func (i Identity) Has(perm string) bool {
	return hasAnyPermission(i.Permissions, normalizePermissions([]string{perm}))
}
