package rbac

import "context"

// StaticUser is a fixed directory entry.
type StaticUser struct {
	PartnerID int64    `json:"partner_id"`
	Groups    []string `json:"groups"`
}

// StaticDirectory serves users from memory, keyed by user id.
type StaticDirectory map[int64]StaticUser

// UserGroups implements Directory.
func (d StaticDirectory) UserGroups(_ context.Context, userID int64) ([]string, error) {
	u, ok := d[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]string(nil), u.Groups...), nil
}

// UserPartner implements Directory.
func (d StaticDirectory) UserPartner(_ context.Context, userID int64) (int64, error) {
	u, ok := d[userID]
	if !ok {
		return 0, ErrNotFound
	}
	return u.PartnerID, nil
}
