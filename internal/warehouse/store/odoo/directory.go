package odoo

import (
	"context"
	"fmt"
	"sort"

	"github.com/odyssey-erp/odyssey-wms/internal/rbac"
)

const (
	modelUsers  = "res.users"
	modelGroups = "res.groups"
)

// Directory resolves host users and their security groups over XML-RPC.
type Directory struct {
	s *Store
}

// NewDirectory constructs a Directory sharing the store's executor.
func NewDirectory(exec Executor) *Directory {
	return &Directory{s: New(exec)}
}

func (d *Directory) user(ctx context.Context, userID int64, fields ...string) (record, error) {
	rows, err := d.s.searchRead(ctx, modelUsers, []any{[]any{"id", "=", userID}}, map[string]any{
		"fields": fields,
		"limit":  1,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("user %d: %w", userID, rbac.ErrNotFound)
	}
	return rows[0], nil
}

// UserGroups implements rbac.Directory. Groups are returned as external
// identifiers; groups without one are skipped.
func (d *Directory) UserGroups(ctx context.Context, userID int64) ([]string, error) {
	row, err := d.user(ctx, userID, "groups_id")
	if err != nil {
		return nil, err
	}
	ids, _ := row["groups_id"].([]any)
	if len(ids) == 0 {
		return []string{}, nil
	}
	refs, err := d.s.searchRead(ctx, modelData, []any{
		[]any{"model", "=", modelGroups},
		[]any{"res_id", "in", ids},
	}, map[string]any{"fields": []string{"module", "name"}})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		out = append(out, ref.str("module")+"."+ref.str("name"))
	}
	sort.Strings(out)
	return out, nil
}

// UserPartner implements rbac.Directory.
func (d *Directory) UserPartner(ctx context.Context, userID int64) (int64, error) {
	row, err := d.user(ctx, userID, "partner_id")
	if err != nil {
		return 0, err
	}
	id, _ := row.many2one("partner_id")
	if id == nil {
		return 0, nil
	}
	return *id, nil
}
