package rbac

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresDirectory reads users and groups from the host database.
type PostgresDirectory struct {
	pool *pgxpool.Pool
}

// NewPostgresDirectory constructs a PostgresDirectory.
func NewPostgresDirectory(pool *pgxpool.Pool) *PostgresDirectory {
	return &PostgresDirectory{pool: pool}
}

// UserGroups lists the external identifiers of the user's groups.
func (d *PostgresDirectory) UserGroups(ctx context.Context, userID int64) ([]string, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT imd.module || '.' || imd.name
		FROM res_groups_users_rel rel
		JOIN res_users u ON u.id = rel.uid AND u.active
		JOIN ir_model_data imd ON imd.model = 'res.groups' AND imd.res_id = rel.gid
		WHERE rel.uid = $1
		ORDER BY 1`, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// UserPartner returns the partner linked to an active user.
func (d *PostgresDirectory) UserPartner(ctx context.Context, userID int64) (int64, error) {
	var partner *int64
	err := d.pool.QueryRow(ctx, `SELECT partner_id FROM res_users WHERE id = $1 AND active`, userID).Scan(&partner)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	if partner == nil {
		return 0, nil
	}
	return *partner, nil
}
