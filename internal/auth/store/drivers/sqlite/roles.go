package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/openshelf/openshelf/internal/auth/domain"
	"github.com/openshelf/openshelf/internal/auth/store"
)

type rolesRepo struct {
	db dbtx
}

func (r *rolesRepo) GetRoleByID(ctx context.Context, id string) (domain.Role, error) {
	var (
		role      domain.Role
		createdAt int64
		updatedAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, admin_access, app_access, created_at, updated_at
		 FROM roles WHERE id = ?`, id).
		Scan(&role.ID, &role.Name, &role.AdminAccess, &role.AppAccess, &createdAt, &updatedAt)
	if err != nil {
		return domain.Role{}, mapNotFound(err)
	}
	role.CreatedAt = fromUnix(createdAt)
	role.UpdatedAt = fromUnix(updatedAt)
	return role, nil
}

func (r *rolesRepo) CreateRole(ctx context.Context, role domain.Role) error {
	now := toUnix(time.Now())
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO roles (id, name, admin_access, app_access, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		role.ID, role.Name, role.AdminAccess, role.AppAccess, now, now)
	return err
}

// requireRow maps an UPDATE that matched no rows to ErrNotFound.
func requireRow(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
