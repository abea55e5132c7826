package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/openshelf/openshelf/internal/auth/domain"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, first_name, last_name, email, password_hash, status, role_id,
	provider, external_id, auth_data, tfa_secret, last_access, created_at, updated_at`

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u          domain.User
		status     string
		externalID sql.NullString
		authData   sql.NullString
		tfaSecret  sql.NullString
		lastAccess sql.NullInt64
		createdAt  int64
		updatedAt  int64
	)

	err := row.Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &status, &u.RoleID,
		&u.Provider, &externalID, &authData, &tfaSecret, &lastAccess, &createdAt, &updatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.Status = domain.Status(status)
	u.ExternalID = fromNullString(externalID)
	if authData.Valid {
		u.AuthData = []byte(authData.String)
	}
	u.TFASecret = fromNullString(tfaSecret)
	u.LastAccess = fromNullUnix(lastAccess)
	u.CreatedAt = fromUnix(createdAt)
	u.UpdatedAt = fromUnix(updatedAt)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *usersRepo) GetUserByExternal(ctx context.Context, identifier, provider string) (domain.User, error) {
	// Local accounts match on email, SSO accounts on external_id. The
	// provider name must match either way so a wrong provider looks
	// exactly like a missing user.
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE provider = ? AND (email = ? COLLATE NOCASE OR external_id = ?)`,
		provider, identifier, identifier)
	return scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	now := toUnix(time.Now())
	var authData sql.NullString
	if len(u.AuthData) > 0 {
		authData = sql.NullString{String: string(u.AuthData), Valid: true}
	}

	status := u.Status
	if status == "" {
		status = domain.StatusActive
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, first_name, last_name, email, password_hash, status, role_id,
			provider, external_id, auth_data, tfa_secret, last_access, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.FirstName, u.LastName, u.Email, u.PasswordHash, string(status), u.RoleID,
		u.Provider, toNullString(u.ExternalID), authData, toNullString(u.TFASecret),
		toNullUnix(u.LastAccess), now, now)
	return err
}

func (r *usersRepo) UpdateStatus(ctx context.Context, userID string, status domain.Status) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), toUnix(time.Now()), userID)
	return requireRow(res, err)
}

func (r *usersRepo) UpdateLastAccess(ctx context.Context, userID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_access = ?, updated_at = ? WHERE id = ?`,
		toUnix(at), toUnix(time.Now()), userID)
	return requireRow(res, err)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		newHash, toUnix(time.Now()), userID)
	return requireRow(res, err)
}

func (r *usersRepo) UpdateTFASecret(ctx context.Context, userID string, secret string) error {
	var ns sql.NullString
	if secret != "" {
		ns = sql.NullString{String: secret, Valid: true}
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET tfa_secret = ?, updated_at = ? WHERE id = ?`,
		ns, toUnix(time.Now()), userID)
	return requireRow(res, err)
}
