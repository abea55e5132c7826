package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/openshelf/openshelf/internal/auth/domain"
	"github.com/openshelf/openshelf/internal/auth/store"
)

type sessionsRepo struct {
	db dbtx
}

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, share_id, expires_at, ip, user_agent, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.Token, toNullString(s.UserID), toNullString(s.ShareID),
		toUnix(s.ExpiresAt), s.IP, s.UserAgent, toUnix(time.Now()))
	return err
}

func (r *sessionsRepo) GetSessionAuth(ctx context.Context, token string, now time.Time) (domain.SessionAuth, error) {
	var (
		s         domain.Session
		userID    sql.NullString
		shareID   sql.NullString
		expiresAt int64
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT token, user_id, share_id, expires_at, ip, user_agent, created_at
		 FROM sessions WHERE token = ? AND expires_at > ?`,
		token, toUnix(now)).
		Scan(&s.Token, &userID, &shareID, &expiresAt, &s.IP, &s.UserAgent, &createdAt)
	if err != nil {
		return domain.SessionAuth{}, mapNotFound(err)
	}
	s.UserID = fromNullString(userID)
	s.ShareID = fromNullString(shareID)
	s.ExpiresAt = fromUnix(expiresAt)
	s.CreatedAt = fromUnix(createdAt)

	auth := domain.SessionAuth{Session: s}

	switch {
	case s.UserID != nil:
		users := &usersRepo{db: r.db}
		u, err := users.GetUserByID(ctx, *s.UserID)
		if err != nil {
			return domain.SessionAuth{}, err
		}
		roles := &rolesRepo{db: r.db}
		role, err := roles.GetRoleByID(ctx, u.RoleID)
		if err != nil {
			return domain.SessionAuth{}, err
		}
		auth.User = &u
		auth.Role = &role

	case s.ShareID != nil:
		shares := &sharesRepo{db: r.db}
		sh, err := shares.GetShareByID(ctx, *s.ShareID)
		if err != nil {
			return domain.SessionAuth{}, err
		}
		auth.Share = &sh
		if sh.RoleID != nil {
			roles := &rolesRepo{db: r.db}
			role, err := roles.GetRoleByID(ctx, *sh.RoleID)
			if err != nil {
				return domain.SessionAuth{}, err
			}
			auth.ShareRole = &role
		}
	}

	return auth, nil
}

func (r *sessionsRepo) RotateSession(ctx context.Context, oldToken, newToken string, expiresAt, now time.Time) error {
	// Conditional update: the row must still hold oldToken and be
	// unexpired. A concurrent refresh that already rotated it leaves zero
	// matching rows, so the loser gets ErrNotFound instead of silently
	// duplicating the session.
	res, err := r.db.ExecContext(ctx,
		`UPDATE sessions SET token = ?, expires_at = ? WHERE token = ? AND expires_at > ?`,
		newToken, toUnix(expiresAt), oldToken, toUnix(now))
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

func (r *sessionsRepo) DeleteSessionByToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	return err
}

func (r *sessionsRepo) DeleteExpiredSessions(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, toUnix(now))
	return err
}
