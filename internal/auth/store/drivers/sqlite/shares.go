package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/openshelf/openshelf/internal/auth/domain"
)

type sharesRepo struct {
	db dbtx
}

func (r *sharesRepo) GetShareByID(ctx context.Context, id string) (domain.Share, error) {
	var (
		s         domain.Share
		roleID    sql.NullString
		dateEnd   sql.NullInt64
		maxUses   sql.NullInt64
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, collection, item, role_id, date_end, times_used, max_uses, created_at
		 FROM shares WHERE id = ?`, id).
		Scan(&s.ID, &s.Collection, &s.Item, &roleID, &dateEnd, &s.TimesUsed, &maxUses, &createdAt)
	if err != nil {
		return domain.Share{}, mapNotFound(err)
	}
	s.RoleID = fromNullString(roleID)
	s.DateEnd = fromNullUnix(dateEnd)
	s.MaxUses = fromNullInt(maxUses)
	s.CreatedAt = fromUnix(createdAt)
	return s, nil
}

func (r *sharesRepo) CreateShare(ctx context.Context, s domain.Share) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO shares (id, collection, item, role_id, date_end, times_used, max_uses, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Collection, s.Item, toNullString(s.RoleID),
		toNullUnix(s.DateEnd), s.TimesUsed, toNullInt(s.MaxUses), toUnix(time.Now()))
	return err
}

func (r *sharesRepo) IncrementShareUses(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE shares SET times_used = times_used + 1 WHERE id = ?`, id)
	return requireRow(res, err)
}
