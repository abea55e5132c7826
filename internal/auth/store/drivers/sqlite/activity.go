package sqlite

import (
	"context"
	"time"

	"github.com/openshelf/openshelf/pkg/idx"
)

type activityRepo struct {
	db dbtx
}

func (r *activityRepo) RecordLogin(ctx context.Context, userID, ip, userAgent string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO activity (id, action, user_id, ip, user_agent, created_at)
		 VALUES (?, 'login', ?, ?, ?, ?)`,
		idx.New().String(), userID, ip, userAgent, toUnix(time.Now()))
	return err
}
