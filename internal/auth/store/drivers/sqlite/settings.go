package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type settingsRepo struct {
	db dbtx
}

const settingAuthLoginAttempts = "auth_login_attempts"

// AuthLoginAttempts reads the failed-login budget. A missing row, NULL or
// empty value disables rate limiting (nil budget).
func (r *settingsRepo) AuthLoginAttempts(ctx context.Context) (*int, error) {
	var value sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, settingAuthLoginAttempts).
		Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !value.Valid || strings.TrimSpace(value.String) == "" {
		return nil, nil
	}

	n, err := strconv.Atoi(strings.TrimSpace(value.String))
	if err != nil {
		return nil, fmt.Errorf("settings: %s is not an integer: %w", settingAuthLoginAttempts, err)
	}
	return &n, nil
}

// SetAuthLoginAttempts upserts the failed-login budget. A nil budget stores
// NULL, which AuthLoginAttempts reads back as "limiting disabled".
func (r *settingsRepo) SetAuthLoginAttempts(ctx context.Context, attempts *int) error {
	var value sql.NullString
	if attempts != nil {
		value = sql.NullString{String: strconv.Itoa(*attempts), Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		settingAuthLoginAttempts, value)
	return err
}
