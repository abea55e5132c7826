package store

import (
	"context"
	"errors"
	"time"

	"github.com/openshelf/openshelf/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement this. Sub-repositories keep concerns tidy and make the
// transactional surface explicit.
type Store interface {
	Users() Users
	Roles() Roles
	Sessions() Sessions
	Shares() Shares
	Settings() Settings
	Activity() Activity

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction: rollback if fn errors,
	// commit otherwise. Preferred over Tx for multi-step writes (session
	// persistence, lockout status flips).
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. Same repos plus Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByExternal resolves the provider-derived identifier for a
	// given provider name. For the local provider the identifier is the
	// email; SSO providers match external_id. A provider-name mismatch is
	// indistinguishable from a missing user (ErrNotFound either way).
	GetUserByExternal(ctx context.Context, identifier, provider string) (domain.User, error)

	// CreateUser inserts a new user (id is app-provided ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateStatus transitions the account status (lockout suspension).
	UpdateStatus(ctx context.Context, userID string, status domain.Status) error

	// UpdateLastAccess stamps the user's last successful authentication.
	UpdateLastAccess(ctx context.Context, userID string, at time.Time) error

	// UpdatePasswordHash sets the password_hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// UpdateTFASecret enrolls (non-empty) or clears (empty) the TOTP secret.
	UpdateTFASecret(ctx context.Context, userID string, secret string) error
}

type Roles interface {
	GetRoleByID(ctx context.Context, id string) (domain.Role, error)
	CreateRole(ctx context.Context, r domain.Role) error
}

type Sessions interface {
	// CreateSession stores a new session row keyed by the opaque token.
	CreateSession(ctx context.Context, s domain.Session) error

	// GetSessionAuth returns an unexpired session joined to its owning
	// user+role or share+override-role. ErrNotFound when no live row
	// matches the token.
	GetSessionAuth(ctx context.Context, token string, now time.Time) (domain.SessionAuth, error)

	// RotateSession conditionally rewrites the token and expiry of the row
	// currently holding oldToken. Zero rows matched (already rotated,
	// expired, or deleted) yields ErrNotFound; this is what makes two
	// concurrent refreshes of the same stale token produce exactly one
	// winner.
	RotateSession(ctx context.Context, oldToken, newToken string, expiresAt, now time.Time) error

	// DeleteSessionByToken removes a session; deleting a missing token is
	// not an error (idempotent logout).
	DeleteSessionByToken(ctx context.Context, token string) error

	// DeleteExpiredSessions is best-effort housekeeping.
	DeleteExpiredSessions(ctx context.Context, now time.Time) error
}

type Shares interface {
	GetShareByID(ctx context.Context, id string) (domain.Share, error)
	CreateShare(ctx context.Context, s domain.Share) error

	// IncrementShareUses bumps times_used by one.
	IncrementShareUses(ctx context.Context, id string) error
}

// Settings is the slice of the settings store this core touches.
type Settings interface {
	// AuthLoginAttempts returns the configured failed-attempt budget, or
	// nil when limiting is disabled.
	AuthLoginAttempts(ctx context.Context) (*int, error)

	// SetAuthLoginAttempts writes the budget; nil disables limiting.
	SetAuthLoginAttempts(ctx context.Context, attempts *int) error
}

// Activity is the audit recorder contract.
type Activity interface {
	RecordLogin(ctx context.Context, userID, ip, userAgent string) error
}
