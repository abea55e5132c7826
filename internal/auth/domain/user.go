package domain

import "time"

// Status is the lifecycle state of a user account. Only active users may
// authenticate; suspended covers both manual suspension and rate-limit
// lockout.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusInvited   Status = "invited"
	StatusArchived  Status = "archived"
)

type User struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string  // argon2id PHC encoded, empty for SSO-only accounts
	Status       Status
	RoleID       string
	Provider     string  // name of the auth provider that owns this account
	ExternalID   *string // provider-side identifier (nullable for local accounts)
	AuthData     []byte  // opaque provider state blob (e.g. SSO tokens)
	TFASecret    *string // TOTP secret (nullable, base32 encoded)
	LastAccess   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
