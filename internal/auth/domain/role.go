package domain

import "time"

// Role carries the access flags joined into issued tokens. Read-only to the
// auth core.
type Role struct {
	ID          string
	Name        string
	AdminAccess bool
	AppAccess   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
