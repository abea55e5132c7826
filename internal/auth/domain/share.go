package domain

import "time"

// Share is an anonymous share-link scoped to a single item of a collection.
// A share session is valid only while DateEnd has not passed (nil = no
// expiry). MaxUses nil means unlimited.
type Share struct {
	ID         string
	Collection string
	Item       string
	RoleID     *string // role override applied to share sessions
	DateEnd    *time.Time
	TimesUsed  int
	MaxUses    *int
	CreatedAt  time.Time
}

// Expired reports whether the share can no longer mint or refresh sessions.
func (s Share) Expired(now time.Time) bool {
	return s.DateEnd != nil && !now.Before(*s.DateEnd)
}

// Exhausted reports whether the usage budget has been consumed.
func (s Share) Exhausted() bool {
	return s.MaxUses != nil && s.TimesUsed >= *s.MaxUses
}
