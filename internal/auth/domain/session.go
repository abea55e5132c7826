package domain

import "time"

// Session is a persisted refresh-token row. The opaque token value is the
// primary key; rotation rewrites token and expiry in place so a stale token
// never matches a live row. Exactly one of UserID/ShareID is set.
type Session struct {
	Token     string
	UserID    *string
	ShareID   *string
	ExpiresAt time.Time
	IP        string
	UserAgent string
	CreatedAt time.Time
}

// SessionAuth is the session row joined to whichever identity owns it.
// User/Role are set for user sessions, Share/ShareRole for share sessions.
type SessionAuth struct {
	Session   Session
	User      *User
	Role      *Role
	Share     *Share
	ShareRole *Role
}
