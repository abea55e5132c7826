package domain

import "time"

// ShareScope restricts a share token to one item of one collection.
type ShareScope struct {
	Collection string `json:"collection"`
	Item       string `json:"item"`
}

// TokenPayload is the claim set issued into access tokens. ID is nil for
// share-only sessions; Share is nil for user sessions.
type TokenPayload struct {
	ID          *string     `json:"id,omitempty"`
	Role        string      `json:"role"`
	AppAccess   bool        `json:"app_access"`
	AdminAccess bool        `json:"admin_access"`
	Share       *string     `json:"share,omitempty"`
	ShareScope  *ShareScope `json:"share_scope,omitempty"`
}

// Claims flattens the payload into the claim map handed to the auth.jwt
// filter hook and then to the signer. Hooks may add keys; the mandatory ones
// are re-asserted by the service after the hook runs.
func (p TokenPayload) Claims() map[string]any {
	m := map[string]any{
		"role":         p.Role,
		"app_access":   p.AppAccess,
		"admin_access": p.AdminAccess,
	}
	if p.ID != nil {
		m["id"] = *p.ID
	}
	if p.Share != nil {
		m["share"] = *p.Share
	}
	if p.ShareScope != nil {
		m["share_scope"] = map[string]any{
			"collection": p.ShareScope.Collection,
			"item":       p.ShareScope.Item,
		}
	}
	return m
}

// TokenPair is what login/refresh return: the signed access token, the
// opaque refresh token, and the access token lifetime.
type TokenPair struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	Expires      time.Duration `json:"expires"` // access token TTL
	UserID       *string       `json:"id,omitempty"`
}
