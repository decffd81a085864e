package session

import "time"

// Persisted storage keys.
const (
	KeyUser         = "user"
	KeyAccessToken  = "auth_token"
	KeyRefreshToken = "refresh_token"
	KeyDeviceID     = "device_id"
)

// User is the profile record returned by the backend on authentication.
type User struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
	AuthType string `json:"auth_type,omitempty"`
}

// Session is the in-memory view of the persisted session.
//
// User and AccessToken are either both set or both empty. Subject and
// ExpiresAt are derived from the access token when a TokenInspector is
// configured and the token carries those claims.
type Session struct {
	User         *User
	AccessToken  string
	RefreshToken string

	Subject   string
	ExpiresAt time.Time
}

// Authenticated reports whether the session carries a user and token.
func (s Session) Authenticated() bool {
	return s.User != nil && s.AccessToken != ""
}

// Expired reports whether the token expiry is known and has passed.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

func (s Session) clone() Session {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}
