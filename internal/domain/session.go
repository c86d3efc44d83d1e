package domain

import "time"

// Session is the verified identity attached to every authenticated request.
// A session is either fully valid or treated as absent; there is no partial
// trust.
type Session struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Role constants
const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

// CanMutate reports whether the session's role may invoke control and
// parameter-write endpoints. Viewers are read-only.
func (s *Session) CanMutate() bool {
	return s != nil && s.Role == RoleAdmin
}
