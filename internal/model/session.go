package model

// Session holds the authenticated caller of a request.
// It is injected into the request context by the auth middleware and
// supplies the organisation every query is scoped to.
type Session struct {
	UserID         string
	OrganisationID string
	Email          string
	Role           Role
}

// IsAdmin reports whether the caller has the admin role.
func (s *Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}

// HasRole checks if the session has one of the given roles.
// Admin implies every role.
func (s *Session) HasRole(roles ...Role) bool {
	if s.IsAdmin() {
		return true
	}
	for _, r := range roles {
		if s.Role == r {
			return true
		}
	}
	return false
}
