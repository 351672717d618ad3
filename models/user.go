package models

type UserRole string

const (
	RoleAdmin     UserRole = "admin"
	RoleOrganizer UserRole = "organizer"
	RolePlayer    UserRole = "player"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleOrganizer, RolePlayer:
		return true
	}
	return false
}

// Session is the authenticated caller of a request. Identity is issued by the
// external auth provider; this service only verifies it.
type Session struct {
	UserID string   `json:"user_id"`
	Email  string   `json:"email"`
	Role   UserRole `json:"role"`
}

// CanOrganize reports whether the session may publish tournaments.
func (s *Session) CanOrganize() bool {
	return s != nil && (s.Role == RoleOrganizer || s.Role == RoleAdmin)
}

// Owns reports whether the session may manage a resource owned by ownerID.
func (s *Session) Owns(ownerID string) bool {
	if s == nil {
		return false
	}
	return s.Role == RoleAdmin || (s.UserID != "" && s.UserID == ownerID)
}
