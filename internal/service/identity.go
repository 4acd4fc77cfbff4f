package service

import "github.com/google/uuid"

// Roles known to the API. Review capability belongs to trainers and admins.
const (
	RoleEmployee = "employee"
	RoleTrainer  = "trainer"
	RoleAdmin    = "admin"
)

// Identity is the authenticated caller, resolved from the bearer token by the
// auth middleware and passed explicitly into every service call. Services
// never read caller identity from ambient state.
type Identity struct {
	UserID uuid.UUID
	Role   string
}

// IsZero reports whether no authenticated caller is present.
func (i Identity) IsZero() bool {
	return i.UserID == uuid.Nil
}

// IsAdmin reports whether the caller holds the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// CanReview reports whether the caller may record review decisions.
func (i Identity) CanReview() bool {
	return i.Role == RoleAdmin || i.Role == RoleTrainer
}
