package valueobject

import (
	"github.com/google/uuid"

	"github.com/coopahorro/dap/internal/domain/apperror"
)

// Role is the privilege level of an authenticated actor.
type Role string

const (
	RoleClient Role = "client"
	RoleStaff  Role = "staff"
	RoleAdmin  Role = "admin"
)

// Actor is an already-authenticated caller. Authentication happens at the
// transport boundary; the domain only enforces ownership and role guards.
type Actor struct {
	UserID uuid.UUID
	Role   Role
}

// NewActor validates an actor identity.
func NewActor(userID uuid.UUID, role Role) (Actor, error) {
	if userID == uuid.Nil {
		return Actor{}, apperror.ErrInvalidInput.With("actor id is required")
	}
	switch role {
	case RoleClient, RoleStaff, RoleAdmin:
	default:
		return Actor{}, apperror.ErrInvalidInput.With("unknown actor role %q", role)
	}
	return Actor{UserID: userID, Role: role}, nil
}

// IsStaff reports whether the actor is cooperative personnel. Admins are staff.
func (a Actor) IsStaff() bool {
	return a.Role == RoleStaff || a.Role == RoleAdmin
}

// CanAccess reports whether the actor may act on a resource owned by ownerID.
func (a Actor) CanAccess(ownerID uuid.UUID) bool {
	return a.IsStaff() || a.UserID == ownerID
}
