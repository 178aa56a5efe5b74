package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims represents the JWT claims issued by the cooperative's identity provider.
type Claims struct {
	jwt.RegisteredClaims
	UserID uuid.UUID `json:"user_id"`
	Roles  []string  `json:"roles"`
}

// HasRole checks if the claims include the specified role.
func (c Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// PrimaryRole returns the most privileged role carried by the token.
// Tokens without a known role are treated as clients.
func (c Claims) PrimaryRole() string {
	switch {
	case c.HasRole(RoleAdmin):
		return RoleAdmin
	case c.HasRole(RoleStaff):
		return RoleStaff
	default:
		return RoleClient
	}
}

// Role constants
const (
	RoleAdmin  = "admin"
	RoleStaff  = "staff"
	RoleClient = "client"
)
