// Package identity turns authenticated token claims into domain actors.
package identity

import (
	"context"
	"errors"

	"github.com/coopahorro/dap/internal/domain/valueobject"
	"github.com/coopahorro/dap/pkg/auth"
)

// ErrUnauthenticated is returned when the context carries no usable claims.
var ErrUnauthenticated = errors.New("unauthenticated")

// FromClaims maps token claims onto an actor. Admin outranks staff, and any
// other token is a client.
func FromClaims(claims *auth.Claims) (valueobject.Actor, error) {
	if claims == nil {
		return valueobject.Actor{}, ErrUnauthenticated
	}
	actor, err := valueobject.NewActor(claims.UserID, valueobject.Role(claims.PrimaryRole()))
	if err != nil {
		return valueobject.Actor{}, ErrUnauthenticated
	}
	return actor, nil
}

// FromContext reads the actor attached by the auth middleware.
func FromContext(ctx context.Context) (valueobject.Actor, error) {
	claims, ok := auth.ClaimsFromContext(ctx)
	if !ok {
		return valueobject.Actor{}, ErrUnauthenticated
	}
	return FromClaims(claims)
}
