package auth

import (
	"github.com/angelmondragon/taskrent-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.AccountRole
	JTI    string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID uuid.UUID         `json:"user_id"`
	Role   enums.AccountRole `json:"role"`
	jwt.RegisteredClaims
}

// Actor is the identity a store operation runs as.
type Actor struct {
	UserID uuid.UUID
	Role   enums.AccountRole
	// System marks scheduled jobs acting without a user.
	System bool
}

// SystemActor is used by the cron worker.
func SystemActor() Actor {
	return Actor{System: true}
}

// ActorFromClaims converts validated claims into an Actor.
func ActorFromClaims(claims *AccessTokenClaims) Actor {
	if claims == nil {
		return Actor{}
	}
	return Actor{UserID: claims.UserID, Role: claims.Role}
}

// IsSupport reports whether the actor is a platform support agent.
func (a Actor) IsSupport() bool {
	return a.Role == enums.AccountRoleSupport
}

// Anonymous reports whether the actor carries no identity at all.
func (a Actor) Anonymous() bool {
	return !a.System && a.UserID == uuid.Nil
}
