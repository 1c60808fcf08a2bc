package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/localdrop-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID       uuid.UUID
	Role         enums.Role
	StorefrontID *uuid.UUID
	JTI          string
}

// AccessTokenClaims is the typed JWT presented by buyers, vendors and couriers.
// Vendor tokens carry the storefront they operate.
type AccessTokenClaims struct {
	UserID       uuid.UUID  `json:"user_id"`
	Role         enums.Role `json:"role"`
	StorefrontID *uuid.UUID `json:"storefront_id,omitempty"`
	jwt.RegisteredClaims
}
