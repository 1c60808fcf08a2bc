package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/localdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/localdrop-backend/pkg/errors"
)

// Principal is the typed view of the identity seeded by Auth.
type Principal struct {
	UserID       uuid.UUID
	Role         enums.Role
	StorefrontID *uuid.UUID
}

func PrincipalFromContext(ctx context.Context) (Principal, error) {
	rawUser := UserIDFromContext(ctx)
	if rawUser == "" {
		return Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	userID, err := uuid.Parse(rawUser)
	if err != nil {
		return Principal{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	role, err := enums.ParseRole(RoleFromContext(ctx))
	if err != nil {
		return Principal{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid role")
	}

	principal := Principal{UserID: userID, Role: role}
	if rawStorefront := StorefrontIDFromContext(ctx); rawStorefront != "" {
		storefrontID, err := uuid.Parse(rawStorefront)
		if err != nil {
			return Principal{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid storefront id")
		}
		principal.StorefrontID = &storefrontID
	}
	return principal, nil
}
