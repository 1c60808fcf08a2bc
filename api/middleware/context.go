package middleware

import "context"

// identity is what Auth learned from the bearer token.
type identity struct {
	userID       string
	role         string
	storefrontID string
}

type identityKey struct{}

func identityFrom(ctx context.Context) identity {
	if ctx == nil {
		return identity{}
	}
	p, _ := ctx.Value(identityKey{}).(identity)
	return p
}

func UserIDFromContext(ctx context.Context) string { return identityFrom(ctx).userID }

func RoleFromContext(ctx context.Context) string { return identityFrom(ctx).role }

// StorefrontIDFromContext is set for vendor tokens only.
func StorefrontIDFromContext(ctx context.Context) string { return identityFrom(ctx).storefrontID }

// WithPrincipal injects the authenticated principal. Controller tests use it to
// skip token minting.
func WithPrincipal(ctx context.Context, userID, role, storefrontID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, identityKey{}, identity{userID: userID, role: role, storefrontID: storefrontID})
}
