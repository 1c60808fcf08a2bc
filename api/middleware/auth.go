package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/localdrop-backend/api/responses"
	pkgAuth "github.com/angelmondragon/localdrop-backend/pkg/auth"
	"github.com/angelmondragon/localdrop-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/localdrop-backend/pkg/errors"
	"github.com/angelmondragon/localdrop-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the claims.
// Tokens are minted by the identity service; this API only verifies them.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			storefrontID := ""
			if claims.StorefrontID != nil {
				storefrontID = claims.StorefrontID.String()
			}
			ctx := WithPrincipal(r.Context(), claims.UserID.String(), string(claims.Role), storefrontID)

			if logg != nil {
				ctx = logg.WithUserID(ctx, claims.UserID.String())
				ctx = logg.WithActorRole(ctx, string(claims.Role))
				if storefrontID != "" {
					ctx = logg.WithStorefrontID(ctx, storefrontID)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
