package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const adminSecretHeader = "X-Admin-Secret"

// AdminAuth admits requests carrying the shared admin secret header or a
// bearer token whose role is admin.
func AdminAuth(jwtCfg config.JWTConfig, adminCfg config.AdminConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	secret := strings.TrimSpace(adminCfg.Secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if provided := strings.TrimSpace(r.Header.Get(adminSecretHeader)); provided != "" {
				if secret == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid admin secret"))
					return
				}
				ctx := WithIdentity(r.Context(), "", "", string(enums.UserRoleAdmin))
				if logg != nil {
					ctx = logg.WithActorRole(ctx, string(enums.UserRoleAdmin))
				}
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			claims, err := bearerClaims(jwtCfg, r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if !claims.IsAdmin() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required"))
				return
			}
			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims, logg)))
		})
	}
}
