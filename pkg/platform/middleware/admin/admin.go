// Package admin guards operator endpoints with a signed bearer token.
package admin

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKeyAdminActor struct{}

// AdminRole is the role claim required on operator tokens.
const AdminRole = "ops"

// GetAdminActor retrieves the admin actor identifier from the context.
// Returns empty string if this is not an authenticated admin request.
func GetAdminActor(ctx context.Context) string {
	if actor, ok := ctx.Value(contextKeyAdminActor{}).(string); ok {
		return actor
	}
	return ""
}

type adminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// RequireAdminToken validates the Authorization bearer token with the
// shared HMAC key and the ops role claim. The token subject becomes the
// admin actor for audit attribution.
func RequireAdminToken(signingKey string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeUnauthorized(w)
				return
			}

			claims := &adminClaims{}
			parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(signingKey), nil
			})
			if err != nil || !parsed.Valid || claims.Role != AdminRole {
				logger.WarnContext(r.Context(), "admin token rejected",
					"path", r.URL.Path,
					"error", err,
				)
				writeUnauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), contextKeyAdminActor{}, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"success":false,"error":"unauthorized","message":"admin token required"}`))
}
