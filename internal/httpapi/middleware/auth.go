package middleware

import (
	"context"
	"net/http"

	"github.com/ferriskey/ferriskey/internal/domain"
	"github.com/ferriskey/ferriskey/internal/gate"
)

// RequireBearerToken authorizes the request's Authorization header against
// g, requiring requiredScope when non-empty, and injects the resolved
// Identity and JwtClaim. Must run after RealmContext.
func RequireBearerToken(g *gate.Gate, requiredScope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			realm, err := GetRealm(r.Context())
			if err != nil {
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}

			identity, claim, err := g.AuthorizeRequest(r.Context(), realm, r.Header.Get("Authorization"), requiredScope)
			if err != nil {
				status := http.StatusUnauthorized
				if domain.KindOf(err) == domain.KindForbidden {
					status = http.StatusForbidden
				}
				http.Error(w, "invalid_token", status)
				return
			}

			ctx := context.WithValue(r.Context(), IdentityKey, identity)
			ctx = context.WithValue(ctx, ClaimKey, claim)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
