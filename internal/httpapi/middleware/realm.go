package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ferriskey/ferriskey/internal/ports"
)

// RealmContext resolves the `{realm}` path segment every spec §6 endpoint
// is scoped under, and injects the full Realm so handlers never re-look it
// up (mirrors the teacher's TenantContext, scoped to path instead of a
// header since realm is part of the URL by spec).
func RealmContext(realms ports.RealmRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			name := chi.URLParam(r, "realm")
			if name == "" {
				http.Error(w, "missing realm", http.StatusBadRequest)
				return
			}

			realm, err := realms.GetByName(r.Context(), name)
			if err != nil {
				if err == ports.ErrNotFound {
					http.Error(w, "realm not found", http.StatusNotFound)
					return
				}
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), RealmKey, realm)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
