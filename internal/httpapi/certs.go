package httpapi

import (
	"net/http"

	httpmw "github.com/ferriskey/ferriskey/internal/httpapi/middleware"
	"github.com/ferriskey/ferriskey/internal/keystore"
)

// handleCerts implements spec §6's "GET .../protocol/openid-connect/certs":
// a JWKS document carrying the realm's current public signing key.
func (s *Server) handleCerts(w http.ResponseWriter, r *http.Request) {
	realm, err := httpmw.GetRealm(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_server_error"})
		return
	}

	keyPair, err := s.keys.GetOrGenerateKey(r.Context(), realm.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	jwk, err := keystore.ToJWK(keyPair)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"keys": []any{jwk}})
}
