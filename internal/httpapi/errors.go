package httpapi

import (
	"net/http"

	"github.com/ferriskey/ferriskey/internal/domain"
)

// statusForKind maps a domain.ErrorKind to its HTTP status (spec §7).
func statusForKind(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindInvalidRealm, domain.KindInvalidClient, domain.KindInvalidClientSecret,
		domain.KindInvalidUser, domain.KindInvalidPassword, domain.KindServiceAccountNotFound:
		return http.StatusBadRequest
	case domain.KindUserNotFound:
		return http.StatusUnauthorized
	case domain.KindInvalidToken, domain.KindExpiredToken, domain.KindTokenValidationError,
		domain.KindInvalidRefreshToken:
		return http.StatusUnauthorized
	case domain.KindSessionCreateError:
		return http.StatusBadRequest
	case domain.KindSessionNotFound, domain.KindBrokerSessionNotFound:
		return http.StatusBadRequest
	case domain.KindBrokerSessionExpired:
		return http.StatusGone
	case domain.KindInvalidRedirectURI, domain.KindMissingAuthorizationCode,
		domain.KindIdpAuthenticationFailed, domain.KindIdpTokenExchangeFailed,
		domain.KindIdpUserInfoFailed, domain.KindLinkOnlyUserNotFound, domain.KindInvalidIDToken:
		return http.StatusBadRequest
	case domain.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as an OAuth-style {"error": "..."} JSON body with
// the status statusForKind maps its domain.ErrorKind to. Internal detail
// (domain.Error.Cause) never reaches the response body (spec §7 policy).
func writeError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)
	writeJSON(w, statusForKind(kind), map[string]string{"error": string(kind)})
}
