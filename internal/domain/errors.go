// Package domain holds the entities and error vocabulary shared by every
// authentication-core component. Nothing in this package talks to a
// database, an HTTP client, or a clock — it is pure data and invariants.
package domain

import "errors"

// Error is a classified core error. Every branch of the authentication and
// token core returns one of these (or wraps one with fmt.Errorf's %w) so the
// HTTP boundary can map kinds to status codes without string matching.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Cause }

// ErrorKind enumerates the core error kinds from spec §7. The boundary maps
// each 1:1 to an HTTP status; this package never does that mapping itself.
type ErrorKind string

const (
	KindInvalidRealm            ErrorKind = "invalid_realm"
	KindInvalidClient           ErrorKind = "invalid_client"
	KindInvalidClientSecret     ErrorKind = "invalid_client_secret"
	KindInvalidUser              ErrorKind = "invalid_user"
	KindUserNotFound             ErrorKind = "user_not_found"
	KindInvalidPassword          ErrorKind = "invalid_password"
	KindServiceAccountNotFound   ErrorKind = "service_account_not_found"
	KindInvalidToken             ErrorKind = "invalid_token"
	KindExpiredToken             ErrorKind = "expired_token"
	KindTokenValidationError     ErrorKind = "token_validation_error"
	KindInvalidRefreshToken      ErrorKind = "invalid_refresh_token"
	KindSessionCreateError       ErrorKind = "session_create_error"
	KindSessionNotFound          ErrorKind = "session_not_found"
	KindBrokerSessionNotFound    ErrorKind = "broker_session_not_found"
	KindBrokerSessionExpired     ErrorKind = "broker_session_expired"
	KindInvalidRedirectURI       ErrorKind = "invalid_redirect_uri"
	KindMissingAuthorizationCode ErrorKind = "missing_authorization_code"
	KindIdpAuthenticationFailed  ErrorKind = "idp_authentication_failed"
	KindIdpTokenExchangeFailed   ErrorKind = "idp_token_exchange_failed"
	KindIdpUserInfoFailed        ErrorKind = "idp_userinfo_failed"
	KindLinkOnlyUserNotFound     ErrorKind = "link_only_user_not_found"
	KindInvalidIDToken           ErrorKind = "invalid_id_token"
	KindForbidden                ErrorKind = "forbidden"
	KindInternalServerError      ErrorKind = "internal_server_error"
	KindTokenGenerationError     ErrorKind = "token_generation_error"
	KindHashPasswordError        ErrorKind = "hash_password_error"
	KindInvalidKey                ErrorKind = "invalid_key"
)

// New builds an Error with a static message.
func New(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error carrying an underlying cause, for internal-only
// detail that must never reach the caller (see spec §7 policy).
func Wrap(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is reports whether err is a core Error of the given kind.
func Is(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the ErrorKind from err, defaulting to InternalServerError
// for anything that isn't a classified core Error — this is the fail-closed
// behavior spec §7 requires for unclassified internal errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternalServerError
}
