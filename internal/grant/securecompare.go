package grant

import "crypto/subtle"

// secureCompareSecrets performs a constant-time comparison of a client's
// configured secret against the one presented in a token request, so an
// attacker timing response latency cannot recover the secret
// character-by-character.
func secureCompareSecrets(provided, expected string) bool {
	return subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) == 1
}
