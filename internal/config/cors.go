package config

import (
	"errors"
	"strings"
)

// ValidateCORSOrigins rejects wildcard origins and enforces HTTPS (except
// localhost, for local development) on the configured AllowedCORSOrigins.
func ValidateCORSOrigins(origins []string) error {
	for _, origin := range origins {
		if origin == "*" {
			return errors.New("wildcard CORS origin not allowed")
		}
		if !strings.HasPrefix(origin, "https://") && !strings.HasPrefix(origin, "http://localhost") {
			return errors.New("only https origins allowed (except http://localhost for development): " + origin)
		}
		if origin == "" || strings.Contains(origin, " ") {
			return errors.New("invalid origin format: " + origin)
		}
	}
	return nil
}
