package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ferriskey/ferriskey/internal/config"
)

func TestValidateCORSOrigins_RejectsWildcard(t *testing.T) {
	err := config.ValidateCORSOrigins([]string{"*"})
	assert.Error(t, err)
}

func TestValidateCORSOrigins_RejectsPlainHTTP(t *testing.T) {
	err := config.ValidateCORSOrigins([]string{"http://example.com"})
	assert.Error(t, err)
}

func TestValidateCORSOrigins_AllowsLocalhostHTTP(t *testing.T) {
	err := config.ValidateCORSOrigins([]string{"http://localhost:3000"})
	assert.NoError(t, err)
}

func TestValidateCORSOrigins_AllowsHTTPS(t *testing.T) {
	err := config.ValidateCORSOrigins([]string{"https://app.example.com"})
	assert.NoError(t, err)
}

func TestValidateCORSOrigins_RejectsEmptyAndSpaces(t *testing.T) {
	assert.Error(t, config.ValidateCORSOrigins([]string{""}))
	assert.Error(t, config.ValidateCORSOrigins([]string{"https://exa mple.com"}))
}
