package scope_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ferriskey/ferriskey/internal/scope"
)

func TestValidateAndFilter_DropsUnknownScopes(t *testing.T) {
	m := scope.DefaultManager()
	got := m.ValidateAndFilter("openid profile unknown_scope")
	assert.Equal(t, "openid profile", got)
}

func TestValidateAndFilter_OpenidAlwaysFirst(t *testing.T) {
	m := scope.DefaultManager()
	got := m.ValidateAndFilter("profile email openid")
	assert.Equal(t, "openid email profile", got)
}

func TestValidateAndFilter_EmptyFallsBackToDefaults(t *testing.T) {
	m := scope.DefaultManager()
	assert.Equal(t, "email profile", m.ValidateAndFilter(""))
	assert.Equal(t, "email profile", m.ValidateAndFilter("   "))
}

func TestMergeWithDefaults_AddsMissingDefaults(t *testing.T) {
	m := scope.DefaultManager()
	got := m.MergeWithDefaults("openid")
	assert.Equal(t, "openid email profile", got)
}

func TestMergeWithDefaults_DoesNotDuplicate(t *testing.T) {
	m := scope.DefaultManager()
	got := m.MergeWithDefaults("openid profile")
	assert.Equal(t, "openid email profile", got)
}

func TestContains(t *testing.T) {
	assert.True(t, scope.Contains("openid profile", "profile"))
	assert.False(t, scope.Contains("openid profile", "email"))
}
