package grant

import "testing"

func TestSecureCompareSecrets(t *testing.T) {
	if !secureCompareSecrets("s3cr3t", "s3cr3t") {
		t.Error("expected equal secrets to compare equal")
	}
	if secureCompareSecrets("s3cr3t", "wrong") {
		t.Error("expected differing secrets to compare unequal")
	}
	if secureCompareSecrets("", "s3cr3t") {
		t.Error("expected empty provided secret to compare unequal")
	}
}
