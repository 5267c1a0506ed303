package core

import "testing"

func TestValidateLicenseEmptyIsValid(t *testing.T) {
	if !validateLicense("") {
		t.Error("expected an empty license expression to be valid")
	}
}
