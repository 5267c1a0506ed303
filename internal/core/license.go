package core

import "github.com/git-pkgs/spdx"

// validateLicense checks a CkanModule's raw Licenses field against SPDX
// expression syntax. An empty expression is always valid (license metadata
// is often simply missing from third-party repositories). A malformed
// expression is reported back to the caller as a sanity warning, never a
// hard error — add_available/set_all_available must keep ingesting a
// repository even when one entry's license string is garbage.
func validateLicense(expr string) (valid bool) {
	if expr == "" {
		return true
	}
	ok, err := spdx.ValidateLicenses([]string{expr})
	return err == nil && ok
}
