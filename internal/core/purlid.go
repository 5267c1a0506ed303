package core

import (
	"fmt"

	"github.com/git-pkgs/purl"
)

// ecosystemPURLType is the PURL "type" this registry's modules are
// addressed under, giving a module a form other tooling can parse back
// with purl.Parse, mirroring how the teacher's root package exposes
// ParsePURL/purl.Parse as its public surface. The SHA1/download-hash
// indexes are keyed by digest and URLHash, not by PURL.
const ecosystemPURLType = "ckan"

// ModulePURL renders a canonical "pkg:ckan/<identifier>@<version>" string
// for a semantic version. Non-semantic versions (Unmanaged, Provides) have
// no canonical PURL form and return ok=false.
func ModulePURL(identifier string, v ModuleVersion) (s string, ok bool) {
	if v.Kind() != KindSemantic {
		return "", false
	}
	return fmt.Sprintf("pkg:%s/%s@%s", ecosystemPURLType, identifier, v.String()), true
}

// ParseModulePURL parses a PURL produced by ModulePURL back into its
// identifier and version components, round-tripping through
// github.com/git-pkgs/purl the same way the teacher's ParsePURL does.
func ParseModulePURL(s string) (identifier, version string, err error) {
	p, err := purl.Parse(s)
	if err != nil {
		return "", "", fmt.Errorf("core: parsing module purl %q: %w", s, err)
	}
	return p.Name, p.Version, nil
}
