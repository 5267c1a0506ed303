// Package core holds the registry engine: the version/constraint
// primitives, the available/installed/provides/ownership indexes, the
// compatibility sorter, the reverse-dependency engine, and the Registry
// aggregate that wires them together under an explicit transaction.
package core

// DownloadHash carries the two digests a CkanModule's archive may be
// indexed by. The registry indexes these; it does not verify them.
type DownloadHash struct {
	SHA1   string
	SHA256 string
}

// CkanModule is an immutable metadata record for one version of one mod.
type CkanModule struct {
	Identifier string
	Version    ModuleVersion
	Provides   []string // virtual package names this version provides

	GameVersions GameVersionInterval

	Depends    []RelationshipDescriptor
	Conflicts  []RelationshipDescriptor
	Recommends []RelationshipDescriptor
	Suggests   []RelationshipDescriptor

	DownloadURL  string
	DownloadHash *DownloadHash

	Licenses string // raw SPDX-ish expression; see license.go
}

// ProvidesVirtual reports whether this version declares it provides name.
func (m CkanModule) ProvidesVirtual(name string) bool {
	for _, p := range m.Provides {
		if p == name {
			return true
		}
	}
	return false
}

// ConflictsWith reports whether m declares a conflict satisfied by other.
func (m CkanModule) ConflictsWith(other CkanModule) bool {
	for _, rd := range m.Conflicts {
		for _, id := range rd.Identifiers() {
			if id != other.Identifier {
				continue
			}
			if rd.MinVersion == nil && rd.MaxVersion == nil && rd.Exact == nil {
				return true // bare identifier conflict, any version
			}
			if rd.SatisfiedByVersion(other.Version) {
				return true
			}
		}
	}
	return false
}

// DependsSatisfiedBy reports whether every one of m's Depends relationships
// is satisfied by at least one module in the universe, matching either by
// identifier or by a declared provides entry.
func (m CkanModule) DependsSatisfiedBy(universe []CkanModule) bool {
	for _, rd := range m.Depends {
		if !relationshipSatisfied(rd, universe) {
			return false
		}
	}
	return true
}

// relationshipSatisfied reports whether some module in the universe
// satisfies rd, either directly (identifier match) or via a declared
// provides entry.
func relationshipSatisfied(rd RelationshipDescriptor, universe []CkanModule) bool {
	ids := rd.Identifiers()
	for _, cand := range universe {
		for _, id := range ids {
			if cand.Identifier == id && rd.SatisfiedByVersion(cand.Version) {
				return true
			}
			if cand.ProvidesVirtual(id) {
				return true
			}
		}
	}
	return false
}
