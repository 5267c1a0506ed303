package core

import "sort"

// AvailableModule is the bag of every known version of a single
// identifier. All of its entries share Identifier.
type AvailableModule struct {
	identifier string
	// order preserves insertion order so that a tie in version
	// ordering resolves to "last added wins" (see latest/all).
	order   []ModuleVersion
	entries map[string]CkanModule // keyed by ModuleVersion.String()
}

// NewAvailableModule creates an empty bag for identifier.
func NewAvailableModule(identifier string) *AvailableModule {
	return &AvailableModule{identifier: identifier, entries: make(map[string]CkanModule)}
}

// Identifier returns the shared identifier of every version in the bag.
func (am *AvailableModule) Identifier() string { return am.identifier }

// Add inserts m keyed by m.Version, overwriting silently if that version
// already exists. Re-adding an existing version moves it to the end of
// insertion order, so it wins later ties.
func (am *AvailableModule) Add(m CkanModule) {
	key := m.Version.String()
	if _, exists := am.entries[key]; exists {
		am.removeFromOrder(key)
	}
	am.entries[key] = m
	am.order = append(am.order, m.Version)
}

// Remove erases the entry at version v. No-op if absent.
func (am *AvailableModule) Remove(v ModuleVersion) {
	key := v.String()
	if _, exists := am.entries[key]; !exists {
		return
	}
	delete(am.entries, key)
	am.removeFromOrder(key)
}

func (am *AvailableModule) removeFromOrder(key string) {
	for i, v := range am.order {
		if v.String() == key {
			am.order = append(am.order[:i], am.order[i+1:]...)
			return
		}
	}
}

// Clone produces an independent deep copy, used for transaction snapshots.
func (am *AvailableModule) Clone() *AvailableModule {
	out := NewAvailableModule(am.identifier)
	out.order = append([]ModuleVersion(nil), am.order...)
	for k, v := range am.entries {
		out.entries[k] = v
	}
	return out
}

// Count returns the number of distinct versions in the bag.
func (am *AvailableModule) Count() int { return len(am.order) }

// All returns every version, newest first. Equal-ranked versions (by
// Compare) keep the last-added one first, via a stable sort over
// insertion order reversed so ties resolve to last-added.
func (am *AvailableModule) All() []CkanModule {
	out := make([]CkanModule, 0, len(am.order))
	for i := len(am.order) - 1; i >= 0; i-- {
		out = append(out, am.entries[am.order[i].String()])
	}
	sort.SliceStable(out, func(i, j int) bool {
		cmp, ok := out[i].Version.Compare(out[j].Version)
		if !ok {
			return false
		}
		return cmp > 0
	})
	return out
}

// Latest selects the highest-version entry whose game-version interval
// intersects criteria (if given), satisfies constraint (if given), and
// does not conflict with anything in alreadyInstalled or alsoInstalling.
// Returns nil if nothing matches.
func (am *AvailableModule) Latest(criteria *GameVersionCriteria, constraint *RelationshipDescriptor, alreadyInstalled, alsoInstalling []CkanModule) *CkanModule {
	for _, m := range am.All() {
		if criteria != nil && !m.GameVersions.IntersectsAny(*criteria) {
			continue
		}
		if constraint != nil && !constraint.SatisfiedByVersion(m.Version) {
			continue
		}
		if conflictsWithAny(m, alreadyInstalled) || conflictsWithAny(m, alsoInstalling) {
			continue
		}
		out := m
		return &out
	}
	return nil
}

func conflictsWithAny(m CkanModule, others []CkanModule) bool {
	for _, o := range others {
		if m.ConflictsWith(o) || o.ConflictsWith(m) {
			return true
		}
	}
	return false
}

// LatestCompatibleGameVersion returns the maximum of max_game across all
// versions; Any absorbs (an Any upper bound makes the whole module
// boundlessly compatible).
func (am *AvailableModule) LatestCompatibleGameVersion() GameVersion {
	best := GameVersion{}
	haveBest := false
	for _, m := range am.entries {
		max := m.GameVersions.Max
		if max.IsAny() {
			return AnyGameVersion()
		}
		if !haveBest {
			best, haveBest = max, true
			continue
		}
		if cmp, ok := max.Compare(best); ok && cmp > 0 {
			best = max
		}
	}
	if !haveBest {
		return AnyGameVersion()
	}
	return best
}
