package core

import "sort"

// FindReverseDependencies computes the transitive closure of modules that
// would become broken if every identifier in removed were uninstalled,
// given the currently installed set and an extra universe (loose binaries,
// auto-detected DLC) that can also satisfy a depends relationship.
//
// It is a range-over-func iterator rather than a slice: callers that only
// need the first few results (or just want to know "is this non-empty")
// can break out of the range without paying for the full closure (spec
// §4.6: "Result must be yielded lazily").
func FindReverseDependencies(removed []string, installed map[string]InstalledModule, universeExtra []CkanModule) func(yield func(string) bool) {
	return func(yield func(string) bool) {
		R := make(map[string]bool, len(removed))
		for _, id := range removed {
			if R[id] {
				continue
			}
			R[id] = true
			if !yield(id) {
				return
			}
		}

		for {
			// H = installed \ { m | m.identifier in R }
			var h []InstalledModule
			for id, im := range installed {
				if !R[id] {
					h = append(h, im)
				}
			}

			universe := make([]CkanModule, 0, len(h)+len(universeExtra))
			for _, im := range h {
				universe = append(universe, im.Metadata())
			}
			universe = append(universe, universeExtra...)

			var newlyBroken []string
			for _, im := range h {
				if R[im.Identifier()] {
					continue
				}
				if !im.Metadata().DependsSatisfiedBy(universe) {
					newlyBroken = append(newlyBroken, im.Identifier())
				}
			}

			if len(newlyBroken) == 0 {
				return
			}
			for _, id := range newlyBroken {
				R[id] = true
				if !yield(id) {
					return
				}
			}
		}
	}
}

// UnsatisfiedDepends returns the subset of installed whose depends cannot
// all be satisfied by installed ∪ universeExtra — the sanity predicate
// referenced by spec §4.6 step 3 and reused directly by the sanity checks
// in registry.go.
func UnsatisfiedDepends(installed map[string]InstalledModule, universeExtra []CkanModule) []string {
	universe := make([]CkanModule, 0, len(installed)+len(universeExtra))
	for _, im := range installed {
		universe = append(universe, im.Metadata())
	}
	universe = append(universe, universeExtra...)

	var broken []string
	for id, im := range installed {
		if !im.Metadata().DependsSatisfiedBy(universe) {
			broken = append(broken, id)
		}
	}
	sort.Strings(broken)
	return broken
}

// FindRemovableAutoInstalled returns the auto-installed identifiers whose
// removal, per FindReverseDependencies, implicates only other
// auto-installed modules.
func FindRemovableAutoInstalled(installed map[string]InstalledModule, universeExtra []CkanModule) []string {
	autoIDs := make(map[string]bool)
	for id, im := range installed {
		if im.AutoInstalled() {
			autoIDs[id] = true
		}
	}

	var removable []string
	for id := range autoIDs {
		allAuto := true
		for broken := range FindReverseDependencies([]string{id}, installed, universeExtra) {
			if !autoIDs[broken] {
				allAuto = false
				break
			}
		}
		if allAuto {
			removable = append(removable, id)
		}
	}
	sort.Strings(removable)
	return removable
}
