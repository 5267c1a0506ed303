package core

import "testing"

func installedWithDepends(id string, depends ...string) InstalledModule {
	var rds []RelationshipDescriptor
	for _, d := range depends {
		rds = append(rds, RelationshipDescriptor{Identifier: d})
	}
	m := CkanModule{Identifier: id, Version: MustSemanticVersion("1.0.0"), Depends: rds}
	return NewInstalledModule(m, nil, false)
}

func TestFindReverseDependenciesTransitiveClosure(t *testing.T) {
	installed := map[string]InstalledModule{
		"Base":   installedWithDepends("Base"),
		"Mid":    installedWithDepends("Mid", "Base"),
		"Top":    installedWithDepends("Top", "Mid"),
		"Unrelated": installedWithDepends("Unrelated"),
	}

	var broken []string
	for id := range FindReverseDependencies([]string{"Base"}, installed, nil) {
		broken = append(broken, id)
	}

	want := map[string]bool{"Base": true, "Mid": true, "Top": true}
	if len(broken) != len(want) {
		t.Fatalf("broken = %v, want exactly %v", broken, want)
	}
	for _, id := range broken {
		if !want[id] {
			t.Errorf("unexpected identifier %q in reverse-dependency closure", id)
		}
	}
}

func TestFindReverseDependenciesStopsEarlyOnBreak(t *testing.T) {
	installed := map[string]InstalledModule{
		"Base": installedWithDepends("Base"),
		"Mid":  installedWithDepends("Mid", "Base"),
	}

	var seen int
	for range FindReverseDependencies([]string{"Base"}, installed, nil) {
		seen++
		break
	}
	if seen != 1 {
		t.Fatalf("seen = %d, want exactly 1 before break", seen)
	}
}

func TestFindReverseDependenciesSatisfiedByUniverseExtra(t *testing.T) {
	installed := map[string]InstalledModule{
		"Mid": installedWithDepends("Mid", "LooseBinary"),
	}
	extra := []CkanModule{{Identifier: "LooseBinary", Version: NewUnmanagedVersion("x")}}

	var broken []string
	for id := range FindReverseDependencies([]string{"LooseBinary"}, installed, extra) {
		broken = append(broken, id)
	}
	// LooseBinary isn't in `installed`, and removing it doesn't actually
	// remove it from universeExtra in this helper call (the caller decides
	// that upstream) - Mid's dependency is still satisfied by extra.
	if len(broken) != 1 || broken[0] != "LooseBinary" {
		t.Errorf("broken = %v, want only the removed identifier itself", broken)
	}
}

func TestUnsatisfiedDepends(t *testing.T) {
	installed := map[string]InstalledModule{
		"Mid": installedWithDepends("Mid", "Missing"),
		"OK":  installedWithDepends("OK"),
	}
	broken := UnsatisfiedDepends(installed, nil)
	if len(broken) != 1 || broken[0] != "Mid" {
		t.Errorf("UnsatisfiedDepends = %v, want [Mid]", broken)
	}
}

func TestFindRemovableAutoInstalled(t *testing.T) {
	baseMeta := CkanModule{Identifier: "Base", Version: MustSemanticVersion("1.0.0")}
	base := NewInstalledModule(baseMeta, nil, true)

	midMeta := CkanModule{Identifier: "Mid", Version: MustSemanticVersion("1.0.0"), Depends: []RelationshipDescriptor{{Identifier: "Base"}}}
	mid := NewInstalledModule(midMeta, nil, true)

	topMeta := CkanModule{Identifier: "Top", Version: MustSemanticVersion("1.0.0"), Depends: []RelationshipDescriptor{{Identifier: "Mid"}}}
	top := NewInstalledModule(topMeta, nil, false) // user-installed, not auto

	installed := map[string]InstalledModule{"Base": base, "Mid": mid, "Top": top}

	removable := FindRemovableAutoInstalled(installed, nil)
	if len(removable) != 0 {
		t.Errorf("removable = %v, want none because Top (non-auto) depends on the chain", removable)
	}
}

func TestFindRemovableAutoInstalledAllAuto(t *testing.T) {
	baseMeta := CkanModule{Identifier: "Base", Version: MustSemanticVersion("1.0.0")}
	base := NewInstalledModule(baseMeta, nil, true)
	midMeta := CkanModule{Identifier: "Mid", Version: MustSemanticVersion("1.0.0"), Depends: []RelationshipDescriptor{{Identifier: "Base"}}}
	mid := NewInstalledModule(midMeta, nil, true)

	installed := map[string]InstalledModule{"Base": base, "Mid": mid}
	removable := FindRemovableAutoInstalled(installed, nil)
	if len(removable) != 2 {
		t.Errorf("removable = %v, want both Base and Mid removable", removable)
	}
}
