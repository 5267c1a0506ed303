package core

import "testing"

func rawModuleBlob(id, version string) ckanModuleBlob {
	return ckanModuleBlob{Identifier: id, Version: moduleVersionBlob{Kind: "semantic", Value: version}, MinGame: "any", MaxGame: "any"}
}

func TestMigrateRebuildsMissingInstalledFiles(t *testing.T) {
	b := &Blob{
		RegistryVersion: currentRegistryVersion,
		InstalledModules: map[string]installedModuleBlob{
			"A": {Metadata: rawModuleBlob("A", "1.0.0"), Files: []string{"GameData/A/x.dll"}},
		},
	}

	migrated := Migrate(b, "/root", RepoURLRewrite{})
	if migrated.InstalledFiles["GameData/A/x.dll"] != "A" {
		t.Errorf("InstalledFiles after migration = %v", migrated.InstalledFiles)
	}
}

func TestMigrateRelativizesPathsAtVersionZero(t *testing.T) {
	b := &Blob{
		RegistryVersion: 0,
		InstalledModules: map[string]installedModuleBlob{
			"A": {Metadata: rawModuleBlob("A", "1.0.0"), Files: []string{"/root/GameData/A/x.dll"}},
		},
		InstalledFiles: map[string]string{"/root/GameData/A/x.dll": "A"},
	}

	migrated := Migrate(b, "/root", RepoURLRewrite{})
	if _, ok := migrated.InstalledFiles["GameData/A/x.dll"]; !ok {
		t.Errorf("expected relativized path in InstalledFiles, got %v", migrated.InstalledFiles)
	}
	if migrated.InstalledModules["A"].Files[0] != "GameData/A/x.dll" {
		t.Errorf("expected relativized path in InstalledModules, got %v", migrated.InstalledModules["A"].Files)
	}
	if migrated.RegistryVersion != currentRegistryVersion {
		t.Errorf("RegistryVersion after migration = %d, want %d", migrated.RegistryVersion, currentRegistryVersion)
	}
}

func TestMigrateRenamesControlLock(t *testing.T) {
	b := &Blob{
		RegistryVersion: 1,
		InstalledModules: map[string]installedModuleBlob{
			"001ControlLock": {Metadata: rawModuleBlob("001ControlLock", "1.0.0"), Files: []string{"GameData/Squad/ControlLock.dll"}},
		},
		InstalledFiles: map[string]string{"GameData/Squad/ControlLock.dll": "001ControlLock"},
	}

	migrated := Migrate(b, "/root", RepoURLRewrite{})
	if _, stillThere := migrated.InstalledModules["001ControlLock"]; stillThere {
		t.Error("expected the legacy identifier to be gone")
	}
	renamed, ok := migrated.InstalledModules["ControlLock"]
	if !ok || renamed.Metadata.Identifier != "ControlLock" {
		t.Fatalf("expected a renamed ControlLock entry, got %+v", migrated.InstalledModules)
	}
	if migrated.InstalledFiles["GameData/Squad/ControlLock.dll"] != "ControlLock" {
		t.Errorf("expected file ownership to follow the rename, got %v", migrated.InstalledFiles)
	}
}

func TestMigrateRewritesLegacyRepositoryURL(t *testing.T) {
	b := &Blob{
		RegistryVersion:    currentRegistryVersion,
		SortedRepositories: map[string]Repository{"default": {Name: "default", URL: "https://old.example/archive.zip"}},
	}
	rewrite := RepoURLRewrite{Legacy: "https://old.example/archive.zip", Current: "https://new.example/index.json"}

	migrated := Migrate(b, "/root", rewrite)
	if migrated.SortedRepositories["default"].URL != "https://new.example/index.json" {
		t.Errorf("default repository URL after migration = %q", migrated.SortedRepositories["default"].URL)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	b := &Blob{
		RegistryVersion: 0,
		InstalledModules: map[string]installedModuleBlob{
			"001ControlLock": {Metadata: rawModuleBlob("001ControlLock", "1.0.0"), Files: []string{"/root/GameData/Squad/ControlLock.dll"}},
		},
		InstalledFiles: map[string]string{"/root/GameData/Squad/ControlLock.dll": "001ControlLock"},
	}

	once := Migrate(b, "/root", RepoURLRewrite{})
	twice := Migrate(once, "/root", RepoURLRewrite{})

	if len(twice.InstalledModules) != len(once.InstalledModules) {
		t.Fatalf("second migration changed the module count: %d vs %d", len(twice.InstalledModules), len(once.InstalledModules))
	}
	if twice.InstalledFiles["GameData/Squad/ControlLock.dll"] != "ControlLock" {
		t.Errorf("idempotent migration lost file ownership: %v", twice.InstalledFiles)
	}
}

func TestLooksLikeLegacyArchiveURL(t *testing.T) {
	if !LooksLikeLegacyArchiveURL("https://example.com/archive.zip") {
		t.Error("expected a .zip URL to look legacy")
	}
	if LooksLikeLegacyArchiveURL("https://example.com/index.json") {
		t.Error("expected a .json URL not to look legacy")
	}
}
