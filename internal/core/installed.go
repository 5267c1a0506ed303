package core

import "strings"

// InstalledModule is a snapshot of a module the user has installed: its
// metadata at install time, the relative paths it owns, and whether it was
// pulled in automatically as someone else's dependency. It is never
// mutated in place — register_install creates one, deregister_install
// drops it.
type InstalledModule struct {
	metadata      CkanModule
	files         []string // ordered, relative, forward-slash normalized
	autoInstalled bool
}

// NewInstalledModule builds an InstalledModule snapshot.
func NewInstalledModule(metadata CkanModule, files []string, autoInstalled bool) InstalledModule {
	normalized := make([]string, len(files))
	for i, f := range files {
		normalized[i] = normalizeRelPath(f)
	}
	return InstalledModule{metadata: metadata, files: normalized, autoInstalled: autoInstalled}
}

// Metadata returns the install-time metadata snapshot.
func (im InstalledModule) Metadata() CkanModule { return im.metadata }

// Identifier is a shortcut for Metadata().Identifier.
func (im InstalledModule) Identifier() string { return im.metadata.Identifier }

// Files returns the ordered list of relative paths this module owns.
func (im InstalledModule) Files() []string {
	out := make([]string, len(im.files))
	copy(out, im.files)
	return out
}

// AutoInstalled reports whether this module was installed automatically to
// satisfy someone else's dependency.
func (im InstalledModule) AutoInstalled() bool { return im.autoInstalled }

// Renormalize converts any absolute path in the file list into one
// relative to gameRoot. Used once during schema upgrade (registry_version
// == 0); a no-op for already-relative entries.
func (im InstalledModule) Renormalize(gameRoot string) InstalledModule {
	files := make([]string, len(im.files))
	for i, f := range im.files {
		files[i] = relativizePath(f, gameRoot)
	}
	return InstalledModule{metadata: im.metadata, files: files, autoInstalled: im.autoInstalled}
}

func normalizeRelPath(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}
