package core

import (
	"regexp"
	"sort"
)

// RepoURLRewrite names a repository's legacy fetch URL and the URL it
// should be rewritten to during migration (spec §6.1's "legacy default
// repository URL" step). Left zero-valued, no rewrite happens.
type RepoURLRewrite struct {
	Legacy  string
	Current string
}

var controlLockRename = struct{ from, to string }{from: "001ControlLock", to: "ControlLock"}

// Deserialize rebuilds a Registry from a persisted Blob, running it through
// Migrate first so callers never have to think about schema age.
func Deserialize(b *Blob, gameRoot string, rewrite RepoURLRewrite, opts ...Option) (*Registry, error) {
	b = Migrate(b, gameRoot, rewrite)

	r := NewRegistry(opts...)
	r.repositories = copyRepositories(b.SortedRepositories)
	r.installedDLLs = copyStringMap(b.InstalledDLLs)
	r.downloadCounts = copyIntMap(b.DownloadCounts)

	catalog := make(map[string]*AvailableModule, len(b.AvailableModules))
	for id, blobs := range b.AvailableModules {
		am := NewAvailableModule(id)
		for _, mb := range blobs {
			m, err := fromCkanModuleBlob(mb)
			if err != nil {
				return nil, err
			}
			am.Add(m)
		}
		catalog[id] = am
	}
	r.available = catalog
	r.providers.Rebuild(catalog)

	installed := make(map[string]InstalledModule, len(b.InstalledModules))
	for id, ib := range b.InstalledModules {
		im, err := fromInstalledModuleBlob(ib)
		if err != nil {
			return nil, err
		}
		installed[id] = im
		for _, rel := range im.Files() {
			if !isDirectoryPath(rel) {
				r.installedFiles.Claim(rel, id)
			}
		}
	}
	r.installed = installed

	r.registryVersion = currentRegistryVersion
	return r, nil
}

// Migrate applies the upgrade contract of spec §6.1 to a raw blob,
// returning an independent, fully-migrated copy. It is idempotent: running
// it twice over its own output is a no-op beyond the first pass.
func Migrate(b *Blob, gameRoot string, rewrite RepoURLRewrite) *Blob {
	out := cloneBlob(b)

	if out.InstalledFiles == nil || len(out.InstalledFiles) == 0 {
		out.InstalledFiles = rebuildInstalledFiles(out.InstalledModules)
	}

	if out.RegistryVersion == 0 {
		relativizeBlobPaths(out, gameRoot)
	}

	if out.RegistryVersion < 2 {
		renameInstalledEntry(out, controlLockRename.from, controlLockRename.to)
	}

	rewriteLegacyRepositoryURL(out, rewrite)

	out.RegistryVersion = currentRegistryVersion
	return out
}

func cloneBlob(b *Blob) *Blob {
	out := &Blob{
		RegistryVersion:    b.RegistryVersion,
		SortedRepositories: copyRepositories(b.SortedRepositories),
		InstalledDLLs:      copyStringMap(b.InstalledDLLs),
		InstalledFiles:     copyStringMap(b.InstalledFiles),
		DownloadCounts:     copyIntMap(b.DownloadCounts),
	}
	out.AvailableModules = make(map[string][]ckanModuleBlob, len(b.AvailableModules))
	for id, blobs := range b.AvailableModules {
		out.AvailableModules[id] = append([]ckanModuleBlob(nil), blobs...)
	}
	out.InstalledModules = make(map[string]installedModuleBlob, len(b.InstalledModules))
	for id, ib := range b.InstalledModules {
		clone := ib
		clone.Files = append([]string(nil), ib.Files...)
		out.InstalledModules[id] = clone
	}
	return out
}

// rebuildInstalledFiles folds every installed module's file list back into
// a flat path -> owner index, used when installed_files is absent from an
// older blob.
func rebuildInstalledFiles(installed map[string]installedModuleBlob) map[string]string {
	out := make(map[string]string)
	ids := make([]string, 0, len(installed))
	for id := range installed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		for _, rel := range installed[id].Files {
			if isDirectoryPath(rel) {
				continue
			}
			out[rel] = id
		}
	}
	return out
}

// relativizeBlobPaths normalizes separators and strips gameRoot from every
// path in a registry_version==0 blob, which predates path relativization.
func relativizeBlobPaths(b *Blob, gameRoot string) {
	fixed := make(map[string]string, len(b.InstalledFiles))
	for p, owner := range b.InstalledFiles {
		fixed[relativizePath(p, gameRoot)] = owner
	}
	b.InstalledFiles = fixed

	for id, ib := range b.InstalledModules {
		files := make([]string, len(ib.Files))
		for i, p := range ib.Files {
			files[i] = relativizePath(p, gameRoot)
		}
		ib.Files = files
		b.InstalledModules[id] = ib
	}
}

// renameInstalledEntry moves an installed module from one identifier to
// another, rewriting its file-ownership index entries to match. A no-op if
// from isn't present.
func renameInstalledEntry(b *Blob, from, to string) {
	ib, ok := b.InstalledModules[from]
	if !ok {
		return
	}
	delete(b.InstalledModules, from)
	ib.Metadata.Identifier = to
	b.InstalledModules[to] = ib

	for p, owner := range b.InstalledFiles {
		if owner == from {
			b.InstalledFiles[p] = to
		}
	}
}

// rewriteLegacyRepositoryURL rewrites the URL of the repository named
// "default", if present and matching rewrite.Legacy exactly. A zero-valued
// rewrite is a no-op.
func rewriteLegacyRepositoryURL(b *Blob, rewrite RepoURLRewrite) {
	if rewrite.Legacy == "" || rewrite.Current == "" {
		return
	}
	repo, ok := b.SortedRepositories["default"]
	if !ok || repo.URL != rewrite.Legacy {
		return
	}
	repo.URL = rewrite.Current
	b.SortedRepositories["default"] = repo
}

// legacyArchiveURLPattern matches the shape of a stale repository archive
// URL, used by callers to decide whether a RepoURLRewrite is warranted
// before invoking Migrate.
var legacyArchiveURLPattern = regexp.MustCompile(`(?i)\.zip$`)

// LooksLikeLegacyArchiveURL reports whether u has the shape of a packed
// metadata archive rather than a live index endpoint.
func LooksLikeLegacyArchiveURL(u string) bool {
	return legacyArchiveURLPattern.MatchString(u)
}
