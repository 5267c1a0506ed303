package core

import (
	"fmt"
	"path"
	"sort"

	"github.com/rs/zerolog"
)

// currentRegistryVersion is the schema version written by Serialize and
// the target version Migrate upgrades to (spec §6.1).
const currentRegistryVersion = 3

// Registry is the aggregate root: the authoritative in-memory database of
// available modules, installed modules, loose binaries, and DLC, plus the
// derived ProvidesIndex and CompatibilitySorter caches. It is single-
// writer and holds no internal locks (spec §5) — mutating methods enlist
// in an explicit *Transaction instead of an ambient, thread-local one.
type Registry struct {
	logger zerolog.Logger
	clock  Clock

	available map[string]*AvailableModule
	providers *providesIndex
	sorter    *compatibilitySorter

	installed      map[string]InstalledModule
	installedFiles *fileOwnership
	installedDLLs  map[string]string      // short name -> relative path
	installedDLC   map[string]ModuleVersion // identifier -> version

	downloadCounts map[string]int
	repositories   map[string]Repository

	registryVersion int

	currentTx *Transaction
}

// Option configures a Registry at construction time.
type Option func(*Registry)

// WithLogger sets the registry's logger. Defaults to zerolog.Nop().
func WithLogger(l zerolog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithClock sets the registry's time source. Defaults to the system clock.
func WithClock(c Clock) Option {
	return func(r *Registry) { r.clock = c }
}

// NewRegistry creates an empty registry at the current schema version.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		logger:          zerolog.Nop(),
		clock:           realClock{},
		available:       make(map[string]*AvailableModule),
		providers:       newProvidesIndex(),
		installed:       make(map[string]InstalledModule),
		installedFiles:  newFileOwnership(),
		installedDLLs:   make(map[string]string),
		installedDLC:    make(map[string]ModuleVersion),
		downloadCounts:  make(map[string]int),
		repositories:    make(map[string]Repository),
		registryVersion: currentRegistryVersion,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ---- mutating operations (§4.7) --------------------------------------

// SetAllAvailable replaces the entire available catalog, rebuilds the
// ProvidesIndex, and invalidates the sorter.
func (r *Registry) SetAllAvailable(tx *Transaction, modules []CkanModule) error {
	if err := r.enlistIfNeeded(tx); err != nil {
		return err
	}
	catalog := make(map[string]*AvailableModule)
	for _, m := range modules {
		am, ok := catalog[m.Identifier]
		if !ok {
			am = NewAvailableModule(m.Identifier)
			catalog[m.Identifier] = am
		}
		am.Add(m)
	}
	r.available = catalog
	r.providers.Rebuild(catalog)
	r.sorter = nil
	return nil
}

// AddAvailable upserts m into available[m.Identifier], extends the
// ProvidesIndex, and invalidates the sorter.
func (r *Registry) AddAvailable(tx *Transaction, m CkanModule) error {
	if err := r.enlistIfNeeded(tx); err != nil {
		return err
	}
	am, ok := r.available[m.Identifier]
	if !ok {
		am = NewAvailableModule(m.Identifier)
		r.available[m.Identifier] = am
	}
	am.Add(m)
	r.providers.reindex(am)
	r.sorter = nil
	return nil
}

// RemoveAvailable removes a single version; a no-op if absent. The
// ProvidesIndex is not pruned (spec §4.4, §9 — stale-entry tolerance is
// deliberate).
func (r *Registry) RemoveAvailable(tx *Transaction, id string, v ModuleVersion) error {
	if err := r.enlistIfNeeded(tx); err != nil {
		return err
	}
	am, ok := r.available[id]
	if !ok {
		return nil
	}
	am.Remove(v)
	r.sorter = nil
	return nil
}

// RegisterInstall converts absolutePaths to paths relative to gameRoot,
// fails with InconsistentError (listing every collision) if any
// non-directory path is already owned by a different installed module,
// then claims every path and inserts the InstalledModule. No partial
// state survives a failure.
func (r *Registry) RegisterInstall(tx *Transaction, m CkanModule, absolutePaths []string, gameRoot string, auto bool) error {
	if err := r.enlistIfNeeded(tx); err != nil {
		return err
	}

	relFiles := make([]string, len(absolutePaths))
	for i, p := range absolutePaths {
		relFiles[i] = relativizePath(p, gameRoot)
	}

	var conflicts []string
	for _, rel := range relFiles {
		if isDirectoryPath(rel) {
			continue
		}
		if owner, ok := r.installedFiles.Owner(rel); ok && owner != m.Identifier {
			conflicts = append(conflicts, fmt.Sprintf("%s claims %q, already owned by %s", m.Identifier, rel, owner))
		}
	}
	if len(conflicts) > 0 {
		return &InconsistentError{Messages: conflicts}
	}

	for _, rel := range relFiles {
		r.installedFiles.Claim(rel, m.Identifier)
	}
	r.installed[m.Identifier] = NewInstalledModule(m, relFiles, auto)
	return nil
}

// DeregisterInstall fails with InconsistentError (listing every lingering
// path) if existsFn reports any owned file still present on disk;
// otherwise releases every path claim and drops the InstalledModule.
// existsFn is the boundary collaborator — the registry itself never
// touches the filesystem.
func (r *Registry) DeregisterInstall(tx *Transaction, id, gameRoot string, existsFn func(absolutePath string) bool) error {
	if err := r.enlistIfNeeded(tx); err != nil {
		return err
	}
	im, ok := r.installed[id]
	if !ok {
		return &NotFoundError{Identifier: id}
	}

	var lingering []string
	for _, rel := range im.Files() {
		if isDirectoryPath(rel) {
			continue
		}
		if existsFn != nil && existsFn(toAbsolute(rel, gameRoot)) {
			lingering = append(lingering, rel)
		}
	}
	if len(lingering) > 0 {
		msgs := make([]string, len(lingering))
		for i, rel := range lingering {
			msgs[i] = fmt.Sprintf("%s: %q still exists on disk", id, rel)
		}
		return &InconsistentError{Messages: msgs}
	}

	for _, rel := range im.Files() {
		r.installedFiles.Release(rel, id)
	}
	delete(r.installed, id)
	return nil
}

// RegisterDLL converts absolutePath to a relative path; if it's already
// owned by an installed module, logs and returns without indexing it.
// Otherwise derives its short name (§6.2) and inserts it into
// installed_dlls, overwriting any existing entry under that name.
func (r *Registry) RegisterDLL(tx *Transaction, gameRoot, absolutePath string) error {
	if err := r.enlistIfNeeded(tx); err != nil {
		return err
	}
	rel := relativizePath(absolutePath, gameRoot)
	if owner, ok := r.installedFiles.Owner(rel); ok {
		r.logger.Info().Str("path", rel).Str("owner", owner).Msg("loose binary already owned by an installed module")
		return nil
	}
	name, ok := ShortNameFromPath(rel)
	if !ok {
		return nil
	}
	r.installedDLLs[name] = rel
	return nil
}

// ClearDLLs empties installed_dlls.
func (r *Registry) ClearDLLs(tx *Transaction) error {
	if err := r.enlistIfNeeded(tx); err != nil {
		return err
	}
	r.installedDLLs = make(map[string]string)
	return nil
}

// RegisterDLC upserts an entry into installed_dlc.
func (r *Registry) RegisterDLC(tx *Transaction, id string, version ModuleVersion) error {
	if err := r.enlistIfNeeded(tx); err != nil {
		return err
	}
	r.installedDLC[id] = version
	return nil
}

// ClearDLC empties installed_dlc.
func (r *Registry) ClearDLC(tx *Transaction) error {
	if err := r.enlistIfNeeded(tx); err != nil {
		return err
	}
	r.installedDLC = make(map[string]ModuleVersion)
	return nil
}

// SetDownloadCounts merges counts in: existing entries are overwritten,
// absent ones preserved. Callers wanting replacement must clear the
// registry's counts themselves first (spec §9 open question).
func (r *Registry) SetDownloadCounts(tx *Transaction, counts map[string]int) error {
	if err := r.enlistIfNeeded(tx); err != nil {
		return err
	}
	for id, n := range counts {
		r.downloadCounts[id] = n
	}
	return nil
}

// ---- query operations (§4.7) ------------------------------------------

// LatestAvailable fails with NotFoundError if id is entirely absent from
// the catalog. If id is present but nothing matches criteria/constraint,
// it returns (nil, nil) — the decision recorded for spec §9's open
// question, matching the source's delegation to AvailableModule.latest.
func (r *Registry) LatestAvailable(id string, criteria GameVersionCriteria, constraint *RelationshipDescriptor) (*CkanModule, error) {
	am, ok := r.available[id]
	if !ok {
		return nil, &NotFoundError{Identifier: id}
	}
	return am.Latest(&criteria, constraint, nil, nil), nil
}

// LatestAvailableWithProvides looks up every AvailableModule indexed under
// virtualID, picks each one's Latest(...), and keeps only those whose
// chosen version actually lists virtualID in Provides (the ProvidesIndex
// may carry stale entries — see provides.go).
func (r *Registry) LatestAvailableWithProvides(virtualID string, criteria GameVersionCriteria, constraint *RelationshipDescriptor, alsoInstalling []CkanModule) []CkanModule {
	var out []CkanModule
	for _, am := range r.providers.Providers(virtualID) {
		m := am.Latest(&criteria, constraint, nil, alsoInstalling)
		if m != nil && m.ProvidesVirtual(virtualID) {
			out = append(out, *m)
		}
	}
	return out
}

func (r *Registry) ensureSorter(criteria GameVersionCriteria) {
	if r.sorter != nil && r.sorter.matches(criteria) {
		return
	}
	r.sorter = buildCompatibilitySorter(r.available, criteria)
}

// CompatibleModules returns the latest version of every AvailableModule
// compatible with criteria, using (and populating) the cached sorter.
func (r *Registry) CompatibleModules(criteria GameVersionCriteria) map[string]CkanModule {
	r.ensureSorter(criteria)
	return r.sorter.compatibleLatests()
}

// IncompatibleModules returns the newest version of every AvailableModule
// incompatible with criteria.
func (r *Registry) IncompatibleModules(criteria GameVersionCriteria) map[string]CkanModule {
	r.ensureSorter(criteria)
	return r.sorter.incompatibleLatests()
}

// AvailableByIdentifier returns every version known for id, newest first.
func (r *Registry) AvailableByIdentifier(id string) ([]CkanModule, error) {
	am, ok := r.available[id]
	if !ok {
		return nil, &NotFoundError{Identifier: id}
	}
	return am.All(), nil
}

// AvailableIdentifiers returns every identifier with at least one known
// version, sorted.
func (r *Registry) AvailableIdentifiers() []string {
	out := make([]string, 0, len(r.available))
	for id := range r.available {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// externalUniverse synthesizes placeholder CkanModules for loose binaries
// and DLC so they can participate as identifier-matching (not
// provides-matching) entries in depends satisfaction checks.
func (r *Registry) externalUniverse() []CkanModule {
	out := make([]CkanModule, 0, len(r.installedDLLs)+len(r.installedDLC))
	for shortName, rel := range r.installedDLLs {
		out = append(out, CkanModule{Identifier: shortName, Version: NewUnmanagedVersion(rel)})
	}
	for id, v := range r.installedDLC {
		out = append(out, CkanModule{Identifier: id, Version: v})
	}
	return out
}

// Installed overlays (loose binaries as Unmanaged) + (virtual provisions
// as ProvidesVersion, when withProvides) + (real installs) + (DLC), later
// layers overwriting earlier ones. Map iteration order is unspecified; the
// value stored at each key is deterministic.
func (r *Registry) Installed(withProvides bool) map[string]ModuleVersion {
	out := make(map[string]ModuleVersion)
	for shortName, rel := range r.installedDLLs {
		out[shortName] = NewUnmanagedVersion(rel)
	}
	if withProvides {
		for virtual, bucket := range r.providers.byVirtual {
			for _, am := range bucket {
				if m := am.Latest(nil, nil, nil, nil); m != nil && m.ProvidesVirtual(virtual) {
					out[virtual] = NewProvidesVersion(am.Identifier(), m.Version.String())
				}
			}
		}
	}
	for id, im := range r.installed {
		out[id] = im.Metadata().Version
	}
	for id, v := range r.installedDLC {
		out[id] = v
	}
	return out
}

// InstalledVersion resolves id with precedence DLC > installed > loose
// binary > provides > none.
func (r *Registry) InstalledVersion(id string, withProvides bool) (ModuleVersion, bool) {
	if v, ok := r.installedDLC[id]; ok {
		return v, true
	}
	if im, ok := r.installed[id]; ok {
		return im.Metadata().Version, true
	}
	if rel, ok := r.installedDLLs[id]; ok {
		return NewUnmanagedVersion(rel), true
	}
	if withProvides {
		for _, am := range r.providers.Providers(id) {
			if m := am.Latest(nil, nil, nil, nil); m != nil && m.ProvidesVirtual(id) {
				return NewProvidesVersion(am.Identifier(), m.Version.String()), true
			}
		}
	}
	return ModuleVersion{}, false
}

// FileOwner fails with PathError if relPath is absolute.
func (r *Registry) FileOwner(relPath string) (string, error) {
	if isAbsolutePath(relPath) {
		return "", &PathError{Path: relPath}
	}
	id, ok := r.installedFiles.Owner(path.Clean(relPath))
	if !ok {
		return "", &NotFoundError{Identifier: relPath}
	}
	return id, nil
}

// SanityError is a single sanity-check finding: a kind tag, a
// human-readable message, and the identifiers it implicates.
type SanityError struct {
	Kind        string
	Message     string
	Identifiers []string
}

// CheckSanity is the boolean projection of GetSanityErrors.
func (r *Registry) CheckSanity() bool {
	return len(r.GetSanityErrors()) == 0
}

// GetSanityErrors reports every installed module whose depends cannot be
// satisfied by the rest of the installed set plus loose binaries and DLC,
// and every available module whose license expression fails SPDX
// validation.
func (r *Registry) GetSanityErrors() []SanityError {
	var errs []SanityError

	if broken := UnsatisfiedDepends(r.installed, r.externalUniverse()); len(broken) > 0 {
		errs = append(errs, SanityError{
			Kind:        "unsatisfied-depends",
			Message:     "installed modules have unsatisfied dependencies",
			Identifiers: broken,
		})
	}

	var badLicense []string
	for id, am := range r.available {
		for _, m := range am.All() {
			if !validateLicense(m.Licenses) {
				badLicense = append(badLicense, id)
				break
			}
		}
	}
	if len(badLicense) > 0 {
		sort.Strings(badLicense)
		errs = append(errs, SanityError{
			Kind:        "invalid-license",
			Message:     "some available modules declare a malformed SPDX license expression",
			Identifiers: badLicense,
		})
	}

	return errs
}

// FindReverseDependencies is the Registry-bound form of the package-level
// FindReverseDependencies: it supplies the current installed set and the
// loose-binary/DLC universe automatically.
func (r *Registry) FindReverseDependencies(removed []string) func(yield func(string) bool) {
	return FindReverseDependencies(removed, r.installed, r.externalUniverse())
}

// FindRemovableAutoInstalled is the Registry-bound form of the
// package-level helper of the same name.
func (r *Registry) FindRemovableAutoInstalled() []string {
	return FindRemovableAutoInstalled(r.installed, r.externalUniverse())
}

// GetSHA1Index folds across every available version, producing a SHA1 ->
// modules index. Duplicates are allowed.
func (r *Registry) GetSHA1Index() map[string][]CkanModule {
	out := make(map[string][]CkanModule)
	for _, am := range r.available {
		for _, m := range am.All() {
			if m.DownloadHash != nil && m.DownloadHash.SHA1 != "" {
				out[m.DownloadHash.SHA1] = append(out[m.DownloadHash.SHA1], m)
			}
		}
	}
	return out
}

// GetDownloadHashIndex folds across every available version with a
// download URL, keying each by URLHash (§6.2). Duplicates are allowed.
func (r *Registry) GetDownloadHashIndex() map[string][]CkanModule {
	out := make(map[string][]CkanModule)
	for _, am := range r.available {
		for _, m := range am.All() {
			if m.DownloadURL == "" {
				continue
			}
			key := URLHash(m.DownloadURL)
			out[key] = append(out[key], m)
		}
	}
	return out
}

// DownloadCount returns the merged-in download count for id, if any.
func (r *Registry) DownloadCount(id string) (int, bool) {
	n, ok := r.downloadCounts[id]
	return n, ok
}

// Repositories returns the configured repository list, keyed by name. This
// is plain configuration state, not part of the availability/installation
// invariants §4 enumerates, so it is not transaction-guarded.
func (r *Registry) Repositories() map[string]Repository {
	return copyRepositories(r.repositories)
}

// SetRepositories replaces the configured repository list wholesale. A
// repo sync collaborator (internal/repo) calls this before feeding newly
// fetched modules in through SetAllAvailable/AddAvailable.
func (r *Registry) SetRepositories(repos map[string]Repository) {
	r.repositories = copyRepositories(repos)
}

// ---- snapshot / restore (component H support) -------------------------

type registrySnapshot struct {
	available       map[string]*AvailableModule
	providers       *providesIndex
	sorter          *compatibilitySorter
	installed       map[string]InstalledModule
	installedFiles  *fileOwnership
	installedDLLs   map[string]string
	installedDLC    map[string]ModuleVersion
	downloadCounts  map[string]int
	registryVersion int
}

// snapshot takes a deep structural copy of every mutable field — the
// cheaper stand-in the design notes (§9) call for, replacing the source's
// serialize-to-blob snapshot with a structural clone of equivalent
// fidelity.
func (r *Registry) snapshot() *registrySnapshot {
	available := make(map[string]*AvailableModule, len(r.available))
	for id, am := range r.available {
		available[id] = am.Clone()
	}
	installed := make(map[string]InstalledModule, len(r.installed))
	for id, im := range r.installed {
		installed[id] = im
	}
	dlls := make(map[string]string, len(r.installedDLLs))
	for k, v := range r.installedDLLs {
		dlls[k] = v
	}
	dlc := make(map[string]ModuleVersion, len(r.installedDLC))
	for k, v := range r.installedDLC {
		dlc[k] = v
	}
	counts := make(map[string]int, len(r.downloadCounts))
	for k, v := range r.downloadCounts {
		counts[k] = v
	}
	return &registrySnapshot{
		available:       available,
		providers:       r.providers.Clone(available),
		sorter:          r.sorter.Clone(available),
		installed:       installed,
		installedFiles:  r.installedFiles.Clone(),
		installedDLLs:   dlls,
		installedDLC:    dlc,
		downloadCounts:  counts,
		registryVersion: r.registryVersion,
	}
}

// restore overwrites the live state with snap, field-by-field, so external
// references to the *Registry remain valid (spec §5.6).
func (r *Registry) restore(snap *registrySnapshot) {
	r.available = snap.available
	r.providers = snap.providers
	r.sorter = snap.sorter
	r.installed = snap.installed
	r.installedFiles = snap.installedFiles
	r.installedDLLs = snap.installedDLLs
	r.installedDLC = snap.installedDLC
	r.downloadCounts = snap.downloadCounts
	r.registryVersion = snap.registryVersion
}
