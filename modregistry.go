// Package modregistry is the public surface of a mod-registry engine: an
// in-memory aggregate of available mods, installed mods, loose binaries
// and DLC, and the derived indexes a dependency-aware mod manager needs.
//
// Basic usage:
//
//	r := modregistry.NewRegistry()
//	tx := modregistry.NewTransaction()
//	if err := r.AddAvailable(tx, someModule); err != nil {
//		tx.Rollback()
//		log.Fatal(err)
//	}
//	tx.Commit()
//
// All network access and concurrency lives in the repo subpackage, which
// fetches configured repositories and feeds their module indexes into a
// Registry:
//
//	syncer := repo.NewSyncer(repositories)
//	if err := syncer.Sync(ctx, tx, r); err != nil {
//		tx.Rollback()
//		log.Fatal(err)
//	}
//	tx.Commit()
package modregistry

import (
	"github.com/rs/zerolog"

	"github.com/forgemods/modregistry/internal/core"
)

// Re-export the core aggregate and its configuration.
type (
	// Registry is the aggregate root holding available modules, installed
	// modules, loose binaries, DLC, and their derived indexes.
	Registry = core.Registry

	// Option configures a Registry at construction time.
	Option = core.Option

	// Transaction is the explicit stand-in for an ambient two-phase
	// transaction: mutating Registry methods enlist in it, and a single
	// Rollback restores every enlisted Registry to its pre-transaction
	// state.
	Transaction = core.Transaction

	// Clock abstracts time.Now for deterministic tests.
	Clock = core.Clock
)

// Re-export the data model.
type (
	// CkanModule is an immutable metadata record for one version of one mod.
	CkanModule = core.CkanModule

	// DownloadHash carries the digests a CkanModule's archive may be
	// indexed by.
	DownloadHash = core.DownloadHash

	// ModuleVersion is the polymorphic version type: semantic, unmanaged
	// (loose-binary), or provides (virtual-package placeholder).
	ModuleVersion = core.ModuleVersion

	// VersionKind discriminates ModuleVersion's variants.
	VersionKind = core.VersionKind

	// GameVersion is a semantic version or the wildcard "any" value.
	GameVersion = core.GameVersion

	// GameVersionInterval is a [min,max] compatibility range.
	GameVersionInterval = core.GameVersionInterval

	// GameVersionCriteria is the set of game versions a user targets.
	GameVersionCriteria = core.GameVersionCriteria

	// RelationshipDescriptor is a depends/conflicts/recommends/suggests
	// constraint.
	RelationshipDescriptor = core.RelationshipDescriptor

	// AvailableModule is the bag of every known version of one identifier.
	AvailableModule = core.AvailableModule

	// InstalledModule is a snapshot of a module the user has installed.
	InstalledModule = core.InstalledModule

	// SanityError is a single sanity-check finding.
	SanityError = core.SanityError

	// Repository is a configured module-index source: a name and a fetch
	// URL.
	Repository = core.Repository

	// Blob is the persisted representation of a Registry's state.
	Blob = core.Blob

	// RepoURLRewrite names a legacy repository URL and its replacement,
	// applied during Migrate/Deserialize.
	RepoURLRewrite = core.RepoURLRewrite
)

// Re-export version kinds.
const (
	KindSemantic  = core.KindSemantic
	KindUnmanaged = core.KindUnmanaged
	KindProvides  = core.KindProvides
)

// Re-export error sentinels.
var (
	ErrNotFound     = core.ErrNotFound
	ErrInconsistent = core.ErrInconsistent
	ErrPath         = core.ErrPath
	ErrTransaction  = core.ErrTransaction
	ErrInternal     = core.ErrInternal
)

// Error types.
type (
	NotFoundError     = core.NotFoundError
	InconsistentError = core.InconsistentError
	PathError         = core.PathError
	TransactionError  = core.TransactionError
	InternalError     = core.InternalError
)

// NewRegistry creates an empty registry at the current schema version.
func NewRegistry(opts ...Option) *Registry { return core.NewRegistry(opts...) }

// WithLogger sets the registry's logger.
func WithLogger(l zerolog.Logger) Option { return core.WithLogger(l) }

// WithClock sets the registry's time source.
func WithClock(c Clock) Option { return core.WithClock(c) }

// NewTransaction begins a new ambient transaction scope.
func NewTransaction() *Transaction { return core.NewTransaction() }

// NewSemanticVersion parses a classical dotted numeric version.
func NewSemanticVersion(s string) (ModuleVersion, error) { return core.NewSemanticVersion(s) }

// MustSemanticVersion is a test/fixture helper; it panics on a malformed input.
func MustSemanticVersion(s string) ModuleVersion { return core.MustSemanticVersion(s) }

// NewUnmanagedVersion wraps an opaque string describing an auto-detected artifact.
func NewUnmanagedVersion(s string) ModuleVersion { return core.NewUnmanagedVersion(s) }

// NewProvidesVersion builds the placeholder version for a virtual package.
func NewProvidesVersion(id, version string) ModuleVersion { return core.NewProvidesVersion(id, version) }

// AnyGameVersion returns the distinguished "all versions" value.
func AnyGameVersion() GameVersion { return core.AnyGameVersion() }

// ParseGameVersion parses a dotted numeric game version, or "any".
func ParseGameVersion(s string) (GameVersion, error) { return core.ParseGameVersion(s) }

// MustGameVersion is a test/fixture helper; it panics on a malformed input.
func MustGameVersion(s string) GameVersion { return core.MustGameVersion(s) }

// NewGameVersionCriteria builds a criteria set, deduplicating by string form.
func NewGameVersionCriteria(versions ...GameVersion) GameVersionCriteria {
	return core.NewGameVersionCriteria(versions...)
}

// NewAvailableModule creates an empty bag for identifier.
func NewAvailableModule(identifier string) *AvailableModule { return core.NewAvailableModule(identifier) }

// NewInstalledModule builds an InstalledModule snapshot.
func NewInstalledModule(metadata CkanModule, files []string, autoInstalled bool) InstalledModule {
	return core.NewInstalledModule(metadata, files, autoInstalled)
}

// ModulePURL renders a canonical "pkg:ckan/<identifier>@<version>" string.
func ModulePURL(identifier string, v ModuleVersion) (string, bool) { return core.ModulePURL(identifier, v) }

// ParseModulePURL parses a PURL produced by ModulePURL.
func ParseModulePURL(s string) (identifier, version string, err error) { return core.ParseModulePURL(s) }

// ShortNameFromPath derives a loose binary's index key from its relative path.
func ShortNameFromPath(relPath string) (name string, ok bool) { return core.ShortNameFromPath(relPath) }

// FindReverseDependencies computes the transitive closure of modules broken
// by removing every identifier in removed.
func FindReverseDependencies(removed []string, installed map[string]InstalledModule, universeExtra []CkanModule) func(yield func(string) bool) {
	return core.FindReverseDependencies(removed, installed, universeExtra)
}

// Migrate applies the registry's blob upgrade contract to a raw blob.
func Migrate(b *Blob, gameRoot string, rewrite RepoURLRewrite) *Blob { return core.Migrate(b, gameRoot, rewrite) }

// Deserialize rebuilds a Registry from a persisted Blob, migrating it first.
func Deserialize(b *Blob, gameRoot string, rewrite RepoURLRewrite, opts ...Option) (*Registry, error) {
	return core.Deserialize(b, gameRoot, rewrite, opts...)
}

// LooksLikeLegacyArchiveURL reports whether u has the shape of a packed
// metadata archive rather than a live index endpoint.
func LooksLikeLegacyArchiveURL(u string) bool { return core.LooksLikeLegacyArchiveURL(u) }
