package core

import "fmt"

// Repository is the minimal record the blob format needs for
// sorted_repositories — name and fetch URL. Repository fetching itself is
// an external collaborator's job (see internal/repo); the core only
// round-trips the record.
type Repository struct {
	Name string
	URL  string
}

// moduleVersionBlob is ModuleVersion's serializable form.
type moduleVersionBlob struct {
	Kind            string `json:"kind"`
	Value           string `json:"value,omitempty"`
	ProvidesID      string `json:"provides_id,omitempty"`
	ProvidesVersion string `json:"provides_version,omitempty"`
}

func toVersionBlob(v ModuleVersion) moduleVersionBlob {
	switch v.kind {
	case KindSemantic:
		return moduleVersionBlob{Kind: "semantic", Value: v.raw}
	case KindUnmanaged:
		if v.absent {
			return moduleVersionBlob{Kind: "unmanaged"}
		}
		return moduleVersionBlob{Kind: "unmanaged", Value: v.unmanaged}
	case KindProvides:
		return moduleVersionBlob{Kind: "provides", ProvidesID: v.providesID, ProvidesVersion: v.providesVersion}
	default:
		return moduleVersionBlob{}
	}
}

func fromVersionBlob(b moduleVersionBlob) (ModuleVersion, error) {
	switch b.Kind {
	case "semantic":
		return NewSemanticVersion(b.Value)
	case "unmanaged":
		return NewUnmanagedVersion(b.Value), nil
	case "provides":
		return NewProvidesVersion(b.ProvidesID, b.ProvidesVersion), nil
	default:
		return ModuleVersion{}, fmt.Errorf("core: unknown version kind %q", b.Kind)
	}
}

func optionalVersionBlob(v *ModuleVersion) *moduleVersionBlob {
	if v == nil {
		return nil
	}
	b := toVersionBlob(*v)
	return &b
}

func fromOptionalVersionBlob(b *moduleVersionBlob) (*ModuleVersion, error) {
	if b == nil {
		return nil, nil
	}
	v, err := fromVersionBlob(*b)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

type relationshipBlob struct {
	Identifier string             `json:"identifier"`
	Min        *moduleVersionBlob `json:"min,omitempty"`
	Max        *moduleVersionBlob `json:"max,omitempty"`
	Exact      *moduleVersionBlob `json:"exact,omitempty"`
	AnyOf      []string           `json:"any_of,omitempty"`
}

func toRelationshipBlob(rd RelationshipDescriptor) relationshipBlob {
	return relationshipBlob{
		Identifier: rd.Identifier,
		Min:        optionalVersionBlob(rd.MinVersion),
		Max:        optionalVersionBlob(rd.MaxVersion),
		Exact:      optionalVersionBlob(rd.Exact),
		AnyOf:      rd.AnyOf,
	}
}

func fromRelationshipBlob(b relationshipBlob) (RelationshipDescriptor, error) {
	min, err := fromOptionalVersionBlob(b.Min)
	if err != nil {
		return RelationshipDescriptor{}, err
	}
	max, err := fromOptionalVersionBlob(b.Max)
	if err != nil {
		return RelationshipDescriptor{}, err
	}
	exact, err := fromOptionalVersionBlob(b.Exact)
	if err != nil {
		return RelationshipDescriptor{}, err
	}
	return RelationshipDescriptor{Identifier: b.Identifier, MinVersion: min, MaxVersion: max, Exact: exact, AnyOf: b.AnyOf}, nil
}

func toRelationshipBlobs(rds []RelationshipDescriptor) []relationshipBlob {
	out := make([]relationshipBlob, len(rds))
	for i, rd := range rds {
		out[i] = toRelationshipBlob(rd)
	}
	return out
}

func fromRelationshipBlobs(bs []relationshipBlob) ([]RelationshipDescriptor, error) {
	out := make([]RelationshipDescriptor, len(bs))
	for i, b := range bs {
		rd, err := fromRelationshipBlob(b)
		if err != nil {
			return nil, err
		}
		out[i] = rd
	}
	return out, nil
}

// ckanModuleBlob is CkanModule's serializable form.
type ckanModuleBlob struct {
	Identifier string            `json:"identifier"`
	Version    moduleVersionBlob `json:"version"`
	Provides   []string          `json:"provides,omitempty"`

	MinGame string `json:"min_game"`
	MaxGame string `json:"max_game"`

	Depends    []relationshipBlob `json:"depends,omitempty"`
	Conflicts  []relationshipBlob `json:"conflicts,omitempty"`
	Recommends []relationshipBlob `json:"recommends,omitempty"`
	Suggests   []relationshipBlob `json:"suggests,omitempty"`

	DownloadURL    string `json:"download_url,omitempty"`
	DownloadSHA1   string `json:"download_sha1,omitempty"`
	DownloadSHA256 string `json:"download_sha256,omitempty"`

	Licenses string `json:"licenses,omitempty"`
}

func toCkanModuleBlob(m CkanModule) ckanModuleBlob {
	b := ckanModuleBlob{
		Identifier: m.Identifier,
		Version:    toVersionBlob(m.Version),
		Provides:   m.Provides,
		MinGame:    m.GameVersions.Min.String(),
		MaxGame:    m.GameVersions.Max.String(),
		Depends:    toRelationshipBlobs(m.Depends),
		Conflicts:  toRelationshipBlobs(m.Conflicts),
		Recommends: toRelationshipBlobs(m.Recommends),
		Suggests:   toRelationshipBlobs(m.Suggests),
		DownloadURL: m.DownloadURL,
		Licenses:    m.Licenses,
	}
	if m.DownloadHash != nil {
		b.DownloadSHA1 = m.DownloadHash.SHA1
		b.DownloadSHA256 = m.DownloadHash.SHA256
	}
	return b
}

func fromCkanModuleBlob(b ckanModuleBlob) (CkanModule, error) {
	v, err := fromVersionBlob(b.Version)
	if err != nil {
		return CkanModule{}, err
	}
	minGame, err := ParseGameVersion(b.MinGame)
	if err != nil {
		return CkanModule{}, err
	}
	maxGame, err := ParseGameVersion(b.MaxGame)
	if err != nil {
		return CkanModule{}, err
	}
	depends, err := fromRelationshipBlobs(b.Depends)
	if err != nil {
		return CkanModule{}, err
	}
	conflicts, err := fromRelationshipBlobs(b.Conflicts)
	if err != nil {
		return CkanModule{}, err
	}
	recommends, err := fromRelationshipBlobs(b.Recommends)
	if err != nil {
		return CkanModule{}, err
	}
	suggests, err := fromRelationshipBlobs(b.Suggests)
	if err != nil {
		return CkanModule{}, err
	}

	m := CkanModule{
		Identifier:   b.Identifier,
		Version:      v,
		Provides:     b.Provides,
		GameVersions: GameVersionInterval{Min: minGame, Max: maxGame},
		Depends:      depends,
		Conflicts:    conflicts,
		Recommends:   recommends,
		Suggests:     suggests,
		DownloadURL:  b.DownloadURL,
		Licenses:     b.Licenses,
	}
	if b.DownloadSHA1 != "" || b.DownloadSHA256 != "" {
		m.DownloadHash = &DownloadHash{SHA1: b.DownloadSHA1, SHA256: b.DownloadSHA256}
	}
	return m, nil
}

// installedModuleBlob is InstalledModule's serializable form.
type installedModuleBlob struct {
	Metadata      ckanModuleBlob `json:"metadata"`
	Files         []string       `json:"files"`
	AutoInstalled bool           `json:"auto_installed"`
}

func toInstalledModuleBlob(im InstalledModule) installedModuleBlob {
	return installedModuleBlob{Metadata: toCkanModuleBlob(im.metadata), Files: im.files, AutoInstalled: im.autoInstalled}
}

func fromInstalledModuleBlob(b installedModuleBlob) (InstalledModule, error) {
	m, err := fromCkanModuleBlob(b.Metadata)
	if err != nil {
		return InstalledModule{}, err
	}
	return NewInstalledModule(m, b.Files, b.AutoInstalled), nil
}

// Blob is the textual object-graph persisted across process runs (spec
// §6.1). Field order here mirrors the key list in the spec, not Go
// convention, so the two stay easy to diff against each other.
type Blob struct {
	RegistryVersion    int                       `json:"registry_version"`
	SortedRepositories map[string]Repository     `json:"sorted_repositories"`
	AvailableModules   map[string][]ckanModuleBlob `json:"available_modules"`
	InstalledModules   map[string]installedModuleBlob `json:"installed_modules"`
	InstalledDLLs      map[string]string         `json:"installed_dlls"`
	InstalledFiles     map[string]string         `json:"installed_files"`
	DownloadCounts     map[string]int            `json:"download_counts"`
}

// Serialize produces the persisted representation of r's current state.
func (r *Registry) Serialize() (*Blob, error) {
	available := make(map[string][]ckanModuleBlob, len(r.available))
	for id, am := range r.available {
		versions := am.All()
		blobs := make([]ckanModuleBlob, len(versions))
		for i, m := range versions {
			blobs[i] = toCkanModuleBlob(m)
		}
		available[id] = blobs
	}

	installed := make(map[string]installedModuleBlob, len(r.installed))
	for id, im := range r.installed {
		installed[id] = toInstalledModuleBlob(im)
	}

	return &Blob{
		RegistryVersion:    r.registryVersion,
		SortedRepositories: copyRepositories(r.repositories),
		AvailableModules:   available,
		InstalledModules:   installed,
		InstalledDLLs:      copyStringMap(r.installedDLLs),
		InstalledFiles:     r.installedFiles.All(),
		DownloadCounts:     copyIntMap(r.downloadCounts),
	}, nil
}

func copyStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyIntMap(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyRepositories(m map[string]Repository) map[string]Repository {
	out := make(map[string]Repository, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
