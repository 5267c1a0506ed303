package repo

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/forgemods/modregistry/internal/core"
)

// indexRelationship is the wire shape of one depends/conflicts/recommends/
// suggests entry in a repository module index.
type indexRelationship struct {
	Identifier string   `json:"identifier"`
	MinVersion string   `json:"min_version,omitempty"`
	MaxVersion string   `json:"max_version,omitempty"`
	Version    string   `json:"version,omitempty"`
	AnyOf      []string `json:"any_of,omitempty"`
}

func (ir indexRelationship) toDescriptor() (core.RelationshipDescriptor, error) {
	rd := core.RelationshipDescriptor{Identifier: ir.Identifier, AnyOf: ir.AnyOf}
	if ir.Version != "" {
		v, err := core.NewSemanticVersion(ir.Version)
		if err != nil {
			return core.RelationshipDescriptor{}, err
		}
		rd.Exact = &v
		return rd, nil
	}
	if ir.MinVersion != "" {
		v, err := core.NewSemanticVersion(ir.MinVersion)
		if err != nil {
			return core.RelationshipDescriptor{}, err
		}
		rd.MinVersion = &v
	}
	if ir.MaxVersion != "" {
		v, err := core.NewSemanticVersion(ir.MaxVersion)
		if err != nil {
			return core.RelationshipDescriptor{}, err
		}
		rd.MaxVersion = &v
	}
	return rd, nil
}

func toDescriptors(rels []indexRelationship) ([]core.RelationshipDescriptor, error) {
	out := make([]core.RelationshipDescriptor, len(rels))
	for i, ir := range rels {
		rd, err := ir.toDescriptor()
		if err != nil {
			return nil, fmt.Errorf("repo: relationship %d: %w", i, err)
		}
		out[i] = rd
	}
	return out, nil
}

// indexModule is the wire shape of one module version in a repository
// index document.
type indexModule struct {
	Identifier string   `json:"identifier"`
	Version    string   `json:"version"`
	Provides   []string `json:"provides,omitempty"`

	MinGameVersion string `json:"min_game_version,omitempty"`
	MaxGameVersion string `json:"max_game_version,omitempty"`

	Depends    []indexRelationship `json:"depends,omitempty"`
	Conflicts  []indexRelationship `json:"conflicts,omitempty"`
	Recommends []indexRelationship `json:"recommends,omitempty"`
	Suggests   []indexRelationship `json:"suggests,omitempty"`

	Download       string `json:"download,omitempty"`
	DownloadSHA1   string `json:"download_sha1,omitempty"`
	DownloadSHA256 string `json:"download_sha256,omitempty"`

	License string `json:"license,omitempty"`
}

func (im indexModule) toCkanModule() (core.CkanModule, error) {
	v, err := core.NewSemanticVersion(im.Version)
	if err != nil {
		return core.CkanModule{}, fmt.Errorf("repo: module %s: %w", im.Identifier, err)
	}
	minGame, err := core.ParseGameVersion(im.MinGameVersion)
	if err != nil {
		return core.CkanModule{}, fmt.Errorf("repo: module %s: %w", im.Identifier, err)
	}
	maxGame, err := core.ParseGameVersion(im.MaxGameVersion)
	if err != nil {
		return core.CkanModule{}, fmt.Errorf("repo: module %s: %w", im.Identifier, err)
	}
	depends, err := toDescriptors(im.Depends)
	if err != nil {
		return core.CkanModule{}, fmt.Errorf("repo: module %s depends: %w", im.Identifier, err)
	}
	conflicts, err := toDescriptors(im.Conflicts)
	if err != nil {
		return core.CkanModule{}, fmt.Errorf("repo: module %s conflicts: %w", im.Identifier, err)
	}
	recommends, err := toDescriptors(im.Recommends)
	if err != nil {
		return core.CkanModule{}, fmt.Errorf("repo: module %s recommends: %w", im.Identifier, err)
	}
	suggests, err := toDescriptors(im.Suggests)
	if err != nil {
		return core.CkanModule{}, fmt.Errorf("repo: module %s suggests: %w", im.Identifier, err)
	}

	m := core.CkanModule{
		Identifier:   im.Identifier,
		Version:      v,
		Provides:     im.Provides,
		GameVersions: core.GameVersionInterval{Min: minGame, Max: maxGame},
		Depends:      depends,
		Conflicts:    conflicts,
		Recommends:   recommends,
		Suggests:     suggests,
		DownloadURL:  im.Download,
		Licenses:     im.License,
	}
	if im.DownloadSHA1 != "" || im.DownloadSHA256 != "" {
		m.DownloadHash = &core.DownloadHash{SHA1: im.DownloadSHA1, SHA256: im.DownloadSHA256}
	}
	return m, nil
}

// DecodeIndex parses a repository module index document (a JSON array of
// module records) into CkanModules.
func DecodeIndex(r io.Reader) ([]core.CkanModule, error) {
	var raw []indexModule
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("repo: decoding index: %w", err)
	}
	out := make([]core.CkanModule, 0, len(raw))
	for _, im := range raw {
		m, err := im.toCkanModule()
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
