package core

// providesIndex is the inverted index from virtual-package name to the set
// of AvailableModules that provide it (invariant 4). Maintained
// incrementally on Add; never shrunk on Remove — an AvailableModule stays
// indexed under v as long as any of its versions still provides v.
// Consumers re-verify membership (see Registry.LatestAvailableWithProvides),
// so stale entries are tolerated by design, not by accident (spec §4.4).
type providesIndex struct {
	byVirtual map[string]map[string]*AvailableModule // virtual name -> identifier -> module
}

func newProvidesIndex() *providesIndex {
	return &providesIndex{byVirtual: make(map[string]map[string]*AvailableModule)}
}

// reindex walks am's current versions and inserts am into every virtual
// name any of them provides.
func (pi *providesIndex) reindex(am *AvailableModule) {
	for _, m := range am.All() {
		for _, v := range m.Provides {
			bucket, ok := pi.byVirtual[v]
			if !ok {
				bucket = make(map[string]*AvailableModule)
				pi.byVirtual[v] = bucket
			}
			bucket[am.Identifier()] = am
		}
	}
}

// Providers returns every AvailableModule indexed under virtual (stale
// entries included; callers re-verify).
func (pi *providesIndex) Providers(virtual string) []*AvailableModule {
	bucket := pi.byVirtual[virtual]
	out := make([]*AvailableModule, 0, len(bucket))
	for _, am := range bucket {
		out = append(out, am)
	}
	return out
}

// Rebuild discards the index and reindexes every module in the given
// catalog. Used by set_all_available and after deserialization.
func (pi *providesIndex) Rebuild(catalog map[string]*AvailableModule) {
	pi.byVirtual = make(map[string]map[string]*AvailableModule)
	for _, am := range catalog {
		pi.reindex(am)
	}
}

// Clone produces an independent index over catalog, which must already
// hold the post-clone AvailableModule instances (e.g. from Registry's own
// deep-cloned available map). Rebuilding against catalog rather than
// structurally copying pi's buckets guarantees the clone never aliases a
// live AvailableModule that the original registry keeps mutating in
// place, and that every bucket referencing one identifier points at the
// same instance catalog does.
func (pi *providesIndex) Clone(catalog map[string]*AvailableModule) *providesIndex {
	out := newProvidesIndex()
	out.Rebuild(catalog)
	return out
}
