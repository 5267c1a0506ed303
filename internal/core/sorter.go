package core

// compatibilitySorter partitions the available catalog into
// compatible/incompatible buckets for one GameVersionCriteria at a time.
// The Registry discards it wholesale (not incrementally) whenever the
// available set changes, or swaps it for a fresh one when queried with a
// criteria that doesn't match the cached one (spec §4.5: "Replacement is
// all-or-nothing; there is no partial update").
type compatibilitySorter struct {
	criteria      GameVersionCriteria
	compatible    map[string]*AvailableModule
	incompatible  map[string]*AvailableModule
}

// buildCompatibilitySorter partitions catalog under criteria: an
// AvailableModule is compatible iff its Latest(criteria, nil, nil, nil) is
// non-nil.
func buildCompatibilitySorter(catalog map[string]*AvailableModule, criteria GameVersionCriteria) *compatibilitySorter {
	s := &compatibilitySorter{
		criteria:     criteria,
		compatible:   make(map[string]*AvailableModule),
		incompatible: make(map[string]*AvailableModule),
	}
	for id, am := range catalog {
		if am.Latest(&criteria, nil, nil, nil) != nil {
			s.compatible[id] = am
		} else {
			s.incompatible[id] = am
		}
	}
	return s
}

// Clone rebuilds an independent sorter over catalog (which must already
// hold the post-clone AvailableModule instances) using this sorter's
// criteria. A structural copy of s.compatible/s.incompatible would still
// alias the live AvailableModule pointers the original registry mutates
// in place, so Clone re-partitions catalog from scratch instead. Returns
// nil for a nil sorter, matching the "no sorter cached" state.
func (s *compatibilitySorter) Clone(catalog map[string]*AvailableModule) *compatibilitySorter {
	if s == nil {
		return nil
	}
	return buildCompatibilitySorter(catalog, s.criteria)
}

// matches reports whether this cached sorter already covers criteria.
func (s *compatibilitySorter) matches(criteria GameVersionCriteria) bool {
	if s == nil {
		return false
	}
	a, b := s.criteria.Versions(), criteria.Versions()
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]bool, len(a))
	for _, v := range a {
		seen[v.String()] = true
	}
	for _, v := range b {
		if !seen[v.String()] {
			return false
		}
	}
	return true
}

func (s *compatibilitySorter) compatibleLatests() map[string]CkanModule {
	return latestsOf(s.compatible, s.criteria)
}

func (s *compatibilitySorter) incompatibleLatests() map[string]CkanModule {
	out := make(map[string]CkanModule, len(s.incompatible))
	for id, am := range s.incompatible {
		if all := am.All(); len(all) > 0 {
			out[id] = all[0]
		}
	}
	return out
}

func latestsOf(catalog map[string]*AvailableModule, criteria GameVersionCriteria) map[string]CkanModule {
	out := make(map[string]CkanModule, len(catalog))
	for id, am := range catalog {
		if m := am.Latest(&criteria, nil, nil, nil); m != nil {
			out[id] = *m
		}
	}
	return out
}
