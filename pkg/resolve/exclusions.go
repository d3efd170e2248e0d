package resolve

import (
	"sort"

	"github.com/scala-steward/coursier/pkg/coord"
	"github.com/scala-steward/coursier/pkg/descriptor"
)

// exclusionSet is an immutable set of exclusion patterns carried along a
// dependency path. Sets are copied on extension so sibling paths never
// share state.
type exclusionSet map[descriptor.Exclusion]struct{}

func newExclusionSet(excls []descriptor.Exclusion) exclusionSet {
	if len(excls) == 0 {
		return nil
	}
	s := make(exclusionSet, len(excls))
	for _, e := range excls {
		s[e] = struct{}{}
	}
	return s
}

// union returns a set containing both operands' patterns.
func (s exclusionSet) union(excls []descriptor.Exclusion) exclusionSet {
	if len(excls) == 0 {
		return s
	}
	out := make(exclusionSet, len(s)+len(excls))
	for e := range s {
		out[e] = struct{}{}
	}
	for _, e := range excls {
		out[e] = struct{}{}
	}
	return out
}

// excludes reports whether any pattern in the set matches the key.
func (s exclusionSet) excludes(key coord.ModuleKey) bool {
	for e := range s {
		if e.Matches(key) {
			return true
		}
	}
	return false
}

// sorted returns the patterns in a stable order for reports.
func (s exclusionSet) sorted() []descriptor.Exclusion {
	out := make([]descriptor.Exclusion, 0, len(s))
	for e := range s {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Organization != out[j].Organization {
			return out[i].Organization < out[j].Organization
		}
		return out[i].Name < out[j].Name
	})
	return out
}
