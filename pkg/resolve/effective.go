package resolve

import (
	"os"

	"github.com/scala-steward/coursier/pkg/coord"
	"github.com/scala-steward/coursier/pkg/descriptor"
	"github.com/scala-steward/coursier/pkg/errors"
)

// maxParentDepth bounds parent chains; anything deeper is treated as a
// cycle.
const maxParentDepth = 20

func storeKey(c coord.Coordinate) string {
	return c.Organization + ":" + c.Name + ":" + c.Version
}

// effective computes the fully-merged descriptor of a concrete
// coordinate: parents folded in, active profiles spliced, properties
// substituted, and BOM imports expanded into dependency management.
//
// When descriptors are still missing the second return lists them and
// the project is nil; the caller requests them and retries. A parent or
// import cycle is a fatal error.
func (r *Resolution) effective(c coord.Coordinate) (*descriptor.Project, []coord.Coordinate, error) {
	key := storeKey(c)
	if eff, ok := r.effectiveMemo[key]; ok {
		return eff, nil, nil
	}
	eff, needs, err := r.computeEffective(c, map[coord.ModuleKey]bool{})
	if err == nil && len(needs) == 0 {
		r.effectiveMemo[key] = eff
	}
	return eff, needs, err
}

func (r *Resolution) computeEffective(c coord.Coordinate, importing map[coord.ModuleKey]bool) (*descriptor.Project, []coord.Coordinate, error) {
	raw, ok := r.store[storeKey(c)]
	if !ok {
		return nil, []coord.Coordinate{c}, nil
	}

	merged, needs, err := r.inheritParents(raw)
	if err != nil || len(needs) > 0 {
		return nil, needs, err
	}

	merged = r.activateProfiles(merged)

	merged, err = descriptor.Substitute(merged, r.props)
	if err != nil {
		return nil, nil, err
	}

	return r.spliceImports(merged, importing)
}

// inheritParents folds the parent chain into the project, child first.
func (r *Resolution) inheritParents(raw *descriptor.Project) (*descriptor.Project, []coord.Coordinate, error) {
	merged := raw
	cur := raw
	visited := map[coord.ModuleKey]bool{raw.Coordinate.Key(): true}

	for depth := 0; cur.Parent != nil; depth++ {
		if depth >= maxParentDepth {
			return nil, nil, errors.New(errors.ErrCodeParentCycle,
				"parent chain of %s exceeds depth %d", raw.Coordinate, maxParentDepth)
		}
		parentCoord := *cur.Parent
		if visited[parentCoord.Key()] {
			return nil, nil, errors.New(errors.ErrCodeParentCycle,
				"parent cycle through %s reaching %s", raw.Coordinate, parentCoord)
		}
		parent, ok := r.store[storeKey(parentCoord)]
		if !ok {
			return nil, []coord.Coordinate{parentCoord}, nil
		}
		merged = descriptor.MergeParent(merged, parent)
		visited[parentCoord.Key()] = true
		cur = parent
	}
	return merged, nil, nil
}

// activateProfiles splices every profile whose activation holds, in
// declaration order.
func (r *Resolution) activateProfiles(p *descriptor.Project) *descriptor.Project {
	if len(p.Profiles) == 0 {
		return p
	}

	// Activation sees the descriptor's own properties overlaid with the
	// externally supplied ones.
	props := make(map[string]string, len(p.Properties)+len(r.props))
	for k, v := range p.Properties {
		props[k] = v
	}
	for k, v := range r.props {
		props[k] = v
	}

	out := p
	for _, prof := range p.Profiles {
		if prof.Activation.Matches(props, r.osInfo, fileExists) {
			out = descriptor.MergeProfile(out, prof)
		}
	}
	return out
}

// spliceImports replaces scope=import entries of the dependency
// management section with the imported descriptor's own management
// entries. The imported artifact itself never becomes a dependency.
func (r *Resolution) spliceImports(p *descriptor.Project, importing map[coord.ModuleKey]bool) (*descriptor.Project, []coord.Coordinate, error) {
	hasImport := false
	for _, d := range p.DependencyManagement {
		if d.Scope == descriptor.ScopeImport {
			hasImport = true
			break
		}
	}
	if !hasImport {
		return p, nil, nil
	}

	if importing[p.Coordinate.Key()] {
		return nil, nil, errors.New(errors.ErrCodeParentCycle,
			"import cycle through %s", p.Coordinate)
	}
	importing[p.Coordinate.Key()] = true
	defer delete(importing, p.Coordinate.Key())

	var (
		out   []descriptor.Dependency
		needs []coord.Coordinate
	)
	for _, d := range p.DependencyManagement {
		if d.Scope != descriptor.ScopeImport {
			out = append(out, d)
			continue
		}
		bom, bomNeeds, err := r.computeEffective(d.Coordinate, importing)
		if err != nil {
			return nil, nil, err
		}
		if len(bomNeeds) > 0 {
			needs = append(needs, bomNeeds...)
			continue
		}
		out = append(out, bom.DependencyManagement...)
	}
	if len(needs) > 0 {
		return nil, needs, nil
	}

	clone := p.Clone()
	clone.DependencyManagement = out
	return clone, nil, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
