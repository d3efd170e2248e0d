// Package resolve computes the transitive dependency graph of a set of
// root coordinates.
//
// The resolver is CPU-only and single-goroutine: it never performs I/O.
// Callers drive it through a feed loop — ask [Resolution.Missing] for
// the descriptors it still needs, fetch and parse them, hand them back
// with [Resolution.Provide] (or [Resolution.Fail]), and repeat until
// [Resolution.Done]. Each round re-runs the fixed-point expansion:
// per-module-key version reconciliation, dependency-management and
// forced-version overrides, profile activation, scope filtering, and
// exclusion propagation.
//
// Determinism does not depend on arrival order: expansion processes
// claims in (depth, requesting-path) order and reconciliation is
// commutative under its tie-breaks, so the same inputs always freeze
// into the same graph.
package resolve

import (
	"sort"
	"strings"

	"github.com/scala-steward/coursier/pkg/coord"
	"github.com/scala-steward/coursier/pkg/descriptor"
	"github.com/scala-steward/coursier/pkg/errors"
)

// DefaultMaxIterations guards the fixed-point loop against pathological
// inputs.
const DefaultMaxIterations = 200

// Resolution is an in-progress dependency resolution. Not safe for
// concurrent use; drive it from one goroutine.
type Resolution struct {
	roots         []coord.Coordinate
	strict        bool
	maxIterations int
	rootScopes    map[descriptor.Scope]bool
	props         map[string]string
	osInfo        descriptor.OSInfo
	forced        map[coord.ModuleKey]string

	store         map[string]*descriptor.Project
	effectiveMemo map[string]*descriptor.Project
	concrete      map[string]string
	failed        map[string]error

	// chosen carries the converged choice of the previous pass; each
	// pass rebuilds it from live claims only, so versions claimed along
	// paths that no longer exist do not linger.
	chosen map[coord.ModuleKey]*choice

	iterations int
	fatal      error

	cur   *passState
	dirty bool
}

// choice is the surviving claim for a module key.
type choice struct {
	version string
	root    bool
	depth   int
	path    string
}

// Option configures a Resolution.
type Option func(*Resolution)

// WithStrict makes any version disagreement fatal instead of reconciled.
func WithStrict() Option {
	return func(r *Resolution) { r.strict = true }
}

// WithForcedVersions overrides module versions unconditionally, the way
// a root dependency-management section would.
func WithForcedVersions(forced map[coord.ModuleKey]string) Option {
	return func(r *Resolution) {
		for k, v := range forced {
			r.forced[k] = v
		}
	}
}

// WithRootScopes sets which declared scopes of root dependencies take
// part in resolution. The default is compile, runtime, and provided.
func WithRootScopes(scopes ...descriptor.Scope) Option {
	return func(r *Resolution) {
		r.rootScopes = make(map[descriptor.Scope]bool, len(scopes))
		for _, s := range scopes {
			r.rootScopes[s] = true
		}
	}
}

// WithProperties supplies system properties for substitution and
// profile activation.
func WithProperties(props map[string]string) Option {
	return func(r *Resolution) {
		for k, v := range props {
			r.props[k] = v
		}
	}
}

// WithOS overrides the platform used for profile activation.
func WithOS(info descriptor.OSInfo) Option {
	return func(r *Resolution) { r.osInfo = info }
}

// WithMaxIterations overrides the fixed-point guard.
func WithMaxIterations(n int) Option {
	return func(r *Resolution) { r.maxIterations = n }
}

// New starts a resolution of the given root coordinates.
func New(roots []coord.Coordinate, opts ...Option) *Resolution {
	r := &Resolution{
		roots:         roots,
		maxIterations: DefaultMaxIterations,
		rootScopes:    defaultRootScopes,
		props:         map[string]string{},
		osInfo:        descriptor.CurrentOS(),
		forced:        map[coord.ModuleKey]string{},
		store:         map[string]*descriptor.Project{},
		effectiveMemo: map[string]*descriptor.Project{},
		concrete:      map[string]string{},
		failed:        map[string]error{},
		chosen:        map[coord.ModuleKey]*choice{},
		dirty:         true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Provide hands the resolver a parsed descriptor for a coordinate it
// asked for. concreteVersion is the version the fetch actually resolved
// (identical to the requested version unless the request carried a
// range or symbolic constraint).
func (r *Resolution) Provide(requested coord.Coordinate, concreteVersion string, p *descriptor.Project) {
	r.concrete[requested.String()] = concreteVersion
	r.store[storeKey(requested.WithVersion(concreteVersion))] = p
	r.effectiveMemo = map[string]*descriptor.Project{}
	r.dirty = true
}

// Fail records that a requested coordinate could not be fetched or
// parsed. Resolution continues; the failure shows up in the report and
// the module stays a leaf.
func (r *Resolution) Fail(requested coord.Coordinate, err error) {
	r.failed[requested.String()] = err
	r.dirty = true
}

// Missing returns the coordinates whose descriptors the resolver still
// needs, in deterministic order. An empty result with a nil Err means
// the graph is closed.
func (r *Resolution) Missing() []coord.Coordinate {
	r.expand()
	if r.cur == nil {
		return nil
	}
	var out []coord.Coordinate
	for key, c := range r.cur.missing {
		if _, failed := r.failed[key]; failed {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Done reports whether the resolution reached its fixed point (or died
// on a fatal error, which Err then carries).
func (r *Resolution) Done() bool {
	r.expand()
	return r.fatal != nil || len(r.Missing()) == 0
}

// Err returns the fatal error, if any. Per-coordinate failures are not
// fatal; see Report.
func (r *Resolution) Err() error {
	r.expand()
	return r.fatal
}

// Graph freezes and returns the resolved graph.
func (r *Resolution) Graph() *Graph {
	r.expand()
	if r.cur == nil {
		return &Graph{nodes: map[coord.ModuleKey]*Node{}}
	}
	return &Graph{nodes: r.cur.nodes, order: r.cur.order}
}

// Report summarizes conflicts and per-coordinate failures.
func (r *Resolution) Report() *Report {
	r.expand()
	rep := &Report{Errors: map[string]error{}}
	for k, err := range r.failed {
		rep.Errors[k] = err
	}
	if r.cur == nil {
		return rep
	}
	keys := make([]coord.ModuleKey, 0, len(r.cur.conflicts))
	for k := range r.cur.conflicts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	for _, k := range keys {
		rejected := make([]string, 0, len(r.cur.conflicts[k]))
		for v := range r.cur.conflicts[k] {
			rejected = append(rejected, v)
		}
		sort.Strings(rejected)
		chosen := ""
		if c, ok := r.chosen[k]; ok {
			chosen = c.version
		}
		rep.Conflicts = append(rep.Conflicts, Conflict{Key: k, Chosen: chosen, Rejected: rejected})
	}
	return rep
}

// expand drives passes until the chosen-version map stops moving or a
// fatal error trips.
func (r *Resolution) expand() {
	if !r.dirty || r.fatal != nil {
		return
	}
	r.dirty = false
	for {
		if r.iterations >= r.maxIterations {
			r.fatal = errors.New(errors.ErrCodeMaxIterations,
				"resolution did not settle within %d iterations", r.maxIterations)
			return
		}
		r.iterations++
		st := r.pass()
		if r.fatal != nil {
			return
		}

		// A pass is stable when every node was expanded with the version
		// its live claims finally reconciled to.
		changed := false
		for key, c := range st.chosen {
			if used, ok := st.used[key]; ok && used != c.version {
				changed = true
				break
			}
		}
		r.chosen = st.chosen
		if !changed {
			r.cur = st
			return
		}
	}
}

// passState is the outcome of one breadth-first expansion pass.
type passState struct {
	nodes     map[coord.ModuleKey]*Node
	order     []coord.ModuleKey
	missing   map[string]coord.Coordinate
	chosen    map[coord.ModuleKey]*choice
	used      map[coord.ModuleKey]string
	conflicts map[coord.ModuleKey]map[string]bool
}

func (st *passState) addMissing(coords ...coord.Coordinate) {
	for _, c := range coords {
		st.missing[c.String()] = c
	}
}

// item is one claim traveling through a pass.
type item struct {
	c        coord.Coordinate
	from     coord.ModuleKey
	scope    descriptor.Scope
	depth    int
	pathKeys []string
	path     string
	excl     exclusionSet
}

// pass walks the graph breadth-first from the roots, reconciling claims
// as they appear. Node expansion uses the previous pass's converged
// version when one exists, so successive passes chase the fixed point.
func (r *Resolution) pass() *passState {
	st := &passState{
		nodes:     map[coord.ModuleKey]*Node{},
		missing:   map[string]coord.Coordinate{},
		chosen:    map[coord.ModuleKey]*choice{},
		used:      map[coord.ModuleKey]string{},
		conflicts: map[coord.ModuleKey]map[string]bool{},
	}

	queue := make([]item, 0, len(r.roots))
	for _, root := range r.roots {
		queue = append(queue, item{
			c:     root,
			scope: descriptor.ScopeCompile,
		})
	}

	for len(queue) > 0 {
		batch := queue
		queue = nil
		sort.SliceStable(batch, func(i, j int) bool {
			if batch[i].depth != batch[j].depth {
				return batch[i].depth < batch[j].depth
			}
			if batch[i].path != batch[j].path {
				return batch[i].path < batch[j].path
			}
			return batch[i].c.String() < batch[j].c.String()
		})
		for _, it := range batch {
			if r.fatal != nil {
				return st
			}
			queue = r.visit(st, it, queue)
		}
	}
	return st
}

func (r *Resolution) visit(st *passState, it item, queue []item) []item {
	version, ok := r.concreteOf(it.c)
	if !ok {
		if _, failed := r.failed[it.c.String()]; !failed {
			st.addMissing(it.c)
		}
		return queue
	}

	key := it.c.Key()
	r.reconcile(st, key, version, it.depth == 0, it.depth, it.path)
	if r.fatal != nil {
		return queue
	}

	node, seen := st.nodes[key]
	if !seen {
		used := r.expansionVersion(st, key, version)
		st.used[key] = used
		node = &Node{
			Key:     it.c.WithVersion(used),
			Version: used,
			Scope:   it.scope,
			Depth:   it.depth,
			Path:    it.pathKeys,
		}
		st.nodes[key] = node
		st.order = append(st.order, key)
	}
	node.Edges = append(node.Edges, Edge{
		From:       it.from,
		Scope:      it.scope,
		Exclusions: it.excl.sorted(),
	})
	if !seen {
		queue = r.expandNode(st, node, it, node.Version, queue)
	}
	return queue
}

// expansionVersion picks the version a node is expanded with this pass:
// the forced version, the previous pass's converged choice, or the
// first live claim, in that order.
func (r *Resolution) expansionVersion(st *passState, key coord.ModuleKey, claimed string) string {
	if fv, ok := r.forced[key]; ok {
		return fv
	}
	if prev, ok := r.chosen[key]; ok {
		return prev.version
	}
	if c, ok := st.chosen[key]; ok {
		return c.version
	}
	return claimed
}

// expandNode loads the node's effective descriptor and enqueues its
// dependency claims.
func (r *Resolution) expandNode(st *passState, node *Node, it item, version string, queue []item) []item {
	conc := it.c.WithVersion(version)
	if _, failed := r.failed[conc.String()]; failed {
		return queue
	}

	eff, needs, err := r.effective(conc)
	if err != nil {
		if errors.Fatal(err) {
			r.fatal = err
		} else {
			r.failed[conc.String()] = err
		}
		return queue
	}
	if len(needs) > 0 {
		for _, n := range needs {
			if _, failed := r.failed[n.String()]; !failed {
				st.addMissing(n)
			}
		}
		return queue
	}
	node.Descriptor = eff

	// Nearest dependency-management entry per key wins: children come
	// before parents and profiles in the merged list.
	dm := map[coord.ModuleKey]descriptor.Dependency{}
	for _, d := range eff.DependencyManagement {
		if _, ok := dm[d.Coordinate.Key()]; !ok {
			dm[d.Coordinate.Key()] = d
		}
	}

	childPathKeys := append(append([]string(nil), it.pathKeys...), node.Key.Key().String())
	childPath := strings.Join(childPathKeys, ">")

	for _, dep := range eff.Dependencies {
		if dep.Optional && it.depth > 0 {
			continue
		}
		depKey := dep.Coordinate.Key()
		if it.excl.excludes(depKey) {
			continue
		}

		depVersion := dep.Coordinate.Version
		declaredScope := dep.EffectiveScope()
		var managedExcl []descriptor.Exclusion
		if o, ok := dm[depKey]; ok {
			if o.Coordinate.Version != "" {
				depVersion = o.Coordinate.Version
			}
			if o.Scope != "" && o.Scope != descriptor.ScopeImport {
				declaredScope = o.Scope
			}
			managedExcl = o.Exclusions
		}

		var (
			effScope descriptor.Scope
			keep     bool
		)
		if it.depth == 0 {
			effScope, keep = declaredScope, r.rootScopes[declaredScope]
		} else {
			effScope, keep = TransitionScope(it.scope, declaredScope)
		}
		if !keep {
			continue
		}

		if depVersion == "" {
			r.failed[dep.Coordinate.String()] = errors.New(errors.ErrCodeNotFound,
				"%s declares %s without a version and no management entry supplies one",
				conc, depKey)
			continue
		}

		queue = append(queue, item{
			c:        dep.Coordinate.WithVersion(depVersion),
			from:     node.Key.Key(),
			scope:    effScope,
			depth:    it.depth + 1,
			pathKeys: childPathKeys,
			path:     childPath,
			excl:     it.excl.union(dep.Exclusions).union(managedExcl),
		})
	}
	return queue
}

// concreteOf resolves a coordinate's version constraint to a concrete
// version when possible without a repository listing.
func (r *Resolution) concreteOf(c coord.Coordinate) (string, bool) {
	if v, ok := r.concrete[c.String()]; ok {
		return v, true
	}
	cons, err := coord.ParseConstraint(c.Version)
	if err != nil {
		// Not constraint syntax; treat the string as a literal version.
		return c.Version, true
	}
	switch cons.Kind {
	case coord.KindSoft:
		return c.Version, true
	case coord.KindExact:
		return cons.Preferred.String(), true
	}
	return "", false
}

// reconcile folds a live claim into the pass's chosen map.
//
// Precedence: forced versions win unconditionally; root claims are
// sticky; among the rest the shortest root distance wins; at equal
// depth the higher version; at equal version the lexicographically
// smallest requesting path. The order is total, so reconciliation is
// commutative and the outcome independent of arrival order.
func (r *Resolution) reconcile(st *passState, key coord.ModuleKey, version string, isRoot bool, depth int, path string) {
	if fv, ok := r.forced[key]; ok {
		st.chosen[key] = &choice{version: fv, root: true, depth: depth, path: path}
		return
	}

	claim := &choice{version: version, root: isRoot, depth: depth, path: path}
	cur, ok := st.chosen[key]
	if !ok {
		st.chosen[key] = claim
		return
	}

	if !coord.ParseVersion(cur.version).Equal(coord.ParseVersion(version)) {
		if r.strict {
			r.fatal = errors.New(errors.ErrCodeVersionConflict,
				"conflicting versions for %s: %s vs %s", key, cur.version, version)
			return
		}
		if betterClaim(claim, cur) {
			st.recordConflict(key, cur.version)
		} else {
			st.recordConflict(key, version)
		}
	}

	if betterClaim(claim, cur) {
		st.chosen[key] = claim
	}
}

// betterClaim reports whether a beats b under the reconciliation order.
func betterClaim(a, b *choice) bool {
	if a.root != b.root {
		return a.root
	}
	if a.depth != b.depth {
		return a.depth < b.depth
	}
	if c := coord.ParseVersion(a.version).Compare(coord.ParseVersion(b.version)); c != 0 {
		return c > 0
	}
	return a.path < b.path
}

func (st *passState) recordConflict(key coord.ModuleKey, rejected string) {
	if st.conflicts[key] == nil {
		st.conflicts[key] = map[string]bool{}
	}
	st.conflicts[key][rejected] = true
}
