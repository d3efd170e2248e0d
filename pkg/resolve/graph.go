package resolve

import (
	"github.com/scala-steward/coursier/pkg/coord"
	"github.com/scala-steward/coursier/pkg/descriptor"
)

// Edge is one inbound dependency edge of a resolved node.
type Edge struct {
	// From is the requesting module; the zero key marks a root request.
	From coord.ModuleKey
	// Scope is the effective scope the edge carries.
	Scope descriptor.Scope
	// Exclusions is the exclusion context active along the edge's path.
	Exclusions []descriptor.Exclusion
}

// Node is one module in the resolved graph: the surviving version of its
// module key plus everything that requested it.
type Node struct {
	Key     coord.Coordinate // concrete version, classifier/type of the first claim
	Version string
	Scope   descriptor.Scope
	// Depth is the shortest path length from a root (roots have 0,
	// their direct dependencies 1).
	Depth int
	// Path is the lexicographically smallest requesting path, used as
	// the deterministic tie-break; elements are module-key strings.
	Path  []string
	Edges []Edge

	// Descriptor is the effective descriptor of the chosen version,
	// nil when the fetch failed.
	Descriptor *descriptor.Project
}

// Graph is the frozen outcome of a resolution.
type Graph struct {
	nodes map[coord.ModuleKey]*Node
	order []coord.ModuleKey
}

// Node returns the surviving node for a module key.
func (g *Graph) Node(key coord.ModuleKey) (*Node, bool) {
	n, ok := g.nodes[key]
	return n, ok
}

// Len returns the number of surviving nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Walk visits every node in topological output order: roots first, then
// breadth-first with ties broken by requesting path. This is the
// classpath order.
func (g *Graph) Walk(fn func(*Node)) {
	for _, key := range g.order {
		fn(g.nodes[key])
	}
}

// Nodes returns all nodes in output order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.order))
	g.Walk(func(n *Node) { out = append(out, n) })
	return out
}

// Conflict records one version disagreement observed during
// reconciliation.
type Conflict struct {
	Key      coord.ModuleKey
	Chosen   string
	Rejected []string
}

// Report summarizes a resolution for callers that render it.
type Report struct {
	Conflicts []Conflict
	// Errors maps a requested coordinate to its fetch or parse failure.
	// Resolution continues past per-coordinate failures as long as the
	// rest of the graph can close.
	Errors map[string]error
}
