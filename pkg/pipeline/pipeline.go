// Package pipeline orchestrates resolution and artifact materialization.
//
// The Runner drives the CPU-only resolver with descriptor bytes fetched
// through the cache: it asks the resolver for the coordinates it still
// needs, fetches each descriptor from the configured repositories in
// priority order on a bounded worker pool, parses it, feeds it back, and
// repeats until the graph closes. Once the graph is frozen it downloads
// the artifact files through the same cache and returns them in the
// resolver's topological order.
//
// A single artifact failure does not abort its parallel siblings; all
// failures are collected and reported together.
package pipeline

import (
	"time"

	"github.com/scala-steward/coursier/pkg/coord"
	"github.com/scala-steward/coursier/pkg/descriptor"
	"github.com/scala-steward/coursier/pkg/resolve"
)

// DefaultWorkers is the worker pool size for descriptor and artifact
// fetches.
const DefaultWorkers = 6

// Options configure one resolution run.
type Options struct {
	// Roots are the initially requested coordinates.
	Roots []coord.Coordinate
	// Strict fails the resolution on any version conflict.
	Strict bool
	// ForcedVersions override module versions unconditionally.
	ForcedVersions map[coord.ModuleKey]string
	// Properties are system properties for substitution and profile
	// activation.
	Properties map[string]string
	// RootScopes overrides which root dependency scopes resolve;
	// empty keeps the resolver default.
	RootScopes []descriptor.Scope
}

// Result is the outcome of a full Execute run.
type Result struct {
	// Graph is the frozen dependency graph.
	Graph *resolve.Graph
	// Report carries chosen versions, conflicts, and per-coordinate
	// resolution failures.
	Report *resolve.Report
	// Files are the materialized artifact paths in classpath order.
	Files []string
	// Errors are artifact download failures; resolution errors live in
	// Report.Errors.
	Errors []error

	Stats Stats
}

// Stats are timing counters for the run.
type Stats struct {
	ResolveTime time.Duration
	FetchTime   time.Duration
	Descriptors int
	Artifacts   int
}
