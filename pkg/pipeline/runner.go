package pipeline

import (
	"context"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/scala-steward/coursier/pkg/cache"
	"github.com/scala-steward/coursier/pkg/coord"
	"github.com/scala-steward/coursier/pkg/descriptor"
	"github.com/scala-steward/coursier/pkg/errors"
	"github.com/scala-steward/coursier/pkg/observability"
	"github.com/scala-steward/coursier/pkg/repo"
	"github.com/scala-steward/coursier/pkg/resolve"
)

// Runner drives resolutions against a cache and a prioritized list of
// repositories. Multiple goroutines can share one Runner with different
// options.
type Runner struct {
	Cache        *cache.Cache
	Repositories []repo.Repository
	Logger       *log.Logger
	Workers      int
}

// NewRunner creates a runner. A nil logger falls back to log.Default();
// zero workers falls back to DefaultWorkers.
func NewRunner(c *cache.Cache, repos []repo.Repository, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:        c,
		Repositories: repos,
		Logger:       logger,
		Workers:      DefaultWorkers,
	}
}

func (r *Runner) workers() int {
	if r.Workers > 0 {
		return r.Workers
	}
	return DefaultWorkers
}

// Execute resolves the roots and materializes every artifact.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	result := &Result{}

	observability.Resolution().OnResolveStart(ctx, len(opts.Roots))
	resolveStart := time.Now()
	res, err := r.Resolve(ctx, opts)
	if err != nil {
		observability.Resolution().OnResolveComplete(ctx, 0, 0, time.Since(resolveStart), err)
		return nil, err
	}
	result.Graph = res.Graph()
	result.Report = res.Report()
	result.Stats.ResolveTime = time.Since(resolveStart)
	observability.Resolution().OnResolveComplete(ctx,
		result.Graph.Len(), len(result.Report.Conflicts), result.Stats.ResolveTime, nil)

	r.Logger.Info("resolved dependency graph",
		"nodes", result.Graph.Len(),
		"conflicts", len(result.Report.Conflicts),
		"duration", result.Stats.ResolveTime)

	fetchStart := time.Now()
	result.Files, result.Errors = r.FetchArtifacts(ctx, result.Graph)
	result.Stats.FetchTime = time.Since(fetchStart)
	result.Stats.Artifacts = len(result.Files)
	observability.Resolution().OnArtifactsComplete(ctx,
		len(result.Files), len(result.Errors), result.Stats.FetchTime)

	r.Logger.Info("fetched artifacts",
		"files", len(result.Files),
		"failures", len(result.Errors),
		"duration", result.Stats.FetchTime)

	return result, nil
}

// Resolve runs the descriptor feed loop to its fixed point and returns
// the resolution. The returned error is either the fatal kind
// (MAX_ITERATIONS, PARENT_CYCLE, PROPERTY_CYCLE, strict conflicts) or
// CANCELLED when ctx is done; per-coordinate failures are in the
// resolution's report.
func (r *Runner) Resolve(ctx context.Context, opts Options) (*resolve.Resolution, error) {
	ropts := []resolve.Option{
		resolve.WithProperties(opts.Properties),
		resolve.WithForcedVersions(opts.ForcedVersions),
	}
	if opts.Strict {
		ropts = append(ropts, resolve.WithStrict())
	}
	if len(opts.RootScopes) > 0 {
		ropts = append(ropts, resolve.WithRootScopes(opts.RootScopes...))
	}
	res := resolve.New(opts.Roots, ropts...)

	descriptors := 0
	for !res.Done() {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeCancelled, err, "resolution cancelled")
		}

		batch := res.Missing()
		if len(batch) == 0 {
			break
		}
		r.Logger.Debug("fetching descriptors", "count", len(batch))

		outcomes := make([]descriptorOutcome, len(batch))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.workers())
		for i, req := range batch {
			g.Go(func() error {
				outcomes[i] = r.fetchDescriptor(gctx, req)
				return nil
			})
		}
		_ = g.Wait()

		// The resolver is single-goroutine; apply completions in batch
		// order. Reconciliation is arrival-order independent, so this
		// ordering is a convenience, not a correctness requirement.
		for i, req := range batch {
			out := outcomes[i]
			if out.err != nil {
				r.Logger.Debug("descriptor failed", "coordinate", req.String(), "err", out.err)
				res.Fail(req, out.err)
				continue
			}
			descriptors++
			res.Provide(req, out.concrete, out.project)
		}
	}

	r.Logger.Debug("descriptor feed complete", "descriptors", descriptors)
	if err := res.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

type descriptorOutcome struct {
	concrete string
	project  *descriptor.Project
	err      error
}

// fetchDescriptor tries each repository in priority order: resolve the
// version constraint against the repository's listing when needed, then
// fetch and parse the descriptor. The first repository that yields a
// descriptor wins.
func (r *Runner) fetchDescriptor(ctx context.Context, req coord.Coordinate) descriptorOutcome {
	cons, consErr := coord.ParseConstraint(req.Version)
	needsListing := consErr == nil && (cons.Symbolic() || cons.Kind == coord.KindRange)

	var lastErr error
	for _, rp := range r.Repositories {
		version := req.Version
		if needsListing {
			v, err := r.resolveVersion(ctx, rp, req.Key(), cons)
			if err != nil {
				lastErr = err
				continue
			}
			version = v
		}

		conc := req.WithVersion(version)
		changing := rp.Changing || conc.IsSnapshot()
		local, err := r.Cache.Fetch(ctx, rp.DescriptorURL(conc), cache.FetchOptions{Changing: changing})
		if err != nil {
			lastErr = err
			continue
		}
		data, err := os.ReadFile(local)
		if err != nil {
			lastErr = err
			continue
		}
		project, err := rp.Parse(data)
		if err != nil {
			lastErr = err
			continue
		}
		return descriptorOutcome{concrete: version, project: project}
	}

	if lastErr == nil {
		lastErr = errors.New(errors.ErrCodeNotFound,
			"descriptor for %s absent on all repositories", req)
	}
	return descriptorOutcome{err: lastErr}
}

// resolveVersion picks a concrete version for a range or symbolic
// constraint from the repository's version listing. A missing listing
// fails the lookup: "latest" without a listing is unresolvable.
func (r *Runner) resolveVersion(ctx context.Context, rp repo.Repository, key coord.ModuleKey, cons coord.Constraint) (string, error) {
	local, err := r.Cache.Fetch(ctx, rp.VersionListingURL(key), cache.FetchOptions{
		Changing:  true, // listings change as versions are published
		Checksums: []string{"sha1", ""},
	})
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeNotFound, err,
			"no version listing for %s to resolve %q", key, cons.String())
	}
	data, err := os.ReadFile(local)
	if err != nil {
		return "", err
	}
	listing, err := repo.ParseListing(data)
	if err != nil {
		return "", err
	}
	return listing.Resolve(cons)
}

// FetchArtifacts downloads the artifact file of every resolved node in
// parallel and returns the local paths in the graph's topological
// order. Failures do not abort siblings; they are returned together.
func (r *Runner) FetchArtifacts(ctx context.Context, graph *resolve.Graph) ([]string, []error) {
	nodes := graph.Nodes()

	paths := make([]string, len(nodes))
	errs := make([]error, len(nodes))
	skip := make([]bool, len(nodes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers())

	for i, node := range nodes {
		if node.Descriptor == nil {
			// Resolution already failed this node; reported there.
			skip[i] = true
			continue
		}
		if node.Descriptor.Packaging == "pom" && node.Key.Type == "" {
			// Descriptor-only modules (BOM-style parents) have no file.
			skip[i] = true
			continue
		}
		g.Go(func() error {
			paths[i], errs[i] = r.fetchArtifact(gctx, node)
			return nil
		})
	}
	_ = g.Wait()

	var files []string
	var failures []error
	for i := range nodes {
		if skip[i] {
			continue
		}
		if errs[i] != nil {
			failures = append(failures, errs[i])
			continue
		}
		files = append(files, paths[i])
	}
	return files, failures
}

func (r *Runner) fetchArtifact(ctx context.Context, node *resolve.Node) (string, error) {
	conc := node.Key.WithVersion(node.Version)

	var lastErr error
	for _, rp := range r.Repositories {
		changing := rp.Changing || conc.IsSnapshot()
		local, err := r.Cache.Fetch(ctx, rp.ArtifactURL(conc), cache.FetchOptions{Changing: changing})
		if err == nil {
			r.Logger.Debug("artifact ready", "coordinate", conc.String(), "path", local)
			return local, nil
		}
		lastErr = err
		if errors.Is(err, errors.ErrCodeCancelled) {
			break
		}
	}
	if lastErr == nil {
		lastErr = errors.New(errors.ErrCodeNotFound, "artifact %s absent on all repositories", conc)
	}
	return "", lastErr
}
