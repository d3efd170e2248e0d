package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scala-steward/coursier/pkg/cache"
	"github.com/scala-steward/coursier/pkg/coord"
	"github.com/scala-steward/coursier/pkg/httputil"
	"github.com/scala-steward/coursier/pkg/pipeline"
	"github.com/scala-steward/coursier/pkg/resolve"
)

// commonFlags hold the options shared by resolve and fetch.
type commonFlags struct {
	configFile string
	cacheRoot  string
	mode       string
	ttl        string
	repos      []string
	strict     bool
	workers    int
	props      []string
}

func (f *commonFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.configFile, "config", "", "TOML configuration file")
	cmd.Flags().StringVar(&f.cacheRoot, "cache", "", "cache root directory")
	cmd.Flags().StringVar(&f.mode, "mode", "", "cache policies (default, update, update-changing, force, missing, offline)")
	cmd.Flags().StringVar(&f.ttl, "ttl", "", "freshness TTL for changing artifacts (e.g. 24h)")
	cmd.Flags().StringArrayVarP(&f.repos, "repository", "r", nil, "repository URL (repeatable, priority order)")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "fail on version conflicts instead of reconciling")
	cmd.Flags().IntVar(&f.workers, "parallel", pipeline.DefaultWorkers, "concurrent downloads")
	cmd.Flags().StringArrayVarP(&f.props, "property", "D", nil, "system property key=value (repeatable)")
}

func (f *commonFlags) properties() map[string]string {
	props := map[string]string{}
	for _, kv := range f.props {
		k, v, _ := strings.Cut(kv, "=")
		props[k] = v
	}
	return props
}

// buildRunner assembles the cache, transport, and repositories from
// flags, environment, and the optional config file.
func (f *commonFlags) buildRunner(cmd *cobra.Command, events cache.FetchEvents) (*pipeline.Runner, error) {
	cfg, err := loadConfig(f)
	if err != nil {
		return nil, err
	}

	dl := httputil.NewDownloader(
		httputil.WithCredentials(credentialStore(cfg)),
	)
	c := cache.New(cfg.CacheRoot,
		cache.WithTTL(cfg.TTL),
		cache.WithPolicies(cfg.Policies...),
		cache.WithDownloader(dl),
		cache.WithEvents(events),
	)

	runner := pipeline.NewRunner(c, cfg.Repos, loggerFromContext(cmd.Context()))
	runner.Workers = f.workers
	return runner, nil
}

func parseCoordinates(args []string) ([]coord.Coordinate, error) {
	roots := make([]coord.Coordinate, 0, len(args))
	for _, arg := range args {
		c, err := coord.ParseCoordinate(arg)
		if err != nil {
			return nil, err
		}
		roots = append(roots, c)
	}
	return roots, nil
}

// newResolveCmd creates the "resolve" command: compute and print the
// dependency graph without downloading artifacts.
func newResolveCmd() *cobra.Command {
	flags := &commonFlags{}

	cmd := &cobra.Command{
		Use:   "resolve <org:name:version>...",
		Short: "Compute the dependency graph of the given coordinates",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			roots, err := parseCoordinates(args)
			if err != nil {
				return err
			}
			runner, err := flags.buildRunner(cmd, cache.NopEvents{})
			if err != nil {
				return err
			}

			res, err := runner.Resolve(cmd.Context(), pipeline.Options{
				Roots:      roots,
				Strict:     flags.strict,
				Properties: flags.properties(),
			})
			if err != nil {
				return err
			}

			printGraph(cmd, res.Graph(), res.Report())
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func printGraph(cmd *cobra.Command, g *resolve.Graph, rep *resolve.Report) {
	g.Walk(func(n *resolve.Node) {
		indent := strings.Repeat("  ", n.Depth)
		fmt.Fprintf(cmd.OutOrStdout(), "%s%s:%s\n", indent, n.Key.Key(), n.Version)
	})
	for _, c := range rep.Conflicts {
		fmt.Fprintf(cmd.OutOrStdout(), "conflict: %s -> %s (rejected %s)\n",
			c.Key, c.Chosen, strings.Join(c.Rejected, ", "))
	}
	for coordStr, err := range rep.Errors {
		fmt.Fprintf(cmd.ErrOrStderr(), "error: %s: %v\n", coordStr, err)
	}
}
