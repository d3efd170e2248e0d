package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/scala-steward/coursier/pkg/pipeline"
)

// parseTTL accepts Go duration syntax.
func parseTTL(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}

// newFetchCmd creates the "fetch" command: resolve, download every
// artifact, and print the resulting file list in classpath order.
func newFetchCmd() *cobra.Command {
	flags := &commonFlags{}

	cmd := &cobra.Command{
		Use:   "fetch <org:name:version>...",
		Short: "Resolve and download artifacts, printing the file list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			roots, err := parseCoordinates(args)
			if err != nil {
				return err
			}
			logger := loggerFromContext(cmd.Context())
			runner, err := flags.buildRunner(cmd, &logEvents{logger: logger})
			if err != nil {
				return err
			}

			result, err := runner.Execute(cmd.Context(), pipeline.Options{
				Roots:      roots,
				Strict:     flags.strict,
				Properties: flags.properties(),
			})
			if err != nil {
				return err
			}

			for _, file := range result.Files {
				fmt.Fprintln(cmd.OutOrStdout(), file)
			}
			for coordStr, rerr := range result.Report.Errors {
				fmt.Fprintf(cmd.ErrOrStderr(), "error: %s: %v\n", coordStr, rerr)
			}
			for _, ferr := range result.Errors {
				fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", ferr)
			}
			if len(result.Errors) > 0 {
				return fmt.Errorf("%d artifacts failed", len(result.Errors))
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
