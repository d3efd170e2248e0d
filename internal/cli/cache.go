package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/scala-steward/coursier/pkg/config"
)

// newCacheCmd creates the cache management command.
func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the artifact cache",
	}

	cmd.AddCommand(newCacheClearCmd())
	cmd.AddCommand(newCachePathCmd())

	return cmd
}

func cacheDir(override string) string {
	if override != "" {
		return override
	}
	if v := os.Getenv(config.EnvCache); v != "" {
		return v
	}
	return config.DefaultCacheRoot()
}

// newCacheClearCmd creates the "cache clear" subcommand.
func newCacheClearCmd() *cobra.Command {
	var root string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached artifacts and sidecars",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := cacheDir(root)

			if _, err := os.Stat(dir); os.IsNotExist(err) {
				fmt.Fprintln(cmd.OutOrStdout(), "cache is empty")
				return nil
			}

			count := 0
			err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
				if err != nil || path == dir {
					return nil // Skip errors, continue walking
				}
				if !info.IsDir() {
					if err := os.Remove(path); err == nil {
						count++
					}
				}
				return nil
			})
			if err != nil {
				return err
			}

			// Clean up empty subdirectories, deepest first.
			var dirs []string
			_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
				if err == nil && path != dir && info.IsDir() {
					dirs = append(dirs, path)
				}
				return nil
			})
			for i := len(dirs) - 1; i >= 0; i-- {
				_ = os.Remove(dirs[i])
			}

			fmt.Fprintf(cmd.OutOrStdout(), "cleared %d cached files\n", count)
			return nil
		},
	}
	cmd.Flags().StringVar(&root, "cache", "", "cache root directory")
	return cmd
}

// newCachePathCmd creates the "cache path" subcommand.
func newCachePathCmd() *cobra.Command {
	var root string

	cmd := &cobra.Command{
		Use:   "path",
		Short: "Print the cache root directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), cacheDir(root))
			return nil
		},
	}
	cmd.Flags().StringVar(&root, "cache", "", "cache root directory")
	return cmd
}
