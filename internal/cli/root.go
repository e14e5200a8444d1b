package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/dirindex/internal/workspace"
)

var (
	rootDir string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dirindex",
	Short: "dirindex - classify workspace paths by module, source root and exclusion",
	Long: `dirindex answers "which module owns this path, is it source or test,
is it excluded?" for a workspace described in .dirindex/workspace.yml.

Without a workspace file the root directory is a single module.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", ".", "workspace root directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// openWorkspace opens the workspace selected by --root.
func openWorkspace(ctx context.Context, opts ...workspace.Option) (*workspace.Workspace, error) {
	opts = append([]workspace.Option{workspace.WithVerbose(verbose)}, opts...)
	ws, err := workspace.Open(ctx, rootDir, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open workspace: %w", err)
	}
	return ws, nil
}
