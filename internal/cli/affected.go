package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/dirindex/internal/git"
	"github.com/mvp-joe/dirindex/internal/roots"
)

var (
	affectedDependents bool
	affectedChanged    bool
	affectedBase       string
)

// affectedCmd represents the affected command
var affectedCmd = &cobra.Command{
	Use:   "affected [module]",
	Short: "List modules affected by a change to a module",
	Long: `Print the module, then everything it depends on transitively. With
--dependents, modules depending on it follow.

With --changed the modules owning files changed in git (against --base,
HEAD by default) are used instead of a module argument.

Example:
  dirindex affected core --dependents
  dirindex affected --changed --base origin/main --dependents`,
	Args: func(cmd *cobra.Command, args []string) error {
		if affectedChanged {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: runAffected,
}

func init() {
	affectedCmd.Flags().BoolVar(&affectedDependents, "dependents", false, "include modules that depend on the module")
	affectedCmd.Flags().BoolVar(&affectedChanged, "changed", false, "start from the owners of files changed in git")
	affectedCmd.Flags().StringVar(&affectedBase, "base", "HEAD", "git revision to compare against with --changed")
	rootCmd.AddCommand(affectedCmd)
}

func runAffected(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace(cmd.Context())
	if err != nil {
		return err
	}

	var modules []roots.ModuleID
	if affectedChanged {
		files, err := git.Default().ChangedFiles(cmd.Context(), ws.Root(), affectedBase)
		if err != nil {
			return err
		}
		var owners []roots.ModuleID
		owners, modules, err = ws.Index().AffectedByPaths(files, affectedDependents)
		if err != nil {
			return err
		}
		if verbose {
			fmt.Fprintf(cmd.ErrOrStderr(), "%d changed files in %d modules\n", len(files), len(owners))
		}
	} else {
		modules, err = ws.Index().AffectedModules(roots.ModuleID(args[0]), affectedDependents)
		if err != nil {
			return err
		}
	}

	for _, m := range modules {
		fmt.Fprintln(cmd.OutOrStdout(), m)
	}
	return nil
}
