package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var walkFilesOnly bool

// walkCmd represents the walk command
var walkCmd = &cobra.Command{
	Use:   "walk [dir]",
	Short: "List project content, skipping excluded and ignored locations",
	Long: `Without an argument every content root is walked once, nested roots
included. With a directory only that subtree is walked.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWalk,
}

func init() {
	walkCmd.Flags().BoolVar(&walkFilesOnly, "files", false, "only print files")
	rootCmd.AddCommand(walkCmd)
}

func runWalk(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	visit := func(path string, isDir bool) bool {
		if walkFilesOnly && isDir {
			return true
		}
		if isDir {
			fmt.Fprintf(out, "%s%c\n", path, filepath.Separator)
		} else {
			fmt.Fprintln(out, path)
		}
		return true
	}

	if len(args) == 0 {
		return ws.Index().IterateContent(cmd.Context(), visit)
	}
	dir, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	return ws.Index().IterateContentUnder(cmd.Context(), dir, visit)
}
