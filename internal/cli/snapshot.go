package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/dirindex/internal/workspace"
)

var snapshotQuiet bool

// snapshotCmd represents the snapshot command
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Build the index once and print a summary",
	Args:  cobra.NoArgs,
	RunE:  runSnapshot,
}

func init() {
	snapshotCmd.Flags().BoolVarP(&snapshotQuiet, "quiet", "q", false, "no progress output")
	rootCmd.AddCommand(snapshotCmd)
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	progress := newScanProgress(os.Stderr, snapshotQuiet)
	start := time.Now()

	ws, err := openWorkspace(cmd.Context(), workspace.WithProgress(progress.OnDirs))
	progress.Finish()
	if err != nil {
		return err
	}

	snap := ws.Index().Snapshot()
	table := snap.Table()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Workspace:   %s\n", ws.Root())
	fmt.Fprintf(out, "Snapshot:    %s (generation %d, revision %d)\n", snap.ID(), snap.Generation(), snap.Revision())
	fmt.Fprintf(out, "Modules:     %d\n", len(snap.Modules()))
	fmt.Fprintf(out, "Roots:       %d traversal roots, %d content roots\n", len(table.TraversalRoots()), len(table.ContentRoots()))
	fmt.Fprintf(out, "Directories: %d\n", snap.Len())
	fmt.Fprintf(out, "Took:        %s\n", time.Since(start).Round(time.Millisecond))

	for _, a := range table.Anomalies() {
		fmt.Fprintf(out, "Conflict:    %s claimed by %v, owner %s\n", a.Path, a.Modules, a.Winner)
	}
	return nil
}
