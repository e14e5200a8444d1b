package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// modulesCmd represents the modules command
var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "List workspace modules and their roots",
	Args:  cobra.NoArgs,
	RunE:  runModules,
}

func init() {
	rootCmd.AddCommand(modulesCmd)
}

func runModules(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	snap := ws.Index().Snapshot()
	for _, m := range snap.Modules() {
		fmt.Fprintln(out, m)
		if !verbose {
			continue
		}
		for _, d := range snap.Declarations(m) {
			fmt.Fprintf(out, "  %s\n", d)
		}
		for _, dep := range snap.Table().Dependencies(m) {
			fmt.Fprintf(out, "  depends on %s\n", dep)
		}
	}
	return nil
}
