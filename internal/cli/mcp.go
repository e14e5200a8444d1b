package cli

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/dirindex/internal/config"
	"github.com/mvp-joe/dirindex/internal/daemon"
	"github.com/mvp-joe/dirindex/internal/mcp"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for path classification",
	Long: `Start the Model Context Protocol (MCP) server so coding assistants can
ask which module owns a path, whether it is test code or excluded, and which
modules a change affects.

The MCP server:
- Builds the index for the workspace
- Keeps it current while watching is enabled
- Communicates via stdio (standard MCP transport)

Example:
  dirindex mcp --root ~/code/project`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	ws, err := openWorkspace(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "dirindex MCP Server\n")
	fmt.Fprintf(os.Stderr, "Workspace: %s\n", ws.Root())
	fmt.Fprintf(os.Stderr, "Modules:   %d\n\n", len(ws.Index().Modules()))

	// A second server answers from its initial snapshot.
	singleton := daemon.ForWorkspace("mcp", ws.Root(), config.DirName)
	if err := singleton.Acquire(); err != nil {
		log.Printf("Warning: %v; serving without live updates", err)
	} else {
		defer singleton.Release()
		go func() {
			if err := ws.Start(ctx); err != nil {
				log.Printf("Warning: index updates stopped: %v", err)
			}
		}()
	}

	return mcp.NewServer(ws.Index(), Version).Serve(ctx)
}
