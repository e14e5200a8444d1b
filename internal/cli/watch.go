package cli

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/dirindex/internal/config"
	"github.com/mvp-joe/dirindex/internal/daemon"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the index current and log every published snapshot",
	Long: `Watch the workspace for directory changes and git checkouts, rebuilding
the index after each burst of changes. SIGHUP reloads .dirindex/workspace.yml.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ws, err := openWorkspace(ctx)
	if err != nil {
		return err
	}
	if !ws.Config().Watch.Enabled {
		return fmt.Errorf("watching is disabled in the workspace configuration")
	}

	singleton := daemon.ForWorkspace("watch", ws.Root(), config.DirName)
	if err := singleton.Acquire(); err != nil {
		return err
	}
	defer singleton.Release()

	generations, cancel := ws.Publisher().Subscribe()
	defer cancel()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case gen := <-generations:
				snap := ws.Index().Snapshot()
				log.Printf("Published generation %d (%s, %d directories)", gen, snap.ID(), snap.Len())
			case <-hup:
				log.Printf("Reloading workspace configuration...")
				if err := ws.Reload(ctx); err != nil {
					log.Printf("Error: reload failed: %v", err)
				}
			}
		}
	}()

	log.Printf("Watching %s (generation %d)", ws.Root(), ws.Index().Generation())
	if err := ws.Start(ctx); err != nil {
		return err
	}
	log.Printf("Stopped")
	return nil
}
