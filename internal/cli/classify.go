package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/dirindex/internal/index"
)

var classifyJSON bool

// classifyCmd represents the classify command
var classifyCmd = &cobra.Command{
	Use:   "classify <path>...",
	Short: "Show module, content root and source root of paths",
	Long: `Classify each path against the workspace. Relative paths are taken
from the current directory.

Example:
  dirindex classify src/main/java
  dirindex classify --json /abs/path`,
	Args: cobra.MinimumNArgs(1),
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().BoolVar(&classifyJSON, "json", false, "output JSON")
	rootCmd.AddCommand(classifyCmd)
}

type classifyResult struct {
	Path string              `json:"path"`
	Info index.DirectoryInfo `json:"info"`
}

func runClassify(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace(cmd.Context())
	if err != nil {
		return err
	}

	results := make([]classifyResult, 0, len(args))
	for _, arg := range args {
		p, err := filepath.Abs(arg)
		if err != nil {
			return err
		}
		info, err := ws.Index().Info(p)
		if err != nil {
			return err
		}
		results = append(results, classifyResult{Path: p, Info: info})
	}

	out := cmd.OutOrStdout()
	if classifyJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	for _, r := range results {
		printClassification(out, r.Path, r.Info)
	}
	return nil
}

func printClassification(out io.Writer, path string, info index.DirectoryInfo) {
	fmt.Fprintf(out, "%s\n", path)
	if info.OwningModule != "" {
		fmt.Fprintf(out, "  module:        %s\n", info.OwningModule)
		fmt.Fprintf(out, "  content root:  %s\n", info.ContentRoot)
	}
	if info.SourceRoot != "" {
		fmt.Fprintf(out, "  source root:   %s (%s)\n", info.SourceRoot, info.SourceKind)
	}
	if info.LibraryClassRoot != "" {
		fmt.Fprintf(out, "  library root:  %s\n", info.LibraryClassRoot)
	}
	if info.LibrarySourceRoot != "" {
		fmt.Fprintf(out, "  library src:   %s\n", info.LibrarySourceRoot)
	}

	var flags []string
	if info.InProject {
		flags = append(flags, "in-project")
	}
	if info.IsInContent() {
		flags = append(flags, "content")
	}
	if info.IsInTestSource() {
		flags = append(flags, "test")
	}
	if info.Excluded {
		flags = append(flags, "excluded")
	}
	if info.Ignored {
		flags = append(flags, "ignored")
	}
	if len(flags) == 0 {
		flags = append(flags, "outside workspace")
	}
	fmt.Fprintf(out, "  flags:         %s\n", strings.Join(flags, ", "))
}
