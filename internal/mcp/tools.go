package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/dirindex/internal/index"
	"github.com/mvp-joe/dirindex/internal/roots"
)

// Querier is the part of the index the tools read from.
type Querier interface {
	Info(path string) (index.DirectoryInfo, error)
	AffectedModules(module roots.ModuleID, includeDependents bool) ([]roots.ModuleID, error)
	Modules() []roots.ModuleID
	IterateContentUnder(ctx context.Context, dir string, visitor index.ContentVisitor) error
	Generation() uint64
}

const (
	defaultContentLimit = 200
	maxContentLimit     = 5000
	maxClassifyPaths    = 500
)

// ClassifyRequest is the dirindex_classify argument set.
type ClassifyRequest struct {
	Paths []string `json:"paths"`
}

// Classification is the answer for one path.
type Classification struct {
	Path         string               `json:"path"`
	Info         *index.DirectoryInfo `json:"info,omitempty"`
	InContent    bool                 `json:"in_content"`
	InSource     bool                 `json:"in_source"`
	InTestSource bool                 `json:"in_test_source"`
	Error        string               `json:"error,omitempty"`
}

// ClassifyResponse answers dirindex_classify.
type ClassifyResponse struct {
	Generation uint64           `json:"generation"`
	Results    []Classification `json:"results"`
}

// AffectedRequest is the dirindex_affected argument set.
type AffectedRequest struct {
	Module            string `json:"module"`
	IncludeDependents bool   `json:"include_dependents"`
}

// AffectedResponse answers dirindex_affected.
type AffectedResponse struct {
	Generation uint64           `json:"generation"`
	Modules    []roots.ModuleID `json:"modules"`
}

// ModulesResponse answers dirindex_modules.
type ModulesResponse struct {
	Generation uint64           `json:"generation"`
	Modules    []roots.ModuleID `json:"modules"`
}

// ContentRequest is the dirindex_content argument set.
type ContentRequest struct {
	Dir       string `json:"dir"`
	Limit     int    `json:"limit"`
	FilesOnly bool   `json:"files_only"`
}

// ContentEntry is one visited location.
type ContentEntry struct {
	Path  string `json:"path"`
	IsDir bool   `json:"is_dir"`
}

// ContentResponse answers dirindex_content.
type ContentResponse struct {
	Generation uint64         `json:"generation"`
	Entries    []ContentEntry `json:"entries"`
	Truncated  bool           `json:"truncated"`
}

// AddClassifyTool registers dirindex_classify.
func AddClassifyTool(s *server.MCPServer, q Querier) {
	tool := mcp.NewTool(
		"dirindex_classify",
		mcp.WithDescription("Classify absolute paths against the workspace: owning module, content root, source root and kind, library roots, and whether the path is excluded, ignored or part of the project."),
		mcp.WithArray("paths",
			mcp.Required(),
			mcp.Description("Absolute, clean paths to classify (max 500)"),
			mcp.Items(map[string]any{"type": "string"})),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)
	s.AddTool(tool, createClassifyHandler(q))
}

func createClassifyHandler(q Querier) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var req ClassifyRequest
		if err := bindArguments(request, &req); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}
		if len(req.Paths) == 0 {
			return mcp.NewToolResultError("paths parameter is required"), nil
		}
		if len(req.Paths) > maxClassifyPaths {
			return mcp.NewToolResultError(fmt.Sprintf("too many paths: %d (max %d)", len(req.Paths), maxClassifyPaths)), nil
		}

		resp := ClassifyResponse{Generation: q.Generation()}
		for _, p := range req.Paths {
			c := Classification{Path: p}
			info, err := q.Info(p)
			if err != nil {
				c.Error = err.Error()
			} else {
				c.Info = &info
				c.InContent = info.IsInContent()
				c.InSource = info.IsInSource()
				c.InTestSource = info.IsInTestSource()
			}
			resp.Results = append(resp.Results, c)
		}
		return marshalToolResponse(resp)
	}
}

// AddAffectedTool registers dirindex_affected.
func AddAffectedTool(s *server.MCPServer, q Querier) {
	tool := mcp.NewTool(
		"dirindex_affected",
		mcp.WithDescription("List the modules affected by a change to a module: the module itself, everything it depends on transitively and, optionally, everything that depends on it."),
		mcp.WithString("module",
			mcp.Required(),
			mcp.Description("Module name")),
		mcp.WithBoolean("include_dependents",
			mcp.Description("Also include modules depending on this one (default: false)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)
	s.AddTool(tool, createAffectedHandler(q))
}

func createAffectedHandler(q Querier) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var req AffectedRequest
		if err := bindArguments(request, &req); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}
		if req.Module == "" {
			return mcp.NewToolResultError("module parameter is required"), nil
		}

		modules, err := q.AffectedModules(roots.ModuleID(req.Module), req.IncludeDependents)
		if err != nil {
			if errors.Is(err, index.ErrUnknownModule) {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return nil, err
		}
		return marshalToolResponse(AffectedResponse{Generation: q.Generation(), Modules: modules})
	}
}

// AddModulesTool registers dirindex_modules.
func AddModulesTool(s *server.MCPServer, q Querier) {
	tool := mcp.NewTool(
		"dirindex_modules",
		mcp.WithDescription("List the modules of the workspace."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)
	s.AddTool(tool, createModulesHandler(q))
}

func createModulesHandler(q Querier) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return marshalToolResponse(ModulesResponse{Generation: q.Generation(), Modules: q.Modules()})
	}
}

// AddContentTool registers dirindex_content.
func AddContentTool(s *server.MCPServer, q Querier) {
	tool := mcp.NewTool(
		"dirindex_content",
		mcp.WithDescription("List files and directories of the project below a directory, skipping excluded and ignored locations."),
		mcp.WithString("dir",
			mcp.Required(),
			mcp.Description("Absolute directory to list")),
		mcp.WithNumber("limit",
			mcp.Description("Maximum entries to return (1-5000, default: 200)")),
		mcp.WithBoolean("files_only",
			mcp.Description("Only return files (default: false)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)
	s.AddTool(tool, createContentHandler(q))
}

func createContentHandler(q Querier) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var req ContentRequest
		if err := bindArguments(request, &req); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}
		if req.Dir == "" {
			return mcp.NewToolResultError("dir parameter is required"), nil
		}
		limit := req.Limit
		if limit <= 0 {
			limit = defaultContentLimit
		} else if limit > maxContentLimit {
			limit = maxContentLimit
		}

		resp := ContentResponse{Generation: q.Generation(), Entries: []ContentEntry{}}
		err := q.IterateContentUnder(ctx, req.Dir, func(path string, isDir bool) bool {
			if req.FilesOnly && isDir {
				return true
			}
			if len(resp.Entries) == limit {
				resp.Truncated = true
				return false
			}
			resp.Entries = append(resp.Entries, ContentEntry{Path: path, IsDir: isDir})
			return true
		})
		if err != nil {
			if errors.Is(err, index.ErrInvalidPath) {
				return mcp.NewToolResultError(err.Error()), nil
			}
			return nil, err
		}
		return marshalToolResponse(resp)
	}
}
