package mcp

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
)

// Server exposes the index to MCP clients over stdio.
type Server struct {
	querier Querier
	mcp     *server.MCPServer
}

// NewServer creates a server with every dirindex tool registered.
func NewServer(querier Querier, version string) *Server {
	mcpServer := server.NewMCPServer(
		"dirindex",
		version,
		server.WithToolCapabilities(true),
	)

	AddClassifyTool(mcpServer, querier)
	AddAffectedTool(mcpServer, querier)
	AddModulesTool(mcpServer, querier)
	AddContentTool(mcpServer, querier)

	return &Server{
		querier: querier,
		mcp:     mcpServer,
	}
}

// MCP returns the underlying MCP server.
func (s *Server) MCP() *server.MCPServer { return s.mcp }

// Serve starts the MCP server on stdio and blocks until shutdown.
func (s *Server) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting MCP server on stdio (generation %d)...", s.querier.Generation())
		if err := server.ServeStdio(s.mcp); err != nil {
			errCh <- fmt.Errorf("MCP server error: %w", err)
		}
	}()

	select {
	case <-sigCh:
		log.Printf("Received shutdown signal, stopping gracefully...")
		return nil
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
