package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/memcontext-mcp/internal/embedder"
	"github.com/dshills/memcontext-mcp/internal/engine"
	"github.com/dshills/memcontext-mcp/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "memcontext-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
	// DefaultDBPath is the default location for the database
	DefaultDBPath = "~/.memcontext"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp     *server.MCPServer
	storage storage.Storage
	engine  *engine.Engine
}

// NewServer creates a new MCP server instance. The embedding provider is
// selected from the environment; with no provider configured the server
// still comes up and serves keyword-only recall.
func NewServer(dbPath string) (*Server, error) {
	// Expand home directory if needed
	if dbPath == "" || dbPath == DefaultDBPath {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".memcontext")
	}

	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dbFile := filepath.Join(dbPath, "memcontext.db")

	store, err := storage.NewSQLiteStorage(dbFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	provider, err := embedder.NewFromEnv()
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	eng, err := engine.New(store, provider, engine.DefaultConfig())
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize engine: %w", err)
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:     mcpServer,
		storage: store,
		engine:  eng,
	}

	if err := s.registerTools(); err != nil {
		_ = eng.Close()
		_ = store.Close()
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// Health returns a point-in-time engine status snapshot
func (s *Server) Health(ctx context.Context) (*engine.Status, error) {
	return s.engine.Status(ctx)
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() {
		_ = s.engine.Close()
		_ = s.storage.Close()
	}()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() error {
	s.mcp.AddTool(memoryStoreTool(), s.handleStore)
	s.mcp.AddTool(memoryRecallTool(), s.handleRecall)
	s.mcp.AddTool(memoryForgetTool(), s.handleForget)
	s.mcp.AddTool(memoryReindexTool(), s.handleReindex)
	s.mcp.AddTool(memoryStatusTool(), s.handleStatus)

	return nil
}
