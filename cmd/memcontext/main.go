package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/memcontext-mcp/internal/mcp"
	"github.com/dshills/memcontext-mcp/internal/storage"
)

var version = "dev"

func main() {
	// stdout carries the MCP protocol; everything human-readable goes to
	// stderr.
	log.SetOutput(os.Stderr)

	if err := run(); err != nil {
		log.Fatalf("memcontext: %v", err)
	}
}

func run() error {
	showVersion := flag.Bool("version", false, "print version information and exit")
	dbPath := flag.String("db", "", "database directory (default $MEMCONTEXT_DB_PATH or ~/.memcontext)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("memcontext %s (sqlite driver %q, %s build)\n", version, storage.DriverName, storage.BuildMode)
		return nil
	}

	path := *dbPath
	if path == "" {
		path = os.Getenv("MEMCONTEXT_DB_PATH")
	}
	if path == "" {
		path = mcp.DefaultDBPath
	}

	server, err := mcp.NewServer(path)
	if err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("memcontext %s serving MCP on stdio (driver=%s mode=%s db=%s)",
		version, storage.DriverName, storage.BuildMode, path)
	if status, err := server.Health(ctx); err == nil {
		log.Printf("store: %d records, %d chunks; provider=%s model=%s degraded=%v",
			status.Records, status.Chunks, status.Provider, status.Model, status.Degraded)
	}

	return server.Serve(ctx)
}
