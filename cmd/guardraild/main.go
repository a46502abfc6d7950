// Guardraild stores short textual guardrails in Weaviate and retrieves the
// most relevant ones for a prompt via hybrid search.
//
// By default it serves the HTTP API. With --stdio it serves the MCP tool
// protocol instead, for AI-agent integration.
//
// Usage:
//
//	# Start the HTTP API with defaults
//	guardraild
//
//	# Serve MCP over stdio
//	guardraild --stdio
//
//	# Configure via environment
//	GUARDRAILD_WEAVIATE_HOST=weaviate GUARDRAILD_API_PORT=8080 guardraild
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/guardraild/internal/config"
	"github.com/fyrsmithlabs/guardraild/internal/httpapi"
	"github.com/fyrsmithlabs/guardraild/internal/logging"
	"github.com/fyrsmithlabs/guardraild/internal/mcp"
	"github.com/fyrsmithlabs/guardraild/internal/store"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

const shutdownTimeout = 10 * time.Second

func main() {
	stdio := flag.Bool("stdio", false, "serve the MCP tool protocol over stdio instead of the HTTP API")
	flag.Parse()

	if args := flag.Args(); len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  guardraild           Start the HTTP API daemon\n")
			fmt.Fprintf(os.Stderr, "  guardraild --stdio   Serve MCP tools over stdio\n")
			fmt.Fprintf(os.Stderr, "  guardraild version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := run(ctx, *stdio); err != nil {
		log.Fatalf("guardraild: %v", err)
	}
}

func printVersion() {
	fmt.Printf("guardraild by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run wires configuration, logger and store, then serves until ctx is
// canceled.
func run(ctx context.Context, stdio bool) error {
	// Optional .env for local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	st := store.NewWeaviateStore(cfg.Weaviate, logger)
	defer func() {
		_ = st.Close()
	}()

	// The daemon starts even when Weaviate is down: health reports degraded
	// and the first operation retries the connection.
	if err := st.Connect(ctx); err != nil {
		logger.Warn("could not connect to weaviate at startup", zap.Error(err))
	}

	if stdio {
		return runStdio(ctx, cfg, st, logger)
	}
	return runHTTP(ctx, cfg, st, logger)
}

// runHTTP serves the HTTP API until ctx is canceled, then shuts down
// gracefully.
func runHTTP(ctx context.Context, cfg *config.Config, st store.Store, logger *zap.Logger) error {
	srv, err := httpapi.NewServer(cfg, st, logger)
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	logger.Info("starting guardraild",
		zap.String("version", version),
		zap.String("api_host", cfg.API.Host),
		zap.Int("api_port", cfg.API.Port),
		zap.Strings("models", cfg.Models))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// runStdio serves MCP tools over stdio until ctx is canceled.
func runStdio(ctx context.Context, cfg *config.Config, st store.Store, logger *zap.Logger) error {
	srv, err := mcp.NewServer(cfg, st, logger)
	if err != nil {
		return fmt.Errorf("failed to create mcp server: %w", err)
	}

	// stdout carries the protocol; announce on stderr.
	fmt.Fprintln(os.Stderr, "guardraild mcp server started on stdio")

	return srv.Run(ctx)
}
