// Guardrailui serves the browser front-end for guardraild.
//
// The UI calls the guardraild HTTP API over the network; the API base URL
// comes from GUARDRAILD_API_URL (default http://localhost:8000).
package main

import (
	"context"
	"errors"
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
	"github.com/fyrsmithlabs/guardraild/internal/logging"
	"github.com/fyrsmithlabs/guardraild/internal/webui"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := run(ctx); err != nil {
		log.Fatalf("guardrailui: %v", err)
	}
}

func run(ctx context.Context) error {
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

	apiURL := os.Getenv("GUARDRAILD_API_URL")
	if apiURL == "" {
		apiURL = fmt.Sprintf("http://localhost:%d", cfg.API.Port)
	}

	srv, err := webui.NewServer(apiURL, cfg.UI.Port, logger)
	if err != nil {
		return fmt.Errorf("failed to create ui server: %w", err)
	}

	if srv.WaitForAPI(ctx, 5*time.Second) {
		logger.Info("guardraild api is reachable", zap.String("api_url", apiURL))
	} else {
		logger.Warn("guardraild api not reachable yet, using fallback model list",
			zap.String("api_url", apiURL))
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ui server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
