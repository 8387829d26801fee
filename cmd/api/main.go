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

	"github.com/brightly-app/brightly/backend/internal/bootstrap"
	"github.com/brightly-app/brightly/backend/internal/config"
	"github.com/brightly-app/brightly/backend/internal/logger"
	"github.com/brightly-app/brightly/backend/internal/tracer"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	appLogger := logger.NewZapLogger(cfg.Server.LogFilePath, cfg.Server.IsProduction())
	zap.ReplaceGlobals(appLogger.Zap())

	err = run(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error("main", "server exited with error", map[string]interface{}{"error": err.Error()})
	}
	_ = appLogger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// run returns once the server has stopped and every component it started has
// been closed.
func run(ctx context.Context, cfg *config.Config, appLogger *logger.ZapLogger) error {
	shutdownTracer := tracer.InitTracer(ctx, cfg.Tracing)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			appLogger.Warn("main", "tracer shutdown failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	app, err := bootstrap.New(ctx, cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			appLogger.Warn("main", "shutdown cleanup failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	return startServer(ctx, cfg.Server, app.Handler, appLogger)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, appLogger logger.Logger) error {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	appLogger.Info("main", "Brightly backend listening", map[string]interface{}{"addr": serverCfg.Addr, "env": serverCfg.Env})
	return runServer(ctx, srv)
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
