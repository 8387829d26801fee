// Package bootstrap assembles the service from configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/brightly-app/brightly/backend/internal/config"
	"github.com/brightly-app/brightly/backend/internal/events"
	"github.com/brightly-app/brightly/backend/internal/handler"
	"github.com/brightly-app/brightly/backend/internal/logger"
	"github.com/brightly-app/brightly/backend/internal/model/tab"
	"github.com/brightly-app/brightly/backend/internal/service/ai"
	"github.com/brightly-app/brightly/backend/internal/service/session"
	"github.com/brightly-app/brightly/backend/internal/store"
	"github.com/brightly-app/brightly/backend/internal/store/cache"
	"github.com/brightly-app/brightly/backend/internal/store/memory"
	"github.com/brightly-app/brightly/backend/internal/store/postgres"
	redisstore "github.com/brightly-app/brightly/backend/internal/store/redis"
	"github.com/brightly-app/brightly/backend/internal/store/sqlite"
)

const module = "bootstrap"

// App holds the long-lived components of a running server.
type App struct {
	Backend  store.Backend
	Tabs     tab.Store
	Events   *events.Bus
	Sessions *session.Manager
	Handler  http.Handler

	log logger.Logger
}

// New builds every component named by cfg. The returned App must be closed.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*App, error) {
	backend, err := OpenBackend(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	log.Info(module, "store backend ready", map[string]interface{}{"backend": backend.Name})

	bus := events.NewBus(nil)
	if err := events.StartAuditor(ctx, bus, log); err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("failed to start event auditor: %w", err)
	}

	tabs := tab.NewMemoryStore(tab.Seed())
	manager := session.NewManager(session.Dependencies{
		Transcripts:       backend.Transcripts,
		Memories:          backend.Memories,
		Profiles:          cache.NewProfileCache(backend.Profiles, cfg.Store.ProfileCacheTTL),
		Tabs:              tabs,
		Generator:         NewGenerator(ctx, cfg.AI, log),
		Events:            bus,
		Logger:            log,
		HistoryLimit:      cfg.Session.HistoryLimit,
		GenerationTimeout: cfg.AI.Timeout,
	})

	router := handler.NewRouter(handler.Options{
		Tabs:           tabs,
		Sessions:       manager,
		Logger:         log,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		JWTSecret:      cfg.Server.JWTSecret,
	})

	return &App{
		Backend:  backend,
		Tabs:     tabs,
		Events:   bus,
		Sessions: manager,
		Handler:  router,
		log:      log,
	}, nil
}

// Close releases the event bus and the store backend.
func (a *App) Close() error {
	return errors.Join(a.Events.Close(), a.Backend.Close())
}

// OpenBackend connects the configured store backend.
func OpenBackend(ctx context.Context, cfg config.StoreConfig) (store.Backend, error) {
	switch cfg.Backend {
	case config.BackendMemory, "":
		return memory.NewBackend(), nil
	case config.BackendSQLite:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return store.Backend{}, err
		}
		return db.Backend(), nil
	case config.BackendPostgres:
		db, err := postgres.Open(cfg.DSN)
		if err != nil {
			return store.Backend{}, err
		}
		return postgres.NewBackend(db), nil
	case config.BackendRedis:
		rdb, err := redisstore.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return store.Backend{}, err
		}
		return redisstore.NewBackend(rdb), nil
	default:
		return store.Backend{}, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// NewGenerator picks the generation model. Without credentials, or when the
// model cannot be built, every send fails as a generation error while the
// rest of the service keeps working.
func NewGenerator(ctx context.Context, cfg config.AIConfig, log logger.Logger) session.Generator {
	if !cfg.Enabled() {
		log.Warn(module, "no generation model configured, sends will fail", map[string]interface{}{"provider": cfg.Provider})
		return ai.Unconfigured{}
	}

	if cfg.Provider == config.ProviderOpenAI {
		log.Info(module, "using OpenAI-compatible model", map[string]interface{}{"model": cfg.OpenAI.Model, "base_url": cfg.OpenAI.BaseURL})
		return ai.NewOpenAIGenerator(cfg.OpenAI)
	}

	svc, err := ai.NewService(ctx, cfg, log)
	if err != nil {
		log.Error(module, "failed to initialize Ark model", map[string]interface{}{"error": err.Error()})
		return ai.Unconfigured{}
	}
	log.Info(module, "using Ark model", map[string]interface{}{"model": cfg.Model, "streaming": svc.StreamingEnabled()})
	return svc
}
