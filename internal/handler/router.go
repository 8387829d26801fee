package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/brightly-app/brightly/backend/internal/handler/account"
	"github.com/brightly-app/brightly/backend/internal/handler/chat"
	"github.com/brightly-app/brightly/backend/internal/handler/stream"
	tabHandler "github.com/brightly-app/brightly/backend/internal/handler/tab"
	"github.com/brightly-app/brightly/backend/internal/handler/ws"
	"github.com/brightly-app/brightly/backend/internal/logger"
	middlewarePkg "github.com/brightly-app/brightly/backend/internal/middleware"
	"github.com/brightly-app/brightly/backend/internal/model/tab"
	"github.com/brightly-app/brightly/backend/internal/service/session"
	"github.com/brightly-app/brightly/backend/pkg/utils"
)

// Options configures the router.
type Options struct {
	Tabs           tab.Store
	Sessions       *session.Manager
	Logger         logger.Logger
	AllowedOrigins []string
	// JWTSecret enables the owner token check on every per-account route.
	JWTSecret string
}

// NewRouter wires HTTP routes to core services.
func NewRouter(opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(opts.AllowedOrigins))

	tabs := tabHandler.New(opts.Tabs, opts.Sessions)
	accounts := account.New(opts.Sessions)
	chats := chat.New(opts.Sessions)
	streams := stream.New(opts.Sessions, log)
	sockets := ws.New(opts.Sessions, log)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		tabs.RegisterCatalogRoutes(api)

		// Routes below carry {ownerID}; inline group middleware runs after
		// routing so the parameter is available to the token check.
		api.Group(func(owned chi.Router) {
			owned.Use(middlewarePkg.OwnerAuth(opts.JWTSecret))

			tabs.RegisterRoutes(owned)
			accounts.RegisterRoutes(owned)
			chats.RegisterRoutes(owned)
			streams.RegisterRoutes(owned)
			sockets.RegisterRoutes(owned)
		})
	})

	return r
}
