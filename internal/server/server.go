// internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/markb/tably/internal/auth"
	"github.com/markb/tably/internal/db"
	"github.com/markb/tably/internal/log"
	"github.com/markb/tably/internal/menu"
	"github.com/markb/tably/internal/oauth"
	"github.com/markb/tably/internal/observability"
	"github.com/markb/tably/internal/order"
	"github.com/markb/tably/internal/plan"
	"github.com/markb/tably/internal/realtime"
	"github.com/markb/tably/internal/storage"
	"github.com/markb/tably/internal/storage/backend"
	"github.com/markb/tably/internal/table"
	"golang.org/x/crypto/acme/autocert"
)

// Config holds server configuration.
type Config struct {
	JWTSecret string

	// BaseURL is the public origin embedded in table QR payloads and
	// OAuth callback URLs.
	BaseURL string

	// Storage selects the image backend: "local" (default) or "s3".
	StorageBackend string
	StoragePath    string
	S3             backend.S3Config

	// Google OAuth client for admin sign-in. Left empty, the provider
	// stays unregistered and /auth/v1/authorize rejects it.
	GoogleOAuth oauth.Config

	// Telemetry instruments the router when set. Nil skips the
	// middleware entirely.
	Telemetry *observability.Telemetry
}

// Server wires the stores, handlers and the realtime hub onto one chi
// router.
type Server struct {
	db     *db.DB
	router *chi.Mux
	cfg    Config

	authService *auth.Service
	planService *plan.Service

	oauthRegistry   *oauth.Registry
	oauthStateStore *oauth.StateStore

	storageService *storage.Service

	menuStore  *menu.Store
	tableStore *table.Store
	orderStore *order.Store

	menuHandler  *menu.Handler
	tableHandler *table.Handler
	orderHandler *order.Handler

	realtimeService *realtime.Service

	httpServer   *http.Server
	httpsServer  *http.Server
	httpRedirect *http.Server
	autocertMgr  *autocert.Manager
}

// New builds a fully wired server.
func New(database *db.DB, cfg Config) (*Server, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}

	s := &Server{
		db:              database,
		router:          chi.NewRouter(),
		cfg:             cfg,
		authService:     auth.NewService(database, cfg.JWTSecret),
		planService:     plan.NewService(database),
		oauthRegistry:   oauth.NewRegistry(),
		oauthStateStore: oauth.NewStateStore(database),
		menuStore:       menu.NewStore(database),
		tableStore:      table.NewStore(database),
		orderStore:      order.NewStore(database),
		realtimeService: realtime.NewService(cfg.JWTSecret),
	}

	if cfg.GoogleOAuth.Enabled {
		if cfg.GoogleOAuth.RedirectURL == "" {
			cfg.GoogleOAuth.RedirectURL = cfg.BaseURL + "/auth/v1/callback"
		}
		s.oauthRegistry.Register(oauth.NewGoogleProvider(cfg.GoogleOAuth))
	}

	imageBackend, err := newImageBackend(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	s.storageService = storage.NewService(imageBackend)

	emitter := s.realtimeService.Emitter()
	s.menuHandler = menu.NewHandler(s.menuStore, s.planService, s.storageService, emitter)
	s.tableHandler = table.NewHandler(s.tableStore, s.planService, cfg.BaseURL)
	s.orderHandler = order.NewHandler(s.orderStore, emitter)

	s.setupRoutes()
	return s, nil
}

func newImageBackend(cfg Config) (backend.Backend, error) {
	switch cfg.StorageBackend {
	case "s3":
		return backend.NewS3(context.Background(), cfg.S3)
	default:
		path := cfg.StoragePath
		if path == "" {
			path = "./storage"
		}
		return backend.NewLocal(path)
	}
}

func (s *Server) setupRoutes() {
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if s.cfg.Telemetry != nil {
		s.router.Use(observability.HTTPMiddleware(s.cfg.Telemetry))
	}
	s.router.Use(log.RequestLogger)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", s.handleHealth)

	// Auth: account signup, token issue/refresh, OAuth sign-in.
	s.router.Route("/auth/v1", func(r chi.Router) {
		r.Use(middleware.SetHeader("Content-Type", "application/json"))
		r.Post("/signup", s.handleSignup)
		r.Post("/token", s.handleToken)
		r.Get("/authorize", s.handleAuthorize)
		r.Get("/callback", s.handleCallback)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Post("/logout", s.handleLogout)
			r.Get("/profile", s.handleGetProfile)
			r.Put("/profile", s.handleUpdateProfile)
		})
	})

	// Admin API: everything behind a tenant login.
	s.router.Route("/admin/v1", func(r chi.Router) {
		r.Use(middleware.SetHeader("Content-Type", "application/json"))
		r.Use(s.authMiddleware)
		s.menuHandler.RegisterRoutes(r)
		s.tableHandler.RegisterRoutes(r)
		s.orderHandler.RegisterRoutes(r)
		r.Get("/plans", s.handleListPlans)
		r.Put("/plan", s.handleChangePlan)
	})

	// Public API: what a scanned QR code reaches. No credentials; the
	// table code and order id are the capabilities.
	s.router.Route("/public/v1", func(r chi.Router) {
		r.Use(middleware.SetHeader("Content-Type", "application/json"))
		r.Get("/t/{code}", s.handleScanTable)
		r.Post("/t/{code}/orders", s.handlePlaceOrder)
		r.Get("/orders/{id}", s.handleTrackOrder)
	})

	// Menu images, served straight from the blob backend.
	s.router.Get("/storage/v1/images/*", s.handleGetImage)

	// Websocket endpoint; credentials are checked per join, not at
	// upgrade time.
	s.router.Get("/realtime/v1/ws", s.realtimeService.HandleWebSocket)
}

// Router returns the chi router, mainly for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Realtime returns the realtime service.
func (s *Server) Realtime() *realtime.Service {
	return s.realtimeService
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
}

// ListenAndServe starts the HTTP server on addr.
func (s *Server) ListenAndServe(addr string) error {
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown stops every listener gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	if s.httpsServer != nil {
		if err := s.httpsServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("HTTPS server: %w", err))
		}
	}
	if s.httpRedirect != nil {
		if err := s.httpRedirect.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("HTTP redirect server: %w", err))
		}
	}
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("HTTP server: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}
