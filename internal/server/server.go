// Package server wires the application together: storage, collections,
// services and handlers are all constructed here and bound to routes.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ideaflow-app/ideaflow/internal/auth"
	"github.com/ideaflow-app/ideaflow/internal/bank"
	"github.com/ideaflow-app/ideaflow/internal/board"
	"github.com/ideaflow-app/ideaflow/internal/directory"
	"github.com/ideaflow-app/ideaflow/internal/gateway"
	"github.com/ideaflow-app/ideaflow/internal/handler"
	"github.com/ideaflow-app/ideaflow/internal/middleware"
	"github.com/ideaflow-app/ideaflow/internal/service"
	"github.com/ideaflow-app/ideaflow/internal/store"
	"github.com/ideaflow-app/ideaflow/internal/store/sqlite"
)

// Config holds server configuration.
type Config struct {
	Port      int
	DBPath    string
	JWTSecret string
	// GatewayURL is the base URL of the enhancement service. Empty
	// disables enhancement and search; ideas are still captured.
	GatewayURL    string
	GatewayAPIKey string
	// AdminEmails is the allow-list of designated administrators.
	AdminEmails []string
}

// Server owns the router and the database connection; the connection is
// closed during graceful shutdown.
type Server struct {
	router  *chi.Mux
	config  Config
	logger  *slog.Logger
	adapter *sqlite.Adapter
	users   *directory.Directory
}

// New assembles the full dependency chain: the SQLite adapter backs the
// store, the store backs the three collections, and the services and
// handlers sit on top. This is the only place wiring happens.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	adapter, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		adapter: adapter,
	}

	if err := s.setupRoutes(); err != nil {
		adapter.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return err
	}
	passwords := auth.NewPasswordService()

	loadCtx := context.Background()
	st := store.New(s.adapter)
	s.users = directory.Open(loadCtx, st, s.logger)
	announcements := board.Open(loadCtx, st, s.logger)

	// The gateway is optional; without it capture still works, just
	// without enhancement, and search reports a failed result.
	var gw *gateway.Client
	if s.config.GatewayURL != "" {
		gw, err = gateway.New(gateway.Config{
			BaseURL: s.config.GatewayURL,
			APIKey:  s.config.GatewayAPIKey,
		}, s.logger)
		if err != nil {
			return fmt.Errorf("creating gateway client: %w", err)
		}
	} else {
		s.logger.Warn("no gateway configured, enhancement and search are disabled")
	}

	var enhancer bank.Enhancer
	var searcher handler.Searcher
	if gw != nil {
		enhancer = gw
		searcher = gw
	}
	ideas := bank.Open(loadCtx, st, enhancer, s.logger)

	authSvc := service.NewAuthService(s.users, st, passwords, tokens, s.config.AdminEmails, s.logger)

	authHandler := handler.NewAuthHandler(authSvc, s.logger)
	ideaHandler := handler.NewIdeaHandler(ideas, s.logger)
	cmsHandler := handler.NewCMSHandler(announcements, s.logger)
	userHandler := handler.NewUserHandler(s.users, authSvc, s.logger)
	searchHandler := handler.NewSearchHandler(s.users, searcher, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.HandleRegister)
		r.Post("/auth/login", authHandler.HandleLogin)
		r.Post("/auth/recover", authHandler.HandleRecover)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Post("/auth/logout", authHandler.HandleLogout)
			r.Get("/me", authHandler.HandleMe)
			r.Patch("/me", authHandler.HandleUpdateMe)
			r.Post("/billing/plan", authHandler.HandleChangePlan)

			r.Get("/ideas", ideaHandler.HandleList)
			r.Post("/ideas", ideaHandler.HandleCreate)
			r.Get("/ideas/stats", ideaHandler.HandleStats)
			r.Get("/ideas/{id}", ideaHandler.HandleGet)
			r.Patch("/ideas/{id}", ideaHandler.HandleUpdate)
			r.Delete("/ideas/{id}", ideaHandler.HandleDelete)
			r.Post("/ideas/{id}/star", ideaHandler.HandleToggleStar)

			r.Post("/search", searchHandler.HandleSearch)

			r.Get("/announcements", cmsHandler.HandleListActive)
			r.Get("/announcements/featured", cmsHandler.HandleFeatured)

			r.Route("/admin", func(r chi.Router) {
				r.Use(s.adminOnly)

				r.Get("/users", userHandler.HandleList)
				r.Post("/users", userHandler.HandleCreate)
				r.Post("/users/{id}/toggle-admin", userHandler.HandleToggleAdmin)
				r.Delete("/users/{id}", userHandler.HandleDelete)

				r.Get("/announcements", cmsHandler.HandleListAll)
				r.Post("/announcements", cmsHandler.HandleCreate)
				r.Delete("/announcements/{id}", cmsHandler.HandleDelete)
			})
		})
	})

	return nil
}

// adminOnly refuses requests whose authenticated user is not an admin.
// It runs inside RequireAuth, so an identity is always present.
func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := auth.UserIDFromContext(r.Context())

		user, err := s.users.GetByID(userID)
		if err != nil || !user.IsAdmin {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error":"forbidden","message":"administrator access required"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server until SIGINT or SIGTERM, then shuts down
// gracefully and closes the database.
func (s *Server) Start() error {
	defer s.adapter.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		// In-flight requests get 30 seconds to finish.
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
