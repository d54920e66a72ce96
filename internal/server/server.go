package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/flatcms/accounts/config"
	"github.com/flatcms/accounts/internal/handlers"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	app        *App
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app, err := NewApp(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return NewWithApp(app)
}

// NewWithApp constructs a Server around already wired services.
func NewWithApp(app *App) (*Server, error) {
	if app == nil {
		return nil, errNoApp
	}

	router := NewRouter(app)

	port := app.Config.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		app:        app,
	}, nil
}

// NewRouter registers every route of the accounts service.
func NewRouter(app *App) *chi.Mux {
	authHandler := handlers.NewAuthHandler(app.Auth, app.Reset, app.Bootstrap, app.Codec, app.Log, app.Config.Auth.SecureCookie)
	accountsHandler := handlers.NewAccountsHandler(app.Accounts, app.Log)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/accounts", func(r chi.Router) {
		r.Use(handlers.LoadSession(app.Codec, app.Auth, app.Log))
		handlers.AuthRouter(r, authHandler)
		r.Group(func(r chi.Router) {
			handlers.AccountsRouter(r, accountsHandler)
		})
	})
	return router
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown drains connections and closes the event transport.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if closeErr := s.app.Close(); err == nil {
		err = closeErr
	}
	return err
}
