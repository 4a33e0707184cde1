package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MikeSquared-Agency/opsdesk/internal/auth"
	"github.com/MikeSquared-Agency/opsdesk/internal/chat"
)

// Deps are the collaborators behind the HTTP surface. A nil Directory leaves
// the dashboard routes unmounted; a nil Auth leaves /api open.
type Deps struct {
	Sessions  *chat.Registry
	Directory Directory
	Auth      auth.Verifier
	Metrics   http.Handler
	Logger    *slog.Logger
	// MaxUploadBytes bounds how much of an uploaded file is read.
	MaxUploadBytes int64
}

type Server struct {
	router *chi.Mux
	port   int
	deps   Deps
	logger *slog.Logger
	http   *http.Server
}

func NewServer(port int, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = chat.DefaultMaxFileBytes
	}

	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		port:   port,
		deps:   deps,
		logger: deps.Logger,
	}

	router.Get("/health", s.health)
	if deps.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	router.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(deps.Auth, deps.Logger))
		if deps.Sessions != nil {
			r.Route("/chat/sessions", s.chatRoutes)
		}
		if deps.Directory != nil {
			s.directoryRoutes(r)
		}
	})

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("API server starting", "addr", addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok"}
	if s.deps.Sessions != nil {
		body["chat_sessions"] = s.deps.Sessions.Len()
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
