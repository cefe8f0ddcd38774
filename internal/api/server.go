package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/campusvox/sibyl/internal/dialogue"
	"github.com/campusvox/sibyl/internal/hermes"
	"github.com/campusvox/sibyl/internal/turntaking"
)

// Deps are the collaborators a live interview needs. Events may be nil;
// sibyl runs without NATS, just with no downstream handoff.
type Deps struct {
	Generator dialogue.Generator
	Synth     turntaking.Synthesizer
	Events    *hermes.Client
	Turns     turntaking.Config
	Logger    *slog.Logger
}

type Server struct {
	router   *chi.Mux
	port     int
	deps     Deps
	sessions *sessionManager
}

func NewServer(port int, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:   router,
		port:     port,
		deps:     deps,
		sessions: newSessionManager(),
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/sibyl/status", s.status)
	router.Post("/api/v1/interviews", s.createInterview)
	router.Get("/api/v1/interviews/{id}/stream", s.streamInterview)

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	slog.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"agent":    "sibyl",
		"status":   "ready",
		"sessions": s.sessions.Count(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
