package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/ride-dispatch/internal/auth"
	"github.com/example/ride-dispatch/internal/config"
	"github.com/example/ride-dispatch/internal/core"
	"github.com/example/ride-dispatch/internal/session"
)

// Server exposes the dispatch core over HTTP and WebSocket.
type Server struct {
	cfg      config.ServerConfig
	logger   *slog.Logger
	core     *core.Service
	hub      *session.Hub
	verifier *auth.Verifier // nil disables token auth (local runs)
	mux      *mux.Router
}

func NewServer(cfg config.ServerConfig, logger *slog.Logger, svc *core.Service, hub *session.Hub, verifier *auth.Verifier) *Server {
	s := &Server{
		cfg:      cfg,
		logger:   logger,
		core:     svc,
		hub:      hub,
		verifier: verifier,
		mux:      mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/v1/rides/request", s.handleRideRequest).Methods("POST")
	s.mux.HandleFunc("/internal/driver/locations", s.handleDriverLocation).Methods("POST")
	s.mux.HandleFunc("/ws/driver", s.handleDriverWS).Methods("GET")
	s.mux.HandleFunc("/ws/passenger", s.handlePassengerWS).Methods("GET")
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }
