package api

import (
	"net/http"
	"time"

	"github.com/CILXRY/f-sleepy/internal/auth"
	"github.com/CILXRY/f-sleepy/internal/config"
	"github.com/CILXRY/f-sleepy/internal/control"
	"github.com/CILXRY/f-sleepy/internal/stream"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxReportBytes bounds a device report body.
const maxReportBytes = 64 << 10

// streamWriteTimeout bounds a single event write to a stream client.
const streamWriteTimeout = 10 * time.Second

// Verifier checks a candidate shared secret.
type Verifier interface {
	Verify(candidate string) bool
}

type Server struct {
	cfg      *config.Config
	state    *control.State
	views    *control.Assembler
	hub      *stream.Hub
	secret   Verifier
	tokens   *auth.JWTManager
	upgrader *websocket.Upgrader
	router   *chi.Mux
}

func NewServer(cfg *config.Config, state *control.State, views *control.Assembler, hub *stream.Hub, secret Verifier) *Server {
	s := &Server{
		cfg:      cfg,
		state:    state,
		views:    views,
		hub:      hub,
		secret:   secret,
		tokens:   auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL.Duration),
		upgrader: stream.NewUpgrader(cfg.CORSOrigins),
		router:   chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Use(middleware.RealIP)
	s.router.Use(s.accessLog)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Secret", "Last-Event-ID"},
		MaxAge:         300,
	}))

	s.router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Sleepy status server is running"))
	})
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/none", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/meta", s.handleMeta)
		r.Get("/metrics", s.handleMetrics)
		r.Post("/auth/token", s.handleToken)

		r.Get("/status/query", s.handleQuery)
		r.Get("/status/list", s.handleStatusList)
		r.Get("/status/events", s.handleEvents)
		r.Get("/status/ws", s.handleWebSocket)

		// Report bodies may carry their own secret, so these check
		// authorization after decoding.
		r.Post("/device/report", s.handleReport)
		r.Post("/device/set", s.handleReport)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/status/set", s.handleSetStatus)
			r.Get("/device/set", s.handleDeviceSetQuery)
			r.Get("/device/remove", s.handleDeviceRemove)
			r.Get("/device/clear", s.handleDeviceClear)
			r.Get("/device/private", s.handleDevicePrivate)
		})
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, r.Method+" not allowed on "+r.URL.Path)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
