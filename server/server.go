// Package server exposes the hub over HTTP: the client socket, the
// internal ingest endpoint and the read API used to fill reconnect gaps.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"restaurant-hub/auth"
	"restaurant-hub/observability"
	"restaurant-hub/runtime"
	"restaurant-hub/services"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Config struct {
	AllowedOrigins []string
	SendBufferSize int
	MaxBodyBytes   int64
}

// API groups the services behind the request/response endpoints.
type API struct {
	Ingest        services.IIngestService
	Chat          services.IChatService
	Orders        services.IOrderService
	Reservations  services.IReservationService
	Notifications services.INotificationService
}

type Server struct {
	log        *slog.Logger
	config     Config
	registry   *runtime.Registry
	router     *runtime.Router
	handler    *services.CommandHandler
	api        API
	identities auth.IdentityResolver
	verifier   *auth.ServiceTokenVerifier
	monitor    *observability.Monitor
	upgrader   websocket.Upgrader
	startedAt  time.Time
}

func NewServer(log *slog.Logger,
	config Config,
	registry *runtime.Registry,
	router *runtime.Router,
	handler *services.CommandHandler,
	api API,
	identities auth.IdentityResolver,
	verifier *auth.ServiceTokenVerifier,
	monitor *observability.Monitor) *Server {
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = 64 * 1024
	}
	return &Server{
		log:        log,
		config:     config,
		registry:   registry,
		router:     router,
		handler:    handler,
		api:        api,
		identities: identities,
		verifier:   verifier,
		monitor:    monitor,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(config.AllowedOrigins),
		},
		startedAt: time.Now().UTC(),
	}
}

// Routes builds the HTTP router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	// Metrics first to capture every request
	r.Use(measure)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins(s.config.AllowedOrigins),
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", auth.ServiceTokenHeader},
		MaxAge:         300,
	}))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", s.health)
	r.Get("/stats", s.stats)
	r.Get("/ws", s.socket)

	r.With(chimw.RequestSize(s.config.MaxBodyBytes)).Post("/internal/events", s.ingest)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authenticate)
		r.Get("/orders/{id}", s.getOrder)
		r.Get("/reservations/{id}", s.getReservation)
		r.Get("/chat/sessions/{id}/messages", s.getChatMessages)
		r.Get("/notifications", s.listNotifications)
	})

	return r
}

func originChecker(allowed []string) func(r *http.Request) bool {
	origins := corsOrigins(allowed)
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range origins {
			if o == "*" || o == origin {
				return true
			}
		}
		return false
	}
}

func corsOrigins(allowed []string) []string {
	if len(allowed) == 0 {
		return []string{"*"}
	}
	return allowed
}
