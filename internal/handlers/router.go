package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"zoneroute/internal/database"
	"zoneroute/internal/middleware"
	"zoneroute/internal/services"
	"zoneroute/internal/websocket"
)

// RouterConfig carries everything the HTTP API depends on
type RouterConfig struct {
	Store          database.Store
	Hub            *websocket.Hub
	Notifier       services.Notifier
	Logger         zerolog.Logger
	AllowedOrigins []string
	MaxPhotoBytes  int64
}

// NewRouter mounts every endpoint
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Notifier == nil {
		cfg.Notifier = services.NoopNotifier{}
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(chimiddleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	store := cfg.Store

	r.Get("/health", Health(store, cfg.Hub))
	r.Get("/ws", websocket.HandleWebSocket(cfg.Hub, store))

	r.Get("/zones", GetZones(store))
	r.Post("/assign", AssignZone(store, cfg.Hub, cfg.Notifier))

	r.Get("/clients", GetClients(store))
	r.Get("/clients/{id}", GetClient(store))
	r.Put("/clients/{id}", UpdateClient(store, cfg.Hub))
	r.Get("/clients/{id}/photos", GetPhotoLogs(store))
	r.Post("/clients/{id}/photos", AppendPhotoLog(store, cfg.Hub, cfg.MaxPhotoBytes))

	r.Get("/routes/{workerId}", GetRoute(store))

	r.Get("/workers", GetWorkers(store))
	r.Post("/workers/{workerId}/device-tokens", RegisterDeviceToken(store))

	r.Post("/logs/diagnostic", ReceiveDiagnosticLog())

	return r
}
