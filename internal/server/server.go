// internal/server/server.go

package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/nats-io/nats.go"

	"mapscout/internal/config"
	domain "mapscout/internal/domain/filter"
	"mapscout/internal/server/handlers"
	"mapscout/internal/service/cluster"
	"mapscout/internal/service/filter"
	"mapscout/internal/service/viewport"
)

// Server represents the HTTP server
type Server struct {
	server *http.Server
	router *chi.Mux
}

// NewServer creates a new HTTP server
func NewServer(
	cfg config.ServerConfig,
	natsConn *nats.Conn,
	store handlers.PlaceStore,
	evaluator *filter.Evaluator,
	bucketer *cluster.Bucketer,
	planner *viewport.Planner,
	catalog domain.Catalog,
	eventsTopic string,
	pageSize int,
) *Server {
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Create handler dependencies
	placeHandler := handlers.NewPlaceHandler(store, evaluator, bucketer, catalog, pageSize)
	viewportHandler := handlers.NewViewportHandler(planner)

	// Routes
	router.Route("/api", func(r chi.Router) {
		// Health check
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		// API version
		r.Route("/v1", func(r chi.Router) {
			// Map API
			r.Route("/map", func(r chi.Router) {
				r.Get("/places", placeHandler.GetMapPlaces)
				r.Post("/viewport", viewportHandler.ObserveViewport)
			})

			// Places API
			r.Route("/places", func(r chi.Router) {
				r.Get("/", placeHandler.ListPlaces)
				r.Get("/{id}", placeHandler.GetPlace)
			})

			// Filter vocabulary
			r.Get("/categories", placeHandler.GetFilterOptions)
		})
	})

	// WebSocket endpoint for place refresh notifications
	router.Get("/ws/map", handlers.MapWebSocketHandler(natsConn, eventsTopic))

	// Create HTTP server
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{
		server: httpServer,
		router: router,
	}
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
