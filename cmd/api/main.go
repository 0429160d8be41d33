// cmd/api/main.go

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"mapscout/internal/adapter/provider"
	"mapscout/internal/adapter/storage"
	"mapscout/internal/config"
	domain "mapscout/internal/domain/filter"
	"mapscout/internal/server"
	"mapscout/internal/service/attrs"
	"mapscout/internal/service/cluster"
	"mapscout/internal/service/filter"
	"mapscout/internal/service/hours"
	"mapscout/internal/service/ingest"
	"mapscout/internal/service/viewport"
)

func main() {
	// Load .env if present
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Initialize dependencies
	db, err := initDatabase(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	natsConn, err := initNATS(cfg.NATS)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer natsConn.Close()

	// Initialize storage adapter
	placeStore := storage.NewPlaceStore(db)

	// Initialize engine services
	evaluator := filter.NewEvaluator(hours.NewResolver(), attrs.NewResolver())

	bucketer := cluster.NewBucketer(cluster.Config{
		SpiderfyMaxDelta:   cfg.Cluster.SpiderfyMaxDelta,
		SpiderfyMaxSize:    cfg.Cluster.SpiderfyMaxSize,
		MinSpiderRadiusDeg: cfg.Cluster.MinSpiderRadiusDeg,
		MaxSpiderRadiusDeg: cfg.Cluster.MaxSpiderRadiusDeg,
	})

	// Viewport changes flow through the planner onto the event bus, where
	// the ingestor picks them up and fans out to providers
	sink := ingest.NewPublishSink(natsConn, cfg.Viewport.QueryTopic)
	planner := viewport.NewPlanner(sink, viewport.PlannerConfig{
		QuietPeriod: cfg.Viewport.QuietPeriod,
		PageSize:    cfg.Viewport.PageSize,
	})
	defer planner.Close()

	ingestor := ingest.NewIngestor(placeStore, natsConn, ingest.IngestorConfig{
		QueryTopic:   cfg.Viewport.QueryTopic,
		EventsTopic:  cfg.Ingest.EventsTopic,
		FetchTimeout: cfg.Ingest.FetchTimeout,
	})

	registerSources(ingestor, cfg.Ingest)

	if err := ingestor.Start(ctx); err != nil {
		log.Fatalf("Failed to start ingestor: %v", err)
	}

	// Load category catalog
	catalog := domain.DefaultCatalog
	if cfg.Ingest.CatalogPath != "" {
		catalog, err = domain.LoadCatalog(cfg.Ingest.CatalogPath)
		if err != nil {
			log.Fatalf("Failed to load category catalog: %v", err)
		}
		log.Printf("Loaded %d categories from %s", len(catalog), cfg.Ingest.CatalogPath)
	}

	// Periodically drop cached places past the retention window
	go ingest.RunRetentionSweep(ctx, placeStore, cfg.Ingest.SweepInterval, cfg.Ingest.RetentionDays)

	// Initialize HTTP server
	httpServer := server.NewServer(
		cfg.Server,
		natsConn,
		placeStore,
		evaluator,
		bucketer,
		planner,
		catalog,
		cfg.Ingest.EventsTopic,
		cfg.Viewport.PageSize,
	)

	// Start HTTP server
	go func() {
		log.Printf("Starting HTTP server on %s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-shutdown
	log.Println("Shutdown signal received")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Graceful shutdown
	log.Println("Shutting down services...")

	// Shutdown HTTP server
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	// Flush the last observed viewport, then stop the ingestor
	planner.Flush()

	if err := ingestor.Stop(shutdownCtx); err != nil {
		log.Printf("Ingestor shutdown error: %v", err)
	}

	log.Println("Shutdown complete")
}

// Initialize database connection
func initDatabase(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.MaxLifetime

	db, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	// Test connection
	if err := db.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return db, nil
}

// Initialize NATS connection
func initNATS(cfg config.NATSConfig) (*nats.Conn, error) {
	options := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Printf("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("NATS reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Printf("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to NATS: %w", err)
	}

	return nc, nil
}

// Register place providers
func registerSources(ingestor *ingest.Ingestor, cfg config.IngestConfig) {
	// OpenStreetMap needs no credentials and is always on
	ingestor.AddSource(provider.NewOverpassSource(provider.OverpassConfig{
		URL: cfg.OverpassURL,
	}))

	if cfg.FoursquareAPIKey != "" {
		ingestor.AddSource(provider.NewFoursquareSource(provider.FoursquareConfig{
			APIKey: cfg.FoursquareAPIKey,
		}))
		log.Println("Registered Foursquare place source")
	}
}
