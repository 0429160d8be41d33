// internal/service/ingest/ingestor.go

package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"mapscout/internal/domain/place"
	"mapscout/internal/domain/view"
)

// Source defines an interface for place data providers
type Source interface {
	// Name returns the provider name
	Name() string

	// FetchPlaces returns places within the query bounds
	FetchPlaces(ctx context.Context, query view.BoundsQuery) ([]place.Place, error)
}

// PlaceStore defines storage for fetched places
type PlaceStore interface {
	SavePlace(ctx context.Context, p place.Place) error
	FindPlacesInBounds(ctx context.Context, bounds view.Bounds, limit int) ([]place.Place, error)
}

// IngestorConfig contains configuration for the place ingestor
type IngestorConfig struct {
	// QueryTopic is the subject carrying planned viewport queries
	QueryTopic string

	// EventsTopic is the subject prefix for ingest events
	EventsTopic string

	// FetchTimeout bounds a single fan-out across all sources
	FetchTimeout time.Duration
}

// DefaultIngestorConfig returns the ingestor defaults
func DefaultIngestorConfig() IngestorConfig {
	return IngestorConfig{
		QueryTopic:   "viewport.query",
		EventsTopic:  "places",
		FetchTimeout: 10 * time.Second,
	}
}

// Ingestor fetches places from registered providers for each planned
// viewport query, deduplicates the results, and persists them
type Ingestor struct {
	sources     map[string]Source
	store       PlaceStore
	eventBus    *nats.Conn
	config      IngestorConfig
	sub         *nats.Subscription
	sourcesLock sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// NewIngestor creates a new place ingestor
func NewIngestor(store PlaceStore, eventBus *nats.Conn, config IngestorConfig) *Ingestor {
	defaults := DefaultIngestorConfig()
	if config.QueryTopic == "" {
		config.QueryTopic = defaults.QueryTopic
	}
	if config.EventsTopic == "" {
		config.EventsTopic = defaults.EventsTopic
	}
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = defaults.FetchTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Ingestor{
		sources:  make(map[string]Source),
		store:    store,
		eventBus: eventBus,
		config:   config,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// AddSource registers a place provider
func (in *Ingestor) AddSource(source Source) {
	in.sourcesLock.Lock()
	defer in.sourcesLock.Unlock()

	in.sources[source.Name()] = source
}

// RemoveSource unregisters a place provider
func (in *Ingestor) RemoveSource(name string) error {
	in.sourcesLock.Lock()
	defer in.sourcesLock.Unlock()

	if _, exists := in.sources[name]; !exists {
		return fmt.Errorf("source not found: %s", name)
	}

	delete(in.sources, name)
	return nil
}

// Start subscribes to planned viewport queries on the event bus
func (in *Ingestor) Start(ctx context.Context) error {
	if in.eventBus == nil {
		return nil
	}

	sub, err := in.eventBus.Subscribe(in.config.QueryTopic, func(msg *nats.Msg) {
		var query view.BoundsQuery
		if err := json.Unmarshal(msg.Data, &query); err != nil {
			log.Printf("Ignoring malformed viewport query: %v", err)
			return
		}

		in.wg.Add(1)
		go func() {
			defer in.wg.Done()

			fetchCtx, cancel := context.WithTimeout(in.ctx, in.config.FetchTimeout)
			defer cancel()

			if _, err := in.Ingest(fetchCtx, query); err != nil {
				log.Printf("Error ingesting places for query: %v", err)
			}
		}()
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", in.config.QueryTopic, err)
	}

	in.sub = sub
	return nil
}

// Ingest runs one fetch pass for a bounds query: fan out to every source,
// merge and deduplicate, persist, and announce the refresh. Returns the
// number of distinct places stored.
func (in *Ingestor) Ingest(ctx context.Context, query view.BoundsQuery) (int, error) {
	in.sourcesLock.RLock()
	sources := make([]Source, 0, len(in.sources))
	for _, source := range in.sources {
		sources = append(sources, source)
	}
	in.sourcesLock.RUnlock()

	if len(sources) == 0 {
		return 0, nil
	}

	var wg sync.WaitGroup
	placeChan := make(chan []place.Place, len(sources))

	// Query each source concurrently; a failing source is logged and
	// skipped rather than failing the whole pass
	for _, source := range sources {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()

			fetched, err := src.FetchPlaces(ctx, query)
			if err != nil {
				log.Printf("Error fetching places from %s: %v", src.Name(), err)
				return
			}

			placeChan <- fetched
		}(source)
	}

	wg.Wait()
	close(placeChan)

	merged := in.mergePlaces(placeChan)

	stored := 0
	for _, p := range merged {
		if err := in.store.SavePlace(ctx, p); err != nil {
			log.Printf("Error saving place %s: %v", p.ID, err)
			continue
		}
		stored++
	}

	if stored > 0 {
		if err := in.publishRefreshEvent(query, stored); err != nil {
			log.Printf("Error publishing refresh event: %v", err)
		}
	}

	return stored, nil
}

// mergePlaces flattens the per-source batches, drops unusable records, and
// deduplicates on provider plus ID. First fetched record wins.
func (in *Ingestor) mergePlaces(batches <-chan []place.Place) []place.Place {
	now := time.Now()
	seen := make(map[string]bool)
	var merged []place.Place

	for batch := range batches {
		for _, p := range batch {
			if !p.Coordinate().IsFinite() {
				continue
			}

			if p.ID == "" {
				p.ID = uuid.New().String()
			}
			if p.FetchedAt.IsZero() {
				p.FetchedAt = now
			}

			key := string(p.Provider) + "/" + p.ID
			if seen[key] {
				continue
			}
			seen[key] = true

			merged = append(merged, p)
		}
	}

	return merged
}

// RefreshEvent announces that the place cache changed for a bounds window
type RefreshEvent struct {
	Bounds view.Bounds `json:"bounds"`
	Count  int         `json:"count"`
	At     time.Time   `json:"at"`
}

// publishRefreshEvent publishes a places refreshed event
func (in *Ingestor) publishRefreshEvent(query view.BoundsQuery, count int) error {
	if in.eventBus == nil {
		return nil
	}

	data, err := json.Marshal(RefreshEvent{
		Bounds: query.Bounds,
		Count:  count,
		At:     time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to serialize refresh event: %w", err)
	}

	topic := fmt.Sprintf("%s.refreshed", in.config.EventsTopic)
	return in.eventBus.Publish(topic, data)
}

// Stop unsubscribes and waits for in-flight fetches to finish
func (in *Ingestor) Stop(ctx context.Context) error {
	if in.sub != nil {
		if err := in.sub.Unsubscribe(); err != nil {
			log.Printf("Error unsubscribing from %s: %v", in.config.QueryTopic, err)
		}
		in.sub = nil
	}

	in.cancel()

	c := make(chan struct{})
	go func() {
		in.wg.Wait()
		close(c)
	}()

	select {
	case <-c:
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}

// PublishSink is a viewport query sink that forwards planned queries onto
// the event bus, where the ingestor picks them up
type PublishSink struct {
	conn  *nats.Conn
	topic string
}

// NewPublishSink creates a sink publishing to the given subject
func NewPublishSink(conn *nats.Conn, topic string) *PublishSink {
	if topic == "" {
		topic = DefaultIngestorConfig().QueryTopic
	}
	return &PublishSink{conn: conn, topic: topic}
}

// PlanQuery serializes the query and publishes it
func (s *PublishSink) PlanQuery(query view.BoundsQuery) error {
	if s.conn == nil {
		return nil
	}

	data, err := json.Marshal(query)
	if err != nil {
		return fmt.Errorf("failed to serialize bounds query: %w", err)
	}

	return s.conn.Publish(s.topic, data)
}
