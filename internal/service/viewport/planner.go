// internal/service/viewport/planner.go

package viewport

import (
	"log"
	"sync"
	"time"

	"github.com/paulmach/orb"

	"mapscout/internal/domain/place"
	"mapscout/internal/domain/view"
)

// QuerySink receives the planned bounds queries. The provider-fetch layer
// sits behind this interface; the planner never talks to providers itself.
type QuerySink interface {
	// PlanQuery hands a debounced bounds query to the fetch layer
	PlanQuery(query view.BoundsQuery) error
}

// PlannerConfig contains configuration for the viewport query planner
type PlannerConfig struct {
	// QuietPeriod is how long the viewport must sit still before a query
	// fires
	QuietPeriod time.Duration

	// PageSize is the fixed limit attached to every planned query
	PageSize int
}

// DefaultPlannerConfig returns the planner defaults
func DefaultPlannerConfig() PlannerConfig {
	return PlannerConfig{
		QuietPeriod: 300 * time.Millisecond,
		PageSize:    100,
	}
}

// Planner debounces rapid viewport changes into stable bounds queries.
// Scheduling is a single-slot pending-task register: each observed change
// replaces and implicitly cancels any pending fire, so at most one fire is
// outstanding and only the most recent viewport wins.
type Planner struct {
	sink   QuerySink
	config PlannerConfig

	mu          sync.Mutex
	timer       *time.Timer
	pending     view.ViewportRegion
	pendingCity string
	pendingCats []string
	lastPlanned *view.ViewportRegion
	closed      bool
}

// NewPlanner creates a new viewport query planner
func NewPlanner(sink QuerySink, config PlannerConfig) *Planner {
	defaults := DefaultPlannerConfig()
	if config.QuietPeriod <= 0 {
		config.QuietPeriod = defaults.QuietPeriod
	}
	if config.PageSize <= 0 {
		config.PageSize = defaults.PageSize
	}

	return &Planner{
		sink:   sink,
		config: config,
	}
}

// Observe registers a viewport change, optionally scoped to a city and
// category set. The planned query fires only after the quiet period passes
// with no further changes.
func (p *Planner) Observe(region view.ViewportRegion, city string, categories []string) {
	if !region.IsFinite() {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	p.pending = region.Normalize()
	p.pendingCity = city
	p.pendingCats = categories

	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(p.config.QuietPeriod, p.fire)
}

// Flush fires any pending query immediately; used on shutdown so the last
// viewport is not lost
func (p *Planner) Flush() {
	p.mu.Lock()
	hasPending := p.timer != nil
	if hasPending {
		p.timer.Stop()
		p.timer = nil
	}
	p.mu.Unlock()

	if hasPending {
		p.fire()
	}
}

// Close cancels any pending fire and rejects further observations
func (p *Planner) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// fire plans the query for the most recently observed viewport, unless it
// is epsilon-equal to the last planned region
func (p *Planner) fire() {
	p.mu.Lock()

	if p.closed {
		p.mu.Unlock()
		return
	}

	region := p.pending
	city := p.pendingCity
	categories := p.pendingCats
	p.timer = nil

	if p.lastPlanned != nil && region.Equal(*p.lastPlanned) {
		p.mu.Unlock()
		return
	}

	planned := region
	p.lastPlanned = &planned
	p.mu.Unlock()

	query := BuildBoundsQuery(region, p.config.PageSize, city, categories)
	if err := p.sink.PlanQuery(query); err != nil {
		log.Printf("Failed to plan viewport query: %v", err)
	}
}

// BuildBoundsQuery converts a normalized viewport region into the bounds
// query shape the provider endpoint expects
func BuildBoundsQuery(region view.ViewportRegion, limit int, city string, categories []string) view.BoundsQuery {
	center := orb.Point{region.CenterLng, region.CenterLat}

	bound := orb.Bound{Min: center, Max: center}
	bound = bound.Extend(orb.Point{
		region.CenterLng - region.LngDelta/2,
		region.CenterLat - region.LatDelta/2,
	})
	bound = bound.Extend(orb.Point{
		region.CenterLng + region.LngDelta/2,
		region.CenterLat + region.LatDelta/2,
	})

	return view.BoundsQuery{
		Bounds: view.Bounds{
			SW: place.Coordinate{Lat: bound.Min.Lat(), Lng: bound.Min.Lon()},
			NE: place.Coordinate{Lat: bound.Max.Lat(), Lng: bound.Max.Lon()},
		},
		Limit:      limit,
		City:       city,
		Categories: categories,
	}
}
