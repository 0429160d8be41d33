package viewport_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mapscout/internal/domain/view"
	"mapscout/internal/service/viewport"
)

// captureSink records every planned query
type captureSink struct {
	mu      sync.Mutex
	queries []view.BoundsQuery
}

func (s *captureSink) PlanQuery(query view.BoundsQuery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, query)
	return nil
}

func (s *captureSink) planned() []view.BoundsQuery {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]view.BoundsQuery, len(s.queries))
	copy(out, s.queries)
	return out
}

const testQuietPeriod = 25 * time.Millisecond

// settle waits long enough for any pending fire to have happened
func settle() {
	time.Sleep(6 * testQuietPeriod)
}

func newTestPlanner(sink *captureSink) *viewport.Planner {
	return viewport.NewPlanner(sink, viewport.PlannerConfig{
		QuietPeriod: testQuietPeriod,
		PageSize:    50,
	})
}

func region(centerLat, centerLng, delta float64) view.ViewportRegion {
	return view.ViewportRegion{
		CenterLat: centerLat,
		CenterLng: centerLng,
		LatDelta:  delta,
		LngDelta:  delta,
	}
}

func TestPlannerDebouncesBurstsIntoSingleQuery(t *testing.T) {
	sink := &captureSink{}
	p := newTestPlanner(sink)
	defer p.Close()

	// A pan gesture: five viewport changes in quick succession
	for i := 0; i < 5; i++ {
		p.Observe(region(52.0+float64(i)*0.1, 4.9, 0.05), "", nil)
		time.Sleep(testQuietPeriod / 5)
	}
	settle()

	queries := sink.planned()
	require.Len(t, queries, 1, "a burst must collapse into one query")

	// Only the final viewport of the burst survives
	want := viewport.BuildBoundsQuery(region(52.4, 4.9, 0.05).Normalize(), 50, "", nil)
	assert.Equal(t, want, queries[0])
}

func TestPlannerSuppressesEpsilonEqualRegions(t *testing.T) {
	sink := &captureSink{}
	p := newTestPlanner(sink)
	defer p.Close()

	p.Observe(region(52.37, 4.89, 0.05), "", nil)
	settle()

	// Sub-epsilon jitter around the same viewport must not re-query
	p.Observe(region(52.37+1e-7, 4.89-1e-7, 0.05), "", nil)
	settle()

	assert.Len(t, sink.planned(), 1)

	// A real move does
	p.Observe(region(52.50, 4.89, 0.05), "", nil)
	settle()

	assert.Len(t, sink.planned(), 2)
}

func TestPlannerCarriesCityAndCategories(t *testing.T) {
	sink := &captureSink{}
	p := newTestPlanner(sink)
	defer p.Close()

	p.Observe(region(52.37, 4.89, 0.05), "amsterdam", []string{"padel", "bowling"})
	settle()

	queries := sink.planned()
	require.Len(t, queries, 1)
	assert.Equal(t, "amsterdam", queries[0].City)
	assert.Equal(t, []string{"padel", "bowling"}, queries[0].Categories)
	assert.Equal(t, 50, queries[0].Limit)
}

func TestPlannerNormalizesDegenerateRegions(t *testing.T) {
	sink := &captureSink{}
	p := newTestPlanner(sink)
	defer p.Close()

	p.Observe(view.ViewportRegion{CenterLat: 52.37, CenterLng: 4.89}, "", nil)
	settle()

	// Zero deltas normalize up to the minimum span instead of vanishing
	queries := sink.planned()
	require.Len(t, queries, 1)
	assert.Greater(t, queries[0].Bounds.NE.Lat, queries[0].Bounds.SW.Lat)
}

func TestPlannerFlushFiresPendingImmediately(t *testing.T) {
	sink := &captureSink{}
	p := newTestPlanner(sink)
	defer p.Close()

	p.Observe(region(52.37, 4.89, 0.05), "", nil)
	p.Flush()

	assert.Len(t, sink.planned(), 1)
}

func TestPlannerCloseCancelsPending(t *testing.T) {
	sink := &captureSink{}
	p := newTestPlanner(sink)

	p.Observe(region(52.37, 4.89, 0.05), "", nil)
	p.Close()
	settle()

	assert.Empty(t, sink.planned())

	// Observations after close are dropped
	p.Observe(region(53.0, 5.0, 0.05), "", nil)
	settle()
	assert.Empty(t, sink.planned())
}

func TestBuildBoundsQueryCentersTheBox(t *testing.T) {
	r := view.ViewportRegion{CenterLat: 52.0, CenterLng: 4.0, LatDelta: 0.2, LngDelta: 0.4}

	q := viewport.BuildBoundsQuery(r, 25, "", nil)

	assert.InDelta(t, 51.9, q.Bounds.SW.Lat, 1e-9)
	assert.InDelta(t, 3.8, q.Bounds.SW.Lng, 1e-9)
	assert.InDelta(t, 52.1, q.Bounds.NE.Lat, 1e-9)
	assert.InDelta(t, 4.2, q.Bounds.NE.Lng, 1e-9)
	assert.Equal(t, 25, q.Limit)
}
