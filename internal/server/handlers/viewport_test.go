package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mapscout/internal/domain/view"
	"mapscout/internal/server/handlers"
	"mapscout/internal/service/viewport"
)

type recordingSink struct {
	mu      sync.Mutex
	queries []view.BoundsQuery
}

func (s *recordingSink) PlanQuery(query view.BoundsQuery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, query)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queries)
}

func TestObserveViewportAcceptsAndPlans(t *testing.T) {
	sink := &recordingSink{}
	planner := viewport.NewPlanner(sink, viewport.PlannerConfig{
		QuietPeriod: 10 * time.Millisecond,
		PageSize:    50,
	})
	defer planner.Close()

	h := handlers.NewViewportHandler(planner)

	body := `{
		"region": {"centerLat": 52.37, "centerLng": 4.89, "latDelta": 0.05, "lngDelta": 0.05},
		"city": "amsterdam",
		"categories": ["padel"]
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/map/viewport", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ObserveViewport(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	// The planned query fires once the viewport settles
	assert.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestObserveViewportRejectsBadBody(t *testing.T) {
	sink := &recordingSink{}
	planner := viewport.NewPlanner(sink, viewport.PlannerConfig{QuietPeriod: 10 * time.Millisecond})
	defer planner.Close()

	h := handlers.NewViewportHandler(planner)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/map/viewport", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.ObserveViewport(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
