package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mapscout/internal/adapter/storage"
	domain "mapscout/internal/domain/filter"
	"mapscout/internal/domain/place"
	"mapscout/internal/domain/view"
	"mapscout/internal/server/handlers"
	"mapscout/internal/service/attrs"
	"mapscout/internal/service/cluster"
	"mapscout/internal/service/filter"
	"mapscout/internal/service/hours"
)

// stubStore serves a fixed set of places
type stubStore struct {
	places []place.Place
}

func (s *stubStore) GetPlace(ctx context.Context, id string) (*place.Place, error) {
	for i := range s.places {
		if s.places[i].ID == id {
			return &s.places[i], nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *stubStore) FindPlacesInBounds(ctx context.Context, bounds view.Bounds, limit int) ([]place.Place, error) {
	return s.places, nil
}

func (s *stubStore) FindPlaces(ctx context.Context, q storage.PlaceQuery) ([]place.Place, error) {
	return s.places, nil
}

func newTestRouter(store handlers.PlaceStore) *chi.Mux {
	h := handlers.NewPlaceHandler(
		store,
		filter.NewEvaluator(hours.NewResolver(), attrs.NewResolver()),
		cluster.NewBucketer(cluster.DefaultConfig()),
		domain.DefaultCatalog,
		100,
	)

	router := chi.NewRouter()
	router.Get("/api/v1/map/places", h.GetMapPlaces)
	router.Get("/api/v1/places", h.ListPlaces)
	router.Get("/api/v1/places/{id}", h.GetPlace)
	router.Get("/api/v1/categories", h.GetFilterOptions)
	return router
}

func testPlaces() []place.Place {
	return []place.Place{
		{ID: "bowl-1", Name: "Strike", Lat: 52.370, Lng: 4.895, Categories: []string{"bowling_alley"}},
		{ID: "bowl-2", Name: "Kegel", Lat: 52.371, Lng: 4.896, Categories: []string{"bowling"}},
		{ID: "tennis-1", Name: "Courts", Lat: 52.380, Lng: 4.900, Categories: []string{"tennis_court"}},
	}
}

func TestGetMapPlacesClustersTheViewport(t *testing.T) {
	router := newTestRouter(&stubStore{places: testPlaces()})

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/map/places?center_lat=52.37&center_lng=4.89&lat_delta=2&lng_delta=2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var payload view.RenderPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))

	total := len(payload.Singles)
	for _, c := range payload.Clusters {
		total += c.Count
	}
	assert.Equal(t, 3, total)
}

func TestGetMapPlacesAppliesCategoryFilter(t *testing.T) {
	router := newTestRouter(&stubStore{places: testPlaces()})

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/map/places?center_lat=52.37&center_lng=4.89&lat_delta=2&lng_delta=2&categories=bowling", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var payload view.RenderPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))

	total := len(payload.Singles)
	for _, c := range payload.Clusters {
		total += c.Count
	}
	assert.Equal(t, 2, total, "only the bowling places survive the filter")
}

func TestGetMapPlacesRejectsMissingRegion(t *testing.T) {
	router := newTestRouter(&stubStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/map/places?center_lat=52.37", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListPlacesIncludesSummary(t *testing.T) {
	router := newTestRouter(&stubStore{places: testPlaces()})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/places?categories=bowling", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Places  []place.Place `json:"places"`
		Count   int           `json:"count"`
		Summary string        `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, 2, body.Count)
	assert.Len(t, body.Places, 2)
	assert.Equal(t, "Bowling", body.Summary)
}

func TestListPlacesAppliesTimeWindowParam(t *testing.T) {
	places := testPlaces()
	// Closed all evening; the others carry no hours and are never excluded
	places[2].Metadata = map[string]interface{}{"opening_hours": "08:00-12:00"}
	router := newTestRouter(&stubStore{places: places})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/places?time_window=evening", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
}

func TestGetPlaceNotFound(t *testing.T) {
	router := newTestRouter(&stubStore{places: testPlaces()})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/places/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetPlaceByID(t *testing.T) {
	router := newTestRouter(&stubStore{places: testPlaces()})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/places/bowl-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var p place.Place
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "Strike", p.Name)
}

func TestGetFilterOptions(t *testing.T) {
	router := newTestRouter(&stubStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/categories", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Categories      []domain.Category       `json:"categories"`
		CapacityBuckets []domain.CapacityBucket `json:"capacityBuckets"`
		TimeWindows     []domain.TimeWindow     `json:"timeWindows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	require.NotEmpty(t, body.Categories)
	assert.Equal(t, "bowling", body.Categories[0].Key)
	require.Len(t, body.CapacityBuckets, 4)
	assert.Equal(t, "2-4", body.CapacityBuckets[0].Key)
	require.Len(t, body.TimeWindows, 4)
	assert.Equal(t, "morning", body.TimeWindows[0].Key)
}
