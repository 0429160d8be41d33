// internal/server/handlers/places.go

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"mapscout/internal/adapter/storage"
	domain "mapscout/internal/domain/filter"
	"mapscout/internal/domain/place"
	"mapscout/internal/domain/view"
	"mapscout/internal/service/cluster"
	"mapscout/internal/service/filter"
	"mapscout/internal/service/viewport"
)

// PlaceStore defines the storage the place handlers read from
type PlaceStore interface {
	GetPlace(ctx context.Context, id string) (*place.Place, error)
	FindPlacesInBounds(ctx context.Context, bounds view.Bounds, limit int) ([]place.Place, error)
	FindPlaces(ctx context.Context, q storage.PlaceQuery) ([]place.Place, error)
}

// PlaceHandler handles place-related HTTP requests
type PlaceHandler struct {
	store     PlaceStore
	evaluator *filter.Evaluator
	bucketer  *cluster.Bucketer
	catalog   domain.Catalog
	pageSize  int
}

// NewPlaceHandler creates a new place handler
func NewPlaceHandler(
	store PlaceStore,
	evaluator *filter.Evaluator,
	bucketer *cluster.Bucketer,
	catalog domain.Catalog,
	pageSize int,
) *PlaceHandler {
	if pageSize <= 0 {
		pageSize = 100
	}

	return &PlaceHandler{
		store:     store,
		evaluator: evaluator,
		bucketer:  bucketer,
		catalog:   catalog,
		pageSize:  pageSize,
	}
}

// GetMapPlaces returns the clustered render payload for a viewport region.
// The region arrives as center plus span query parameters.
func (h *PlaceHandler) GetMapPlaces(w http.ResponseWriter, r *http.Request) {
	region, err := parseRegion(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	state := parseFilterState(r)

	limit := h.pageSize
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}

	query := viewport.BuildBoundsQuery(region, limit, "", nil)

	places, err := h.store.FindPlacesInBounds(r.Context(), query.Bounds, limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load places", err)
		return
	}

	matched := h.evaluator.Apply(places, state, region.Center(), time.Now(), h.catalog)
	payload := h.bucketer.Cluster(matched, region)

	respondWithJSON(w, http.StatusOK, payload)
}

// ListPlaces returns a flat filtered place listing plus a human-readable
// summary of the active filters
func (h *PlaceHandler) ListPlaces(w http.ResponseWriter, r *http.Request) {
	state := parseFilterState(r)

	query := storage.PlaceQuery{
		City:       r.URL.Query().Get("city"),
		Categories: h.queryCategories(state.Categories),
		Limit:      h.pageSize,
	}

	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		query.Limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		query.Offset = v
	}

	// A distance filter needs a reference point; without one it is ignored
	center, hasCenter := parseCenter(r)
	if !hasCenter {
		state.MaxDistanceKm = nil
	}

	places, err := h.store.FindPlaces(r.Context(), query)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load places", err)
		return
	}

	matched := h.evaluator.Apply(places, state, center, time.Now(), h.catalog)
	if matched == nil {
		matched = []place.Place{}
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"places":  matched,
		"count":   len(matched),
		"summary": filter.Summary(state, h.catalog),
	})
}

// GetPlace returns a single place by ID
func (h *PlaceHandler) GetPlace(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "Missing place ID", nil)
		return
	}

	p, err := h.store.GetPlace(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "Place not found", nil)
		} else {
			respondWithError(w, http.StatusInternalServerError, "Failed to get place", err)
		}
		return
	}

	respondWithJSON(w, http.StatusOK, p)
}

// GetFilterOptions returns the selectable filter vocabulary: category
// catalog, capacity buckets, and time windows
func (h *PlaceHandler) GetFilterOptions(w http.ResponseWriter, r *http.Request) {
	categories := make([]domain.Category, 0, len(h.catalog))
	for _, c := range h.catalog {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Key < categories[j].Key })

	buckets := make([]domain.CapacityBucket, 0, len(domain.CapacityBuckets))
	for _, b := range domain.CapacityBuckets {
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		return bucketFloor(buckets[i]) < bucketFloor(buckets[j])
	})

	windows := make([]domain.TimeWindow, 0, len(domain.TimeWindows))
	for _, tw := range domain.TimeWindows {
		windows = append(windows, tw)
	}
	sort.Slice(windows, func(i, j int) bool { return windows[i].StartHour < windows[j].StartHour })

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"categories":      categories,
		"capacityBuckets": buckets,
		"timeWindows":     windows,
	})
}

// queryCategories expands selected catalog keys into the provider category
// vocabulary for the storage query. Unconfigured keys pass through as-is.
func (h *PlaceHandler) queryCategories(selected []string) []string {
	if len(selected) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var expanded []string

	add := func(value string) {
		value = strings.ToLower(strings.TrimSpace(value))
		if value == "" || seen[value] {
			return
		}
		seen[value] = true
		expanded = append(expanded, value)
	}

	for _, key := range selected {
		category, ok := h.catalog[strings.ToLower(strings.TrimSpace(key))]
		if !ok {
			add(key)
			continue
		}
		for _, qc := range category.QueryCategories {
			add(qc)
		}
	}

	return expanded
}

func bucketFloor(b domain.CapacityBucket) int {
	if b.Min == nil {
		return 0
	}
	return *b.Min
}

// parseRegion reads the viewport region query parameters
func parseRegion(r *http.Request) (view.ViewportRegion, error) {
	q := r.URL.Query()

	centerLat, err := strconv.ParseFloat(q.Get("center_lat"), 64)
	if err != nil {
		return view.ViewportRegion{}, errors.New("invalid or missing center_lat")
	}
	centerLng, err := strconv.ParseFloat(q.Get("center_lng"), 64)
	if err != nil {
		return view.ViewportRegion{}, errors.New("invalid or missing center_lng")
	}
	latDelta, err := strconv.ParseFloat(q.Get("lat_delta"), 64)
	if err != nil {
		return view.ViewportRegion{}, errors.New("invalid or missing lat_delta")
	}
	lngDelta, err := strconv.ParseFloat(q.Get("lng_delta"), 64)
	if err != nil {
		return view.ViewportRegion{}, errors.New("invalid or missing lng_delta")
	}

	region := view.ViewportRegion{
		CenterLat: centerLat,
		CenterLng: centerLng,
		LatDelta:  latDelta,
		LngDelta:  lngDelta,
	}
	if !region.IsFinite() {
		return view.ViewportRegion{}, errors.New("region values must be finite")
	}

	return region.Normalize(), nil
}

// parseCenter reads an optional lat/lng reference point
func parseCenter(r *http.Request) (place.Coordinate, bool) {
	q := r.URL.Query()

	lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
	lng, lngErr := strconv.ParseFloat(q.Get("lng"), 64)
	if latErr != nil || lngErr != nil {
		return place.Coordinate{}, false
	}

	c := place.Coordinate{Lat: lat, Lng: lng}
	return c, c.IsFinite()
}

// parseFilterState reads the filter query parameters into a filter state
func parseFilterState(r *http.Request) domain.State {
	q := r.URL.Query()

	var state domain.State

	if categories := q.Get("categories"); categories != "" {
		for _, c := range strings.Split(categories, ",") {
			if c = strings.TrimSpace(c); c != "" {
				state.Categories = append(state.Categories, c)
			}
		}
	}

	if levels := q.Get("price_levels"); levels != "" {
		for _, l := range strings.Split(levels, ",") {
			if v, err := strconv.Atoi(strings.TrimSpace(l)); err == nil {
				state.PriceLevels = append(state.PriceLevels, v)
			}
		}
	}

	if v, err := strconv.ParseFloat(q.Get("max_distance_km"), 64); err == nil && v > 0 {
		state.MaxDistanceKm = &v
	}

	if capacity := q.Get("capacity"); capacity != "" && capacity != domain.CapacityAny {
		state.CapacityBucket = capacity
	}

	if window := q.Get("time_window"); window != "" && window != domain.WindowAny {
		state.TimeWindow = window
	}

	return state
}

// Helper for JSON responses
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Failed to marshal response"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// Helper for error responses
func respondWithError(w http.ResponseWriter, code int, message string, err error) {
	response := map[string]string{"error": message}

	if err != nil && code >= 500 {
		log.Printf("HTTP %d: %s: %v", code, message, err)
	}

	jsonResponse, _ := json.Marshal(response)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(jsonResponse)
}
