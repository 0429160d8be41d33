package filter_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	domain "mapscout/internal/domain/filter"
	"mapscout/internal/domain/place"
	"mapscout/internal/service/attrs"
	"mapscout/internal/service/filter"
	"mapscout/internal/service/hours"
)

func newEvaluator() *filter.Evaluator {
	return filter.NewEvaluator(hours.NewResolver(), attrs.NewResolver())
}

func floatPtr(v float64) *float64 { return &v }

var noon = time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

func TestMatchesCategoryEndToEnd(t *testing.T) {
	e := newEvaluator()

	catalog := domain.Catalog{
		"padel": {
			Key:             "padel",
			Label:           "Padel",
			QueryCategories: []string{"padel", "racquet_sports"},
			TagFilters:      []string{"indoor"},
		},
	}
	state := domain.State{Categories: []string{"padel"}}
	center := place.Coordinate{}

	indoor := place.Place{ID: "a", Tags: []string{"racquet_sports", "indoor"}}
	outdoor := place.Place{ID: "b", Tags: []string{"racquet_sports", "outdoor"}}

	assert.True(t, e.Matches(indoor, state, center, noon, catalog))
	assert.False(t, e.Matches(outdoor, state, center, noon, catalog))
}

func TestMatchesCategoryUnconfiguredKeyFallsBackToRawKey(t *testing.T) {
	e := newEvaluator()

	state := domain.State{Categories: []string{"sauna"}}
	tagged := place.Place{Categories: []string{"Sauna"}}
	untagged := place.Place{Categories: []string{"gym"}}

	assert.True(t, e.Matches(tagged, state, place.Coordinate{}, noon, nil))
	assert.False(t, e.Matches(untagged, state, place.Coordinate{}, noon, nil))
}

func TestPriceUnknownNeverExcludes(t *testing.T) {
	e := newEvaluator()

	state := domain.State{PriceLevels: []int{1, 2}}

	noPrice := place.Place{Metadata: map[string]interface{}{}}
	cheap := place.Place{Metadata: map[string]interface{}{"price_level": float64(1)}}
	pricey := place.Place{Metadata: map[string]interface{}{"price_level": float64(4)}}

	assert.True(t, e.Matches(noPrice, state, place.Coordinate{}, noon, nil))
	assert.True(t, e.Matches(cheap, state, place.Coordinate{}, noon, nil))
	assert.False(t, e.Matches(pricey, state, place.Coordinate{}, noon, nil))
}

func TestDistanceBoundary(t *testing.T) {
	e := newEvaluator()

	center := place.Coordinate{Lat: 0, Lng: 0}
	// 0.0449 degrees of longitude at the equator is almost exactly 5.0 km
	p := place.Place{Lat: 0, Lng: 0.0449}

	included := domain.State{MaxDistanceKm: floatPtr(5)}
	excluded := domain.State{MaxDistanceKm: floatPtr(4.9)}

	assert.True(t, e.Matches(p, included, center, noon, nil))
	assert.False(t, e.Matches(p, excluded, center, noon, nil))
}

func TestDistanceFailsOpenOnBrokenCoordinates(t *testing.T) {
	e := newEvaluator()

	state := domain.State{MaxDistanceKm: floatPtr(1)}
	nanPlace := place.Place{Lat: math.NaN(), Lng: 0}

	assert.True(t, e.Matches(nanPlace, state, place.Coordinate{}, noon, nil))
}

func TestCapacityBuckets(t *testing.T) {
	e := newEvaluator()

	state := domain.State{CapacityBucket: "5-10"}

	tests := []struct {
		name     string
		metadata map[string]interface{}
		expected bool
	}{
		{"capacity in bucket", map[string]interface{}{"capacity": float64(8)}, true},
		{"capacity below bucket", map[string]interface{}{"capacity": float64(3)}, false},
		{"capacity above bucket", map[string]interface{}{"capacity": float64(30)}, false},
		{"no capacity metadata never excludes", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := place.Place{Metadata: tt.metadata}
			assert.Equal(t, tt.expected, e.Matches(p, state, place.Coordinate{}, noon, nil))
		})
	}
}

func TestCapacityOpenEndedBucket(t *testing.T) {
	e := newEvaluator()

	state := domain.State{CapacityBucket: "26+"}
	big := place.Place{Metadata: map[string]interface{}{"capacity": float64(120)}}
	small := place.Place{Metadata: map[string]interface{}{"capacity": float64(4)}}

	assert.True(t, e.Matches(big, state, place.Coordinate{}, noon, nil))
	assert.False(t, e.Matches(small, state, place.Coordinate{}, noon, nil))
}

func TestTimeWindowOpenNow(t *testing.T) {
	e := newEvaluator()

	state := domain.State{TimeWindow: domain.WindowOpenNow}

	tests := []struct {
		name     string
		metadata map[string]interface{}
		expected bool
	}{
		{
			name:     "direct flag true wins",
			metadata: map[string]interface{}{"open_now": true, "opening_hours": "02:00-03:00"},
			expected: true,
		},
		{
			name:     "falsy flag defers to open segments",
			metadata: map[string]interface{}{"open_now": false, "opening_hours": "00:00-23:59"},
			expected: true,
		},
		{
			name: "truthy nested flag wins over falsy top level flag",
			metadata: map[string]interface{}{
				"open_now": false,
				"hours":    map[string]interface{}{"open_now": true},
			},
			expected: true,
		},
		{
			name:     "falsy flag with closed segments stays closed",
			metadata: map[string]interface{}{"open_now": false, "opening_hours": "18:00-23:00"},
			expected: false,
		},
		{
			name:     "segments cover noon",
			metadata: map[string]interface{}{"opening_hours": "09:00-17:00"},
			expected: true,
		},
		{
			name:     "segments exclude noon",
			metadata: map[string]interface{}{"opening_hours": "18:00-23:00"},
			expected: false,
		},
		{
			name:     "no data defaults to match",
			metadata: nil,
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := place.Place{Metadata: tt.metadata}
			assert.Equal(t, tt.expected, e.Matches(p, state, place.Coordinate{}, noon, nil))
		})
	}
}

func TestTimeWindowNamedRange(t *testing.T) {
	e := newEvaluator()

	evening := domain.State{TimeWindow: "evening"}
	lateNight := domain.State{TimeWindow: "late_night"}

	daytimeOnly := place.Place{Metadata: map[string]interface{}{"opening_hours": "09:00-16:00"}}
	nightSpot := place.Place{Metadata: map[string]interface{}{"opening_hours": "22:00-02:00"}}
	unknown := place.Place{}

	assert.False(t, e.Matches(daytimeOnly, evening, place.Coordinate{}, noon, nil))
	assert.True(t, e.Matches(nightSpot, lateNight, place.Coordinate{}, noon, nil))
	assert.True(t, e.Matches(unknown, evening, place.Coordinate{}, noon, nil), "unknown hours never exclude")
}

func TestApplyPreservesOrder(t *testing.T) {
	e := newEvaluator()

	places := []place.Place{
		{ID: "1", Categories: []string{"bowling"}},
		{ID: "2", Categories: []string{"tennis"}},
		{ID: "3", Categories: []string{"bowling"}},
	}
	state := domain.State{Categories: []string{"bowling"}}

	got := e.Apply(places, state, place.Coordinate{}, noon, nil)

	assert.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "3", got[1].ID)
}

func TestSummary(t *testing.T) {
	catalog := domain.Catalog{
		"padel": {Key: "padel", Label: "Padel"},
	}

	tests := []struct {
		name     string
		state    domain.State
		expected string
	}{
		{
			name:     "no active filters",
			state:    domain.State{},
			expected: "",
		},
		{
			name:     "single category uses label",
			state:    domain.State{Categories: []string{"padel"}},
			expected: "Padel",
		},
		{
			name: "joined up to the cap",
			state: domain.State{
				Categories:  []string{"padel"},
				PriceLevels: []int{2, 3},
				TimeWindow:  "evening",
			},
			expected: "Padel · $$ · Evening",
		},
		{
			name: "overflow collapses into suffix",
			state: domain.State{
				Categories:     []string{"padel", "karting"},
				PriceLevels:    []int{1},
				CapacityBucket: "5-10",
				TimeWindow:     domain.WindowOpenNow,
			},
			expected: "Padel · karting · $ +2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, filter.Summary(tt.state, catalog))
		})
	}
}
