// internal/service/filter/evaluator.go

package filter

import (
	"math"
	"strings"
	"time"

	"mapscout/internal/domain/filter"
	"mapscout/internal/domain/place"
	"mapscout/internal/service/attrs"
	"mapscout/internal/service/hours"
)

// Evaluator combines category, price, distance, capacity and time-window
// predicates into a single accept/reject per place. The evaluation policy
// is "unknown never excludes": provider data is inconsistently populated,
// and the product goal is to never hide a place because of missing metadata.
type Evaluator struct {
	hours *hours.Resolver
	attrs *attrs.Resolver
}

// NewEvaluator creates a new filter evaluator
func NewEvaluator(hoursResolver *hours.Resolver, attrsResolver *attrs.Resolver) *Evaluator {
	return &Evaluator{
		hours: hoursResolver,
		attrs: attrsResolver,
	}
}

// Matches reports whether the place passes every active criterion. Criteria
// are checked in a fixed order and short-circuit on the first failure; any
// criterion with no selection is skipped.
func (e *Evaluator) Matches(
	p place.Place,
	state filter.State,
	center place.Coordinate,
	now time.Time,
	catalog filter.Catalog,
) bool {
	if state.HasCategories() && !e.matchesCategory(p, state.Categories, catalog) {
		return false
	}

	if state.HasPriceLevels() && !e.matchesPrice(p, state) {
		return false
	}

	if state.MaxDistanceKm != nil && !e.matchesDistance(p, center, *state.MaxDistanceKm) {
		return false
	}

	if state.CapacityBucket != "" && state.CapacityBucket != filter.CapacityAny &&
		!e.matchesCapacity(p, state.CapacityBucket) {
		return false
	}

	if state.TimeWindow != "" && state.TimeWindow != filter.WindowAny &&
		!e.matchesTimeWindow(p, state.TimeWindow, now) {
		return false
	}

	return true
}

// Apply returns the places that match, preserving input order. This is the
// list handed to non-map views.
func (e *Evaluator) Apply(
	places []place.Place,
	state filter.State,
	center place.Coordinate,
	now time.Time,
	catalog filter.Catalog,
) []place.Place {
	matched := make([]place.Place, 0, len(places))
	for _, p := range places {
		if e.Matches(p, state, center, now, catalog) {
			matched = append(matched, p)
		}
	}
	return matched
}

// matchesCategory checks whether any selected category key covers the
// place. A configured key matches through its query categories and must
// additionally satisfy at least one of its tag filters when declared; an
// unconfigured key matches on the raw key itself.
func (e *Evaluator) matchesCategory(p place.Place, selected []string, catalog filter.Catalog) bool {
	placeSet := p.CategorySet()

	for _, key := range selected {
		cfg, configured := catalog[key]
		if !configured {
			if placeSet[normalize(key)] {
				return true
			}
			continue
		}

		queryCategories := cfg.QueryCategories
		if len(queryCategories) == 0 {
			queryCategories = []string{cfg.Key}
		}

		intersects := false
		for _, qc := range queryCategories {
			if placeSet[normalize(qc)] {
				intersects = true
				break
			}
		}
		if !intersects {
			continue
		}

		if len(cfg.TagFilters) > 0 {
			tagMatch := false
			for _, tag := range cfg.TagFilters {
				if placeSet[normalize(tag)] {
					tagMatch = true
					break
				}
			}
			if !tagMatch {
				continue
			}
		}

		return true
	}

	return false
}

func (e *Evaluator) matchesPrice(p place.Place, state filter.State) bool {
	level, ok := e.attrs.PriceLevel(p)
	if !ok {
		// Unresolvable price never excludes
		return true
	}
	return state.PriceLevelSelected(level)
}

func (e *Evaluator) matchesDistance(p place.Place, center place.Coordinate, maxKm float64) bool {
	if !p.Coordinate().IsFinite() || !center.IsFinite() {
		return true
	}

	distance := HaversineKm(center, p.Coordinate())
	if math.IsNaN(distance) {
		// Fail open on a broken viewport
		return true
	}

	return distance <= maxKm+distanceToleranceKm
}

// distanceToleranceKm absorbs floating point noise at the boundary so a
// place sitting exactly on the max distance is included
const distanceToleranceKm = 1e-9

func (e *Evaluator) matchesCapacity(p place.Place, bucketKey string) bool {
	bucket, ok := filter.CapacityBuckets[bucketKey]
	if !ok {
		return true
	}

	capacity, resolved := e.attrs.Capacity(p)
	if !resolved {
		// Unresolvable capacity never excludes
		return true
	}

	if bucket.Min != nil && capacity < *bucket.Min {
		return false
	}
	if bucket.Max != nil && capacity > *bucket.Max {
		return false
	}
	return true
}

func (e *Evaluator) matchesTimeWindow(p place.Place, windowKey string, now time.Time) bool {
	segments := e.hours.ExtractSegments(p.Metadata)

	if windowKey == filter.WindowOpenNow {
		// A truthy open-now flag takes precedence over segment inference
		if open, found := e.hours.OpenNowFlag(p.Metadata); found {
			return open
		}
		if len(segments) == 0 {
			// Cannot determine; default to match
			return true
		}
		return e.hours.OpenAtMinute(segments, now.Hour()*60+now.Minute())
	}

	window, ok := filter.TimeWindows[windowKey]
	if !ok {
		return true
	}

	open, known := e.hours.OpenDuringWindow(segments, window.StartHour, window.EndHour)
	if !known {
		return true
	}
	return open
}

// HaversineKm returns the great-circle distance between two coordinates
// in kilometers
func HaversineKm(a, b place.Coordinate) float64 {
	const earthRadiusKm = 6371.0

	lat1 := a.Lat * math.Pi / 180.0
	lon1 := a.Lng * math.Pi / 180.0
	lat2 := b.Lat * math.Pi / 180.0
	lon2 := b.Lng * math.Pi / 180.0

	dLat := lat2 - lat1
	dLon := lon2 - lon1

	hSin := math.Sin(dLat / 2)
	hSin *= hSin

	vSin := math.Sin(dLon / 2)
	vSin *= vSin

	h := hSin + math.Cos(lat1)*math.Cos(lat2)*vSin

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// normalize mirrors the place.CategorySet key normalization
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
