// internal/service/cluster/bucketer.go

package cluster

import (
	"sort"

	geohash "github.com/TomiHiltunen/geohash-golang"

	"mapscout/internal/domain/place"
	"mapscout/internal/domain/view"
)

// Config tunes bucketing and spiderfying behavior
type Config struct {
	// SpiderfyMaxDelta is the largest viewport latitude span at which
	// small clusters are spread into individual markers
	SpiderfyMaxDelta float64

	// SpiderfyMaxSize is the largest bucket that gets spiderfied; bigger
	// buckets stay aggregate clusters at any zoom
	SpiderfyMaxSize int

	// MinSpiderRadiusDeg and MaxSpiderRadiusDeg clamp the spider ring
	// radius so points neither overlap nor fly off-screen at extreme zooms
	MinSpiderRadiusDeg float64
	MaxSpiderRadiusDeg float64
}

// DefaultConfig returns the bucketing defaults
func DefaultConfig() Config {
	return Config{
		SpiderfyMaxDelta:   0.04,
		SpiderfyMaxSize:    8,
		MinSpiderRadiusDeg: 0.0004,
		MaxSpiderRadiusDeg: 0.004,
	}
}

// Bucketer groups places into geohash cells whose precision follows the
// viewport zoom. Buckets are recomputed from scratch on every pass; nothing
// is mutated incrementally, so a pass can never observe stale buckets.
type Bucketer struct {
	config Config
}

// NewBucketer creates a new geo bucketer
func NewBucketer(config Config) *Bucketer {
	defaults := DefaultConfig()
	if config.SpiderfyMaxDelta <= 0 {
		config.SpiderfyMaxDelta = defaults.SpiderfyMaxDelta
	}
	if config.SpiderfyMaxSize <= 0 {
		config.SpiderfyMaxSize = defaults.SpiderfyMaxSize
	}
	if config.MinSpiderRadiusDeg <= 0 {
		config.MinSpiderRadiusDeg = defaults.MinSpiderRadiusDeg
	}
	if config.MaxSpiderRadiusDeg <= 0 {
		config.MaxSpiderRadiusDeg = defaults.MaxSpiderRadiusDeg
	}

	return &Bucketer{config: config}
}

// Cluster buckets the places for the given viewport and produces the render
// payload: aggregate clusters plus individually positioned singles. Places
// with non-finite coordinates are dropped rather than crashing the pass.
func (b *Bucketer) Cluster(places []place.Place, region view.ViewportRegion) view.RenderPayload {
	region = region.Normalize()
	precision := precisionForSpan(region.LatDelta)

	buckets := make(map[string][]place.Place)
	for _, p := range places {
		if !p.Coordinate().IsFinite() {
			continue
		}
		key := geohash.EncodeWithPrecision(p.Lat, p.Lng, precision)
		buckets[key] = append(buckets[key], p)
	}

	// Deterministic bucket iteration: identical input always renders the
	// same payload
	keys := make([]string, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	payload := view.RenderPayload{
		Clusters: []view.Cluster{},
		Singles:  []view.RenderedPlace{},
	}

	for _, key := range keys {
		members := buckets[key]

		if len(members) == 1 {
			p := members[0]
			payload.Singles = append(payload.Singles, view.RenderedPlace{
				Place:      p,
				Coordinate: p.Coordinate(),
			})
			continue
		}

		centroid := centroidOf(members)

		if region.LatDelta <= b.config.SpiderfyMaxDelta && len(members) <= b.config.SpiderfyMaxSize {
			payload.Singles = append(payload.Singles, b.spiderfy(members, centroid, region)...)
			continue
		}

		payload.Clusters = append(payload.Clusters, view.Cluster{
			ID:         key,
			Coordinate: centroid,
			Count:      len(members),
			Places:     members,
		})
	}

	return payload
}

// precisionTable maps viewport latitude span thresholds to geohash digit
// counts; a finer span selects a higher precision
var precisionTable = []struct {
	minSpan   float64
	precision int
}{
	{20.0, 3},
	{5.0, 4},
	{1.0, 5},
	{0.2, 6},
	{0.0, 7},
}

func precisionForSpan(latDelta float64) int {
	for _, step := range precisionTable {
		if latDelta >= step.minSpan {
			return step.precision
		}
	}
	return precisionTable[len(precisionTable)-1].precision
}

// centroidOf returns the arithmetic mean coordinate of the members
func centroidOf(members []place.Place) place.Coordinate {
	var sumLat, sumLng float64
	for _, m := range members {
		sumLat += m.Lat
		sumLng += m.Lng
	}
	n := float64(len(members))
	return place.Coordinate{Lat: sumLat / n, Lng: sumLng / n}
}
