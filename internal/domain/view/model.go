// internal/domain/view/model.go

package view

import (
	"math"

	"mapscout/internal/domain/place"
)

// Delta bounds and rounding for viewport normalization. Rounding to a fixed
// precision makes near-identical regions compare equal, which is what keeps
// panning from causing a query/render storm.
const (
	MinDelta = 0.002
	MaxDelta = 80.0

	roundFactor = 1e5
	epsilon     = 1e-5
)

// ViewportRegion is the normalized visible map region: a center point plus
// the latitude/longitude span ("delta", inversely related to zoom)
type ViewportRegion struct {
	CenterLat float64 `json:"centerLat"`
	CenterLng float64 `json:"centerLng"`
	LatDelta  float64 `json:"latDelta"`
	LngDelta  float64 `json:"lngDelta"`
}

// Normalize clamps the deltas to [MinDelta, MaxDelta] and rounds every
// field to five decimals
func (r ViewportRegion) Normalize() ViewportRegion {
	return ViewportRegion{
		CenterLat: round5(r.CenterLat),
		CenterLng: round5(r.CenterLng),
		LatDelta:  round5(clamp(r.LatDelta, MinDelta, MaxDelta)),
		LngDelta:  round5(clamp(r.LngDelta, MinDelta, MaxDelta)),
	}
}

// Equal reports whether two regions differ by less than epsilon in every
// field; such regions are treated as the same region
func (r ViewportRegion) Equal(other ViewportRegion) bool {
	return math.Abs(r.CenterLat-other.CenterLat) < epsilon &&
		math.Abs(r.CenterLng-other.CenterLng) < epsilon &&
		math.Abs(r.LatDelta-other.LatDelta) < epsilon &&
		math.Abs(r.LngDelta-other.LngDelta) < epsilon
}

// IsFinite reports whether every field is a usable number
func (r ViewportRegion) IsFinite() bool {
	for _, v := range []float64{r.CenterLat, r.CenterLng, r.LatDelta, r.LngDelta} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Center returns the region's center coordinate
func (r ViewportRegion) Center() place.Coordinate {
	return place.Coordinate{Lat: r.CenterLat, Lng: r.CenterLng}
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func round5(v float64) float64 {
	return math.Round(v*roundFactor) / roundFactor
}

// Bounds is a south-west / north-east bounding box
type Bounds struct {
	SW place.Coordinate `json:"sw"`
	NE place.Coordinate `json:"ne"`
}

// BoundsQuery is the query object handed to the provider-fetch layer. Its
// JSON shape round-trips exactly; the provider endpoint depends on it.
type BoundsQuery struct {
	Bounds     Bounds   `json:"bounds"`
	Limit      int      `json:"limit"`
	City       string   `json:"city,omitempty"`
	Categories []string `json:"categories,omitempty"`
}

// RenderedPlace is a single marker at an explicit coordinate. For spiderfied
// members the coordinate is offset from the place's true position.
type RenderedPlace struct {
	Place      place.Place      `json:"place"`
	Coordinate place.Coordinate `json:"coordinate"`
}

// Cluster is an aggregate marker for a geohash bucket with more than one
// member
type Cluster struct {
	ID         string           `json:"id"`
	Coordinate place.Coordinate `json:"coordinate"`
	Count      int              `json:"count"`
	Places     []place.Place    `json:"places"`
}

// RenderPayload is the clustering stage output handed to the renderer
type RenderPayload struct {
	Clusters []Cluster       `json:"clusters"`
	Singles  []RenderedPlace `json:"singles"`
}
