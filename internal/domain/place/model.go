// internal/domain/place/model.go

package place

import (
	"math"
	"strings"
	"time"
)

// Provider identifies which upstream service a place record came from
type Provider string

const (
	ProviderOSM        Provider = "osm"
	ProviderFoursquare Provider = "foursquare"
	ProviderGoogle     Provider = "google"
)

// Coordinate represents a geographic point
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// IsFinite reports whether both coordinate components are usable numbers
func (c Coordinate) IsFinite() bool {
	return !math.IsNaN(c.Lat) && !math.IsInf(c.Lat, 0) &&
		!math.IsNaN(c.Lng) && !math.IsInf(c.Lng, 0)
}

// Place is an immutable place record supplied by the provider layer.
// Metadata is an open bag whose shape varies per provider; the engine only
// ever reads it through the resolvers.
type Place struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name"`
	Lat        float64                `json:"lat"`
	Lng        float64                `json:"lng"`
	Address    string                 `json:"address,omitempty"`
	Locality   string                 `json:"locality,omitempty"`
	Region     string                 `json:"region,omitempty"`
	Country    string                 `json:"country,omitempty"`
	Categories []string               `json:"categories"`
	Tags       []string               `json:"tags"`
	PriceLevel *int                   `json:"priceLevel,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Provider   Provider               `json:"provider,omitempty"`
	FetchedAt  time.Time              `json:"fetchedAt,omitempty"`
}

// Coordinate returns the place's raw coordinate
func (p Place) Coordinate() Coordinate {
	return Coordinate{Lat: p.Lat, Lng: p.Lng}
}

// CategorySet returns the normalized (lowercased, trimmed) union of the
// place's categories and tags
func (p Place) CategorySet() map[string]bool {
	set := make(map[string]bool, len(p.Categories)+len(p.Tags))
	for _, c := range p.Categories {
		if key := normalizeKey(c); key != "" {
			set[key] = true
		}
	}
	for _, t := range p.Tags {
		if key := normalizeKey(t); key != "" {
			set[key] = true
		}
	}
	return set
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
