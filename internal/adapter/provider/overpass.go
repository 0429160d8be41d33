// internal/adapter/provider/overpass.go

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"mapscout/internal/domain/place"
	"mapscout/internal/domain/view"
)

// OverpassConfig contains configuration for the OpenStreetMap source
type OverpassConfig struct {
	URL     string
	Timeout time.Duration
}

// OverpassSource fetches places from the OpenStreetMap Overpass API
type OverpassSource struct {
	config OverpassConfig
	client *http.Client
}

// NewOverpassSource creates a new OpenStreetMap place source
func NewOverpassSource(config OverpassConfig) *OverpassSource {
	if config.URL == "" {
		config.URL = "https://overpass-api.de/api/interpreter"
	}
	if config.Timeout <= 0 {
		config.Timeout = 25 * time.Second
	}

	return &OverpassSource{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

// Name returns the provider name
func (s *OverpassSource) Name() string {
	return string(place.ProviderOSM)
}

// overpassResponse is the Overpass API JSON envelope
type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

type overpassElement struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    float64           `json:"lat"`
	Lon    float64           `json:"lon"`
	Center *overpassCenter   `json:"center,omitempty"`
	Tags   map[string]string `json:"tags"`
}

type overpassCenter struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// FetchPlaces queries leisure, sport, and food venues within the bounds
func (s *OverpassSource) FetchPlaces(ctx context.Context, query view.BoundsQuery) ([]place.Place, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = 100
	}

	bbox := fmt.Sprintf("%f,%f,%f,%f",
		query.Bounds.SW.Lat, query.Bounds.SW.Lng,
		query.Bounds.NE.Lat, query.Bounds.NE.Lng,
	)

	overpassQL := fmt.Sprintf(`[out:json][timeout:20];
(
  nwr["leisure"]["name"](%s);
  nwr["sport"]["name"](%s);
  nwr["amenity"~"^(restaurant|cafe|bar|pub)$"]["name"](%s);
);
out center %d;`, bbox, bbox, bbox, limit)

	form := url.Values{"data": {overpassQL}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("error building overpass request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error querying overpass: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("overpass returned %d: %s", resp.StatusCode, string(body))
	}

	var parsed overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("error decoding overpass response: %w", err)
	}

	places := make([]place.Place, 0, len(parsed.Elements))
	for _, el := range parsed.Elements {
		if p, ok := s.mapElement(el); ok {
			places = append(places, p)
		}
	}

	return places, nil
}

// mapElement converts an Overpass element into a place
func (s *OverpassSource) mapElement(el overpassElement) (place.Place, bool) {
	lat, lng := el.Lat, el.Lon
	if el.Center != nil {
		lat, lng = el.Center.Lat, el.Center.Lon
	}
	if lat == 0 && lng == 0 {
		return place.Place{}, false
	}

	name := el.Tags["name"]
	if name == "" {
		return place.Place{}, false
	}

	var categories []string
	for _, key := range []string{"leisure", "amenity", "sport"} {
		if value := el.Tags[key]; value != "" {
			// Multi-valued OSM tags are semicolon separated
			for _, v := range strings.Split(value, ";") {
				if v = strings.TrimSpace(v); v != "" {
					categories = append(categories, v)
				}
			}
		}
	}

	var tags []string
	if el.Tags["indoor"] == "yes" || el.Tags["covered"] == "yes" {
		tags = append(tags, "indoor")
	}
	if el.Tags["outdoor"] == "yes" {
		tags = append(tags, "outdoor")
	}

	metadata := map[string]interface{}{}
	if hours := el.Tags["opening_hours"]; hours != "" {
		metadata["opening_hours"] = hours
	}
	if capacity := el.Tags["capacity"]; capacity != "" {
		if v, err := strconv.ParseFloat(capacity, 64); err == nil {
			metadata["capacity"] = v
		}
	}

	return place.Place{
		ID:         fmt.Sprintf("osm-%s-%d", el.Type, el.ID),
		Name:       name,
		Lat:        lat,
		Lng:        lng,
		Address:    joinNonEmpty(" ", el.Tags["addr:street"], el.Tags["addr:housenumber"]),
		Locality:   el.Tags["addr:city"],
		Country:    el.Tags["addr:country"],
		Categories: categories,
		Tags:       tags,
		Metadata:   metadata,
		Provider:   place.ProviderOSM,
		FetchedAt:  time.Now(),
	}, true
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
