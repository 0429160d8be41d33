// internal/adapter/provider/foursquare.go

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mapscout/internal/domain/place"
	"mapscout/internal/domain/view"
)

// FoursquareConfig contains configuration for the Foursquare source
type FoursquareConfig struct {
	APIKey  string
	URL     string
	Timeout time.Duration
}

// FoursquareSource fetches places from the Foursquare Places API
type FoursquareSource struct {
	config FoursquareConfig
	client *http.Client
}

// NewFoursquareSource creates a new Foursquare place source
func NewFoursquareSource(config FoursquareConfig) *FoursquareSource {
	if config.URL == "" {
		config.URL = "https://api.foursquare.com/v3/places/search"
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}

	return &FoursquareSource{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}
}

// Name returns the provider name
func (s *FoursquareSource) Name() string {
	return string(place.ProviderFoursquare)
}

// foursquareResponse is the Places API search envelope
type foursquareResponse struct {
	Results []foursquareResult `json:"results"`
}

type foursquareResult struct {
	FsqID      string `json:"fsq_id"`
	Name       string `json:"name"`
	Categories []struct {
		Name string `json:"name"`
	} `json:"categories"`
	Geocodes struct {
		Main struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"main"`
	} `json:"geocodes"`
	Location struct {
		Address  string `json:"address"`
		Locality string `json:"locality"`
		Region   string `json:"region"`
		Country  string `json:"country"`
	} `json:"location"`
	Price int                    `json:"price"`
	Hours map[string]interface{} `json:"hours"`
}

// FetchPlaces searches Foursquare within the query bounds
func (s *FoursquareSource) FetchPlaces(ctx context.Context, query view.BoundsQuery) ([]place.Place, error) {
	limit := query.Limit
	if limit <= 0 || limit > 50 {
		limit = 50
	}

	params := url.Values{}
	params.Set("sw", fmt.Sprintf("%f,%f", query.Bounds.SW.Lat, query.Bounds.SW.Lng))
	params.Set("ne", fmt.Sprintf("%f,%f", query.Bounds.NE.Lat, query.Bounds.NE.Lng))
	params.Set("limit", fmt.Sprintf("%d", limit))
	params.Set("fields", "fsq_id,name,categories,geocodes,location,price,hours")
	if len(query.Categories) > 0 {
		params.Set("query", strings.Join(query.Categories, " "))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.URL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("error building foursquare request: %w", err)
	}
	req.Header.Set("Authorization", s.config.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error querying foursquare: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("foursquare returned %d: %s", resp.StatusCode, string(body))
	}

	var parsed foursquareResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("error decoding foursquare response: %w", err)
	}

	places := make([]place.Place, 0, len(parsed.Results))
	for _, result := range parsed.Results {
		if p, ok := s.mapResult(result); ok {
			places = append(places, p)
		}
	}

	return places, nil
}

// mapResult converts a Foursquare result into a place
func (s *FoursquareSource) mapResult(result foursquareResult) (place.Place, bool) {
	lat := result.Geocodes.Main.Latitude
	lng := result.Geocodes.Main.Longitude
	if result.FsqID == "" || (lat == 0 && lng == 0) {
		return place.Place{}, false
	}

	// Category names arrive as display labels; fold them into the snake_case
	// vocabulary the rest of the engine matches on
	categories := make([]string, 0, len(result.Categories))
	for _, c := range result.Categories {
		if c.Name != "" {
			categories = append(categories, strings.ReplaceAll(strings.ToLower(c.Name), " ", "_"))
		}
	}

	metadata := map[string]interface{}{}
	if len(result.Hours) > 0 {
		metadata["hours"] = result.Hours
	}

	var priceLevel *int
	if result.Price >= 1 && result.Price <= 4 {
		priceLevel = &result.Price
	}

	return place.Place{
		ID:         "fsq-" + result.FsqID,
		Name:       result.Name,
		Lat:        lat,
		Lng:        lng,
		Address:    result.Location.Address,
		Locality:   result.Location.Locality,
		Region:     result.Location.Region,
		Country:    result.Location.Country,
		Categories: categories,
		PriceLevel: priceLevel,
		Metadata:   metadata,
		Provider:   place.ProviderFoursquare,
		FetchedAt:  time.Now(),
	}, true
}
