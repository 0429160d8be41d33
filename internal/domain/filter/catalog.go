// internal/domain/filter/catalog.go

package filter

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadCatalog reads a category catalog from a JSON file. Entries missing a
// Key get it filled from the map key.
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading catalog: %w", err)
	}

	var catalog Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("error parsing catalog: %w", err)
	}

	for key, category := range catalog {
		if category.Key == "" {
			category.Key = key
			catalog[key] = category
		}
	}

	return catalog, nil
}

// DefaultCatalog is the built-in category configuration. Deployments can
// replace it wholesale via CATEGORY_CATALOG_PATH; the engine treats either
// as read-only.
var DefaultCatalog = Catalog{
	"padel": {
		Key:             "padel",
		Label:           "Padel",
		QueryCategories: []string{"padel", "racquet_sports"},
		TagFilters:      []string{"indoor"},
	},
	"tennis": {
		Key:             "tennis",
		Label:           "Tennis",
		QueryCategories: []string{"tennis", "racquet_sports", "tennis_court"},
	},
	"bowling": {
		Key:             "bowling",
		Label:           "Bowling",
		QueryCategories: []string{"bowling", "bowling_alley"},
	},
	"climbing": {
		Key:             "climbing",
		Label:           "Climbing",
		QueryCategories: []string{"climbing", "climbing_gym", "bouldering"},
	},
	"karting": {
		Key:             "karting",
		Label:           "Karting",
		QueryCategories: []string{"karting", "go_kart_track", "raceway"},
	},
	"minigolf": {
		Key:             "minigolf",
		Label:           "Minigolf",
		QueryCategories: []string{"minigolf", "miniature_golf"},
	},
	"escape_room": {
		Key:             "escape_room",
		Label:           "Escape rooms",
		QueryCategories: []string{"escape_room", "escape_game"},
	},
	"restaurant": {
		Key:             "restaurant",
		Label:           "Food & drink",
		QueryCategories: []string{"restaurant", "cafe", "bar", "food"},
	},
}
