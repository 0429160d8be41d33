// internal/service/attrs/resolver.go

package attrs

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"mapscout/internal/domain/place"
)

// Resolver extracts canonical price and capacity values from the
// heterogeneous metadata shapes the providers supply. Resolution is an
// ordered scan where the first successful candidate wins; there is no
// averaging across fields. A place with no usable field yields ok=false,
// which the filter evaluator treats as "cannot be excluded".
type Resolver struct{}

// NewResolver creates a new attribute resolver
func NewResolver() *Resolver {
	return &Resolver{}
}

// priceFields is the candidate order for price metadata across providers
var priceFields = []string{"price_level", "priceLevel", "price", "price_range", "priceRange"}

// capacityFields is the candidate order for capacity metadata across
// providers; tags.capacity covers the OSM tag bag
var capacityFields = []string{"capacity", "max_capacity", "maxCapacity", "max_party_size", "maxPartySize", "group_size", "groupSize"}

// PriceLevel resolves a 1-4 price level for the place. An explicit numeric
// level on the record always wins over metadata scanning.
func (r *Resolver) PriceLevel(p place.Place) (int, bool) {
	if p.PriceLevel != nil && *p.PriceLevel >= 1 && *p.PriceLevel <= 4 {
		return *p.PriceLevel, true
	}

	for _, field := range priceFields {
		if level, ok := priceFromValue(fieldValue(p.Metadata, field)); ok {
			return level, true
		}
	}

	if tags, ok := p.Metadata["tags"].(map[string]interface{}); ok {
		for _, field := range priceFields {
			if level, ok := priceFromValue(tags[field]); ok {
				return level, true
			}
		}
	}

	return 0, false
}

// Capacity resolves a positive group-size capacity for the place
func (r *Resolver) Capacity(p place.Place) (int, bool) {
	for _, field := range capacityFields {
		if c, ok := capacityFromValue(fieldValue(p.Metadata, field)); ok {
			return c, true
		}
	}

	if tags, ok := p.Metadata["tags"].(map[string]interface{}); ok {
		for _, field := range capacityFields {
			if c, ok := capacityFromValue(tags[field]); ok {
				return c, true
			}
		}
	}

	return 0, false
}

func fieldValue(metadata map[string]interface{}, field string) interface{} {
	if metadata == nil {
		return nil
	}
	return metadata[field]
}

var numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// priceFromValue converts a single candidate value to a 1-4 level. Strings
// of repeated "$" are counted; otherwise the first numeric substring is
// rounded. Values outside 1-4 are clamped rather than discarded: provider
// scales disagree, but "0" and "5" still carry ordering information.
func priceFromValue(v interface{}) (int, bool) {
	switch t := v.(type) {
	case float64:
		return clampLevel(int(math.Round(t)))
	case int:
		return clampLevel(t)
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		if dollars := strings.Count(s, "$"); dollars > 0 && dollars == len(s) {
			return clampLevel(dollars)
		}
		if m := numberPattern.FindString(s); m != "" {
			if f, err := strconv.ParseFloat(m, 64); err == nil {
				return clampLevel(int(math.Round(f)))
			}
		}
	}
	return 0, false
}

func clampLevel(level int) (int, bool) {
	if level < 1 {
		level = 1
	}
	if level > 4 {
		level = 4
	}
	return level, true
}

// capacityFromValue converts a single candidate value to a positive
// integer; non-positive and non-finite parses are discarded
func capacityFromValue(v interface{}) (int, bool) {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) || t <= 0 {
			return 0, false
		}
		return int(math.Round(t)), true
	case int:
		if t <= 0 {
			return 0, false
		}
		return t, true
	case string:
		if m := numberPattern.FindString(t); m != "" {
			if f, err := strconv.ParseFloat(m, 64); err == nil && f > 0 && !math.IsInf(f, 0) {
				return int(math.Round(f)), true
			}
		}
	}
	return 0, false
}
