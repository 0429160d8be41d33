// internal/service/filter/summary.go

package filter

import (
	"fmt"
	"strings"

	"mapscout/internal/domain/filter"
)

// maxSummaryLabels caps how many filter labels appear before the
// remainder collapses into a "+N" suffix
const maxSummaryLabels = 3

const summarySeparator = " · "

// Summary builds the human-readable active-filter line shown above the
// list view, e.g. "Padel · $$ · Evening +1"
func Summary(state filter.State, catalog filter.Catalog) string {
	var labels []string

	for _, key := range state.Categories {
		if cfg, ok := catalog[key]; ok && cfg.Label != "" {
			labels = append(labels, cfg.Label)
		} else {
			labels = append(labels, key)
		}
	}

	if state.HasPriceLevels() {
		labels = append(labels, priceLabel(state.PriceLevels))
	}

	if state.MaxDistanceKm != nil {
		labels = append(labels, fmt.Sprintf("Within %g km", *state.MaxDistanceKm))
	}

	if state.CapacityBucket != "" && state.CapacityBucket != filter.CapacityAny {
		if bucket, ok := filter.CapacityBuckets[state.CapacityBucket]; ok {
			labels = append(labels, bucket.Label)
		}
	}

	switch {
	case state.TimeWindow == filter.WindowOpenNow:
		labels = append(labels, "Open now")
	case state.TimeWindow != "" && state.TimeWindow != filter.WindowAny:
		if window, ok := filter.TimeWindows[state.TimeWindow]; ok {
			labels = append(labels, window.Label)
		}
	}

	if len(labels) == 0 {
		return ""
	}

	if len(labels) <= maxSummaryLabels {
		return strings.Join(labels, summarySeparator)
	}

	truncated := strings.Join(labels[:maxSummaryLabels], summarySeparator)
	return fmt.Sprintf("%s +%d", truncated, len(labels)-maxSummaryLabels)
}

// priceLabel renders the cheapest selected level as a dollar run; a single
// run reads better than enumerating every selected level
func priceLabel(levels []int) string {
	min := levels[0]
	for _, l := range levels[1:] {
		if l < min {
			min = l
		}
	}
	if min < 1 {
		min = 1
	}
	if min > 4 {
		min = 4
	}
	return strings.Repeat("$", min)
}
