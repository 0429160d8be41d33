// internal/domain/filter/model.go

package filter

// State holds the user's active filter selections. Category order is
// irrelevant for matching but preserved for display.
type State struct {
	Categories     []string `json:"categories"`
	PriceLevels    []int    `json:"priceLevels"`
	MaxDistanceKm  *float64 `json:"maxDistanceKm,omitempty"`
	CapacityBucket string   `json:"capacityBucket,omitempty"`
	TimeWindow     string   `json:"timeWindow,omitempty"`
}

// HasCategories reports whether a category filter is active
func (s State) HasCategories() bool { return len(s.Categories) > 0 }

// HasPriceLevels reports whether a price filter is active
func (s State) HasPriceLevels() bool { return len(s.PriceLevels) > 0 }

// PriceLevelSelected reports whether the given level is in the selected set
func (s State) PriceLevelSelected(level int) bool {
	for _, l := range s.PriceLevels {
		if l == level {
			return true
		}
	}
	return false
}

// Category maps a UI-facing category key to the provider query categories
// it covers and the tag filters it requires. Supplied externally and read
// by the evaluator only.
type Category struct {
	Key             string   `json:"key"`
	Label           string   `json:"label"`
	QueryCategories []string `json:"queryCategories"`
	TagFilters      []string `json:"tagFilters,omitempty"`
}

// Catalog is the externally supplied category configuration keyed by
// category key
type Catalog map[string]Category

// CapacityBucket is a named group-size range; either bound may be absent
type CapacityBucket struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Min   *int   `json:"min,omitempty"`
	Max   *int   `json:"max,omitempty"`
}

// TimeWindow is a named hour range; EndHour < StartHour wraps past midnight
type TimeWindow struct {
	Key       string `json:"key"`
	Label     string `json:"label"`
	StartHour int    `json:"startHour"`
	EndHour   int    `json:"endHour"`
}

// Reserved time-window keys
const (
	WindowAny     = "any"
	WindowOpenNow = "open_now"
)

// CapacityAny is the capacity bucket key that matches everything
const CapacityAny = "any"

func intPtr(v int) *int { return &v }

// CapacityBuckets is the fixed set of selectable group-size ranges
var CapacityBuckets = map[string]CapacityBucket{
	"2-4":   {Key: "2-4", Label: "2-4 people", Min: intPtr(2), Max: intPtr(4)},
	"5-10":  {Key: "5-10", Label: "5-10 people", Min: intPtr(5), Max: intPtr(10)},
	"11-25": {Key: "11-25", Label: "11-25 people", Min: intPtr(11), Max: intPtr(25)},
	"26+":   {Key: "26+", Label: "26+ people", Min: intPtr(26)},
}

// TimeWindows is the fixed set of named hour ranges. late_night wraps past
// midnight.
var TimeWindows = map[string]TimeWindow{
	"morning":    {Key: "morning", Label: "Morning", StartHour: 6, EndHour: 12},
	"afternoon":  {Key: "afternoon", Label: "Afternoon", StartHour: 12, EndHour: 17},
	"evening":    {Key: "evening", Label: "Evening", StartHour: 17, EndHour: 22},
	"late_night": {Key: "late_night", Label: "Late night", StartHour: 22, EndHour: 2},
}
