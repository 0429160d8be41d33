// internal/service/hours/resolver.go

package hours

import (
	"regexp"
	"strconv"
	"strings"
)

// Segment is a normalized open interval in minutes-of-day (0-1439).
// Start > End denotes an interval that wraps past midnight; Start == End
// denotes "open all day".
type Segment struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Valid reports whether both endpoints are in range
func (s Segment) Valid() bool {
	return s.Start >= 0 && s.Start < minutesPerDay && s.End >= 0 && s.End < minutesPerDay
}

// Covers reports whether the segment covers the given minute-of-day,
// with wrap-aware arithmetic
func (s Segment) Covers(minute int) bool {
	if s.Start == s.End {
		return true
	}
	if s.End > s.Start {
		return minute >= s.Start && minute <= s.End
	}
	return minute >= s.Start || minute <= s.End
}

const minutesPerDay = 24 * 60

// Resolver normalizes the wildly inconsistent opening-hours metadata the
// three providers hand us into queryable segments. Every method tolerates
// arbitrary garbage: malformed shapes read as "no data", never as an error.
type Resolver struct{}

// NewResolver creates a new opening-hours resolver
func NewResolver() *Resolver {
	return &Resolver{}
}

// ExtractSegments collects day-independent open intervals from every known
// provider shape and merges whatever it finds. It deliberately does not stop
// at the first matching shape: providers routinely supply several
// overlapping descriptions of the same schedule.
func (r *Resolver) ExtractSegments(metadata map[string]interface{}) []Segment {
	if metadata == nil {
		return nil
	}

	var segments []Segment

	// Google Places: opening_hours.periods[].open.time / close.time
	for _, key := range []string{"opening_hours", "current_opening_hours"} {
		switch v := metadata[key].(type) {
		case map[string]interface{}:
			segments = append(segments, periodSegments(v["periods"])...)
		case string:
			segments = append(segments, textSegments(v)...)
		}
	}

	// Foursquare: hours.regular[].open/close plus a display string; some
	// feeds flatten the same entries into a bare list under "hours"
	switch v := metadata["hours"].(type) {
	case map[string]interface{}:
		segments = append(segments, entryListSegments(v["regular"])...)
		if display, ok := v["display"].(string); ok {
			segments = append(segments, textSegments(display)...)
		}
	case []interface{}:
		segments = append(segments, entryListSegments(v)...)
	case string:
		segments = append(segments, textSegments(v)...)
	}

	// Generic structured lists seen in aggregated feeds
	for _, key := range []string{"openingTimes", "opening_times"} {
		segments = append(segments, entryListSegments(metadata[key])...)
	}

	// OpenStreetMap: tags.opening_hours free text
	if tags, ok := metadata["tags"].(map[string]interface{}); ok {
		if text, ok := tags["opening_hours"].(string); ok {
			segments = append(segments, textSegments(text)...)
		}
	}

	return dedupeSegments(segments)
}

// OpenAtMinute reports whether any segment covers the given minute-of-day
func (r *Resolver) OpenAtMinute(segments []Segment, minute int) bool {
	for _, s := range segments {
		if s.Covers(minute) {
			return true
		}
	}
	return false
}

// OpenDuringWindow reports whether the place is open at any point in the
// hour window [startHour, endHour). The window is sampled hourly instead of
// intersected exactly; the sampling keeps wrap-around windows (22-2) as
// simple as plain ones. known is false when no segments exist, so callers
// can distinguish "closed" from "cannot determine".
func (r *Resolver) OpenDuringWindow(segments []Segment, startHour, endHour int) (open, known bool) {
	if len(segments) == 0 {
		return false, false
	}

	hoursInWindow := endHour - startHour
	if hoursInWindow <= 0 {
		hoursInWindow += 24
	}

	for i := 0; i < hoursInWindow; i++ {
		minute := ((startHour + i) % 24) * 60
		if r.OpenAtMinute(segments, minute) {
			return true, true
		}
	}

	return false, true
}

// OpenNowFlag scans every known provider nesting for a direct "open now"
// boolean. The first truthy flag wins and takes precedence over segment
// inference; falsy flags are skipped so a stale false from one provider
// cannot override a live true from another, and callers fall back to
// segment inference when no truthy flag exists.
func (r *Resolver) OpenNowFlag(metadata map[string]interface{}) (open, found bool) {
	if metadata == nil {
		return false, false
	}

	if b, ok := boolField(metadata, "open_now"); ok && b {
		return true, true
	}
	if b, ok := boolField(metadata, "openNow"); ok && b {
		return true, true
	}

	for _, key := range []string{"hours", "opening_hours", "current_opening_hours"} {
		nested, ok := metadata[key].(map[string]interface{})
		if !ok {
			continue
		}
		for _, flag := range []string{"open_now", "openNow", "is_open"} {
			if b, ok := boolField(nested, flag); ok && b {
				return true, true
			}
		}
	}

	return false, false
}

func boolField(m map[string]interface{}, key string) (bool, bool) {
	b, ok := m[key].(bool)
	return b, ok
}

// periodSegments reads the Google periods shape:
// [{"open":{"time":"0900"},"close":{"time":"1700"}}, ...]
func periodSegments(v interface{}) []Segment {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}

	var segments []Segment
	for _, item := range list {
		period, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		start, ok := pointTime(period["open"])
		if !ok {
			continue
		}
		end, ok := pointTime(period["close"])
		if !ok {
			continue
		}

		seg := Segment{Start: start, End: end}
		if seg.Valid() {
			segments = append(segments, seg)
		}
	}
	return segments
}

func pointTime(v interface{}) (int, bool) {
	point, ok := v.(map[string]interface{})
	if !ok {
		return 0, false
	}
	return parseTimeToken(stringify(point["time"]))
}

// entryListSegments reads generic structured entry lists, accepting the
// start/end, open/close and from/to field pairs
func entryListSegments(v interface{}) []Segment {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}

	var segments []Segment
	for _, item := range list {
		entry, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		for _, pair := range [][2]string{{"start", "end"}, {"open", "close"}, {"from", "to"}} {
			start, okStart := parseTimeToken(stringify(entry[pair[0]]))
			end, okEnd := parseTimeToken(stringify(entry[pair[1]]))
			if !okStart || !okEnd {
				continue
			}

			seg := Segment{Start: start, End: end}
			if seg.Valid() {
				segments = append(segments, seg)
			}
			break
		}
	}
	return segments
}

// rangePattern matches "HH:MM-HH:MM" style ranges in free text, including
// 3-4 digit tokens and am/pm suffixes. Bare "9-17" is intentionally not
// matched; two-digit ranges in text are more often dates than hours.
var rangePattern = regexp.MustCompile(
	`(?i)(\d{1,2}[:.]\d{2}\s*(?:am|pm)?|\d{3,4}|\d{1,2}\s*(?:am|pm))\s*[-–—]\s*` +
		`(\d{1,2}[:.]\d{2}\s*(?:am|pm)?|\d{3,4}|\d{1,2}\s*(?:am|pm))`)

// textSegments extracts every "HH:MM-HH:MM" range from a free-text value;
// segments in semicolon-delimited multi-part strings are all collected
func textSegments(text string) []Segment {
	var segments []Segment
	for _, part := range strings.Split(text, ";") {
		for _, match := range rangePattern.FindAllStringSubmatch(part, -1) {
			start, okStart := parseTimeToken(match[1])
			end, okEnd := parseTimeToken(match[2])
			if !okStart || !okEnd {
				continue
			}

			seg := Segment{Start: start, End: end}
			if seg.Valid() {
				segments = append(segments, seg)
			}
		}
	}
	return segments
}

// parseTimeToken parses a single clock token into minutes-of-day. Accepted
// forms: "HHMM"/"HMM" digit runs, "H:MM"/"H.MM", bare hours, all with an
// optional am/pm suffix. Anything else is dropped silently.
func parseTimeToken(token string) (int, bool) {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return 0, false
	}

	isPM := strings.HasSuffix(token, "pm")
	isAM := strings.HasSuffix(token, "am")
	if isPM || isAM {
		token = strings.TrimSpace(token[:len(token)-2])
	}

	var hour, minute int
	switch {
	case strings.ContainsAny(token, ":."):
		sep := ":"
		if !strings.Contains(token, ":") {
			sep = "."
		}
		parts := strings.SplitN(token, sep, 2)
		h, errH := strconv.Atoi(parts[0])
		m, errM := strconv.Atoi(parts[1])
		if errH != nil || errM != nil {
			return 0, false
		}
		hour, minute = h, m

	case len(token) >= 3 && len(token) <= 4 && isDigits(token):
		v, _ := strconv.Atoi(token)
		hour, minute = v/100, v%100

	case len(token) <= 2 && isDigits(token):
		h, _ := strconv.Atoi(token)
		hour, minute = h, 0

	default:
		return 0, false
	}

	if isPM && hour < 12 {
		hour += 12
	}
	if isAM && hour == 12 {
		hour = 0
	}
	if hour == 24 && minute == 0 {
		hour = 0
	}

	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, false
	}
	return hour*60 + minute, true
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.Itoa(int(t))
	case int:
		return strconv.Itoa(t)
	default:
		return ""
	}
}

func dedupeSegments(segments []Segment) []Segment {
	if len(segments) < 2 {
		return segments
	}

	seen := make(map[Segment]bool, len(segments))
	out := segments[:0]
	for _, s := range segments {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
