// internal/service/cluster/spiderfy.go

package cluster

import (
	"math"
	"sort"

	"mapscout/internal/domain/place"
	"mapscout/internal/domain/view"
)

// spiderRadiusFactor scales the viewport latitude span into a spider ring
// radius before clamping
const spiderRadiusFactor = 0.15

// spiderfy spreads a small co-located bucket into individual markers on a
// ring around the centroid. Members are sorted by place ID first so the
// arrangement is stable across passes; nondeterministic ordering here shows
// up as marker flicker on every recompute.
func (b *Bucketer) spiderfy(members []place.Place, centroid place.Coordinate, region view.ViewportRegion) []view.RenderedPlace {
	ordered := make([]place.Place, len(members))
	copy(ordered, members)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].ID < ordered[j].ID
	})

	radius := region.LatDelta * spiderRadiusFactor
	if radius < b.config.MinSpiderRadiusDeg {
		radius = b.config.MinSpiderRadiusDeg
	}
	if radius > b.config.MaxSpiderRadiusDeg {
		radius = b.config.MaxSpiderRadiusDeg
	}

	rendered := make([]view.RenderedPlace, 0, len(ordered))
	for i, p := range ordered {
		angle := 2 * math.Pi * float64(i) / float64(len(ordered))
		rendered = append(rendered, view.RenderedPlace{
			Place: p,
			Coordinate: place.Coordinate{
				Lat: centroid.Lat + radius*math.Sin(angle),
				Lng: centroid.Lng + radius*math.Cos(angle),
			},
		})
	}

	return rendered
}
