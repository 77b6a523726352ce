// Package detect implements C6, the roundabout detector (spec.md §4.6): it
// groups junction=roundabout ways into physical roundabouts, assembles each
// group into a closed ring, and records where other highways touch it.
//
// Known limitation: direction inference for a detected connection trusts
// that the parser preserved the OSM way's original drawing order (first
// index = start, last index = end). Cropping at the query boundary may
// invalidate that assumption; this is accepted as-is (spec.md Open
// Questions §3).
package detect

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/MeKo-Tech/roadgeom/internal/geo"
	"github.com/MeKo-Tech/roadgeom/internal/osm"
)

// roundaboutNamespace seeds the deterministic synthetic IDs assembleRing's
// caller derives for rings with no single OSM relation ID of their own.
var roundaboutNamespace = uuid.MustParse("6f7e9c2a-6d9a-4b8a-9b0b-6d6f6164726f")

const coordinateTolerance = 1e-6 // degrees, ~0.1m at the equator

// Detect finds every physical roundabout in result and records its
// connections to the surrounding highway network.
func Detect(result *osm.OsmQueryResult) []*osm.OsmRoundabout {
	var ringWays []*osm.OsmFeature
	for _, f := range result.Features {
		if f.Kind == osm.LineString && f.IsRoundabout() {
			ringWays = append(ringWays, f)
		}
	}
	if len(ringWays) == 0 {
		return nil
	}

	groups := groupByEndpoint(ringWays)

	var roundabouts []*osm.OsmRoundabout
	for _, group := range groups {
		rb := assembleRing(syntheticRingID(group), group)
		if rb == nil {
			continue
		}
		detectConnections(rb, result)
		roundabouts = append(roundabouts, rb)
	}
	return roundabouts
}

// syntheticRingID derives a stable int64 ID for a roundabout from its sorted
// member way IDs: a ring assembled from several junction=roundabout ways has
// no single OSM relation ID of its own (spec.md §3), and a plain slice-index
// counter would reassign IDs if the Overpass result's way order ever shifts
// between runs. uuid.NewSHA1 over the sorted ID list is order-independent and
// deterministic, so the same physical roundabout gets the same synthetic ID
// every time.
func syntheticRingID(group []*osm.OsmFeature) int64 {
	ids := make([]int64, len(group))
	for i, f := range group {
		ids[i] = f.ID
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	name := make([]byte, 8*len(ids))
	for i, id := range ids {
		binary.BigEndian.PutUint64(name[i*8:], uint64(id))
	}

	id := uuid.NewSHA1(roundaboutNamespace, name)
	return int64(binary.BigEndian.Uint64(id[:8]) &^ (1 << 63))
}

// groupByEndpoint partitions ringWays into connected components under the
// "shares a within-tolerance endpoint" relation (transitive closure, via
// union-find).
func groupByEndpoint(ways []*osm.OsmFeature) [][]*osm.OsmFeature {
	parent := make([]int, len(ways))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}

	endpoints := func(f *osm.OsmFeature) (geo.Coordinate, geo.Coordinate) {
		return f.Coordinates[0], f.Coordinates[len(f.Coordinates)-1]
	}

	for i := 0; i < len(ways); i++ {
		ai, bi := endpoints(ways[i])
		for j := i + 1; j < len(ways); j++ {
			aj, bj := endpoints(ways[j])
			if ai.WithinTolerance(aj, coordinateTolerance) ||
				ai.WithinTolerance(bj, coordinateTolerance) ||
				bi.WithinTolerance(aj, coordinateTolerance) ||
				bi.WithinTolerance(bj, coordinateTolerance) {
				union(i, j)
			}
		}
	}

	groupsByRoot := make(map[int][]*osm.OsmFeature)
	var order []int
	for i, f := range ways {
		r := find(i)
		if _, ok := groupsByRoot[r]; !ok {
			order = append(order, r)
		}
		groupsByRoot[r] = append(groupsByRoot[r], f)
	}

	out := make([][]*osm.OsmFeature, 0, len(groupsByRoot))
	for _, r := range order {
		out = append(out, groupsByRoot[r])
	}
	return out
}

// assembleRing builds one closed ring by starting with the longest way and
// repeatedly attaching any remaining way whose endpoint matches the ring's
// current start or end (possibly reversed).
func assembleRing(id int64, group []*osm.OsmFeature) *osm.OsmRoundabout {
	remaining := append([]*osm.OsmFeature(nil), group...)
	sort.Slice(remaining, func(i, j int) bool {
		return wayLength(remaining[i]) > wayLength(remaining[j])
	})

	first := remaining[0]
	remaining = remaining[1:]

	ring := append([]geo.Coordinate(nil), first.Coordinates...)
	wayIDs := []int64{first.ID}
	tags := copyTags(first.Tags)

	for len(remaining) > 0 {
		attachedIdx := -1

		for i, f := range remaining {
			coords := f.Coordinates
			start, end := coords[0], coords[len(coords)-1]
			ringStart, ringEnd := ring[0], ring[len(ring)-1]

			switch {
			case ringEnd.WithinTolerance(start, coordinateTolerance):
				attachedIdx = i
				ring = append(ring, coords[1:]...)
			case ringEnd.WithinTolerance(end, coordinateTolerance):
				rev := reverseCoords(coords)
				attachedIdx = i
				ring = append(ring, rev[1:]...)
			case ringStart.WithinTolerance(end, coordinateTolerance):
				attachedIdx = i
				ring = append(append([]geo.Coordinate(nil), coords[:len(coords)-1]...), ring...)
			case ringStart.WithinTolerance(start, coordinateTolerance):
				rev := reverseCoords(coords)
				attachedIdx = i
				ring = append(append([]geo.Coordinate(nil), rev[:len(rev)-1]...), ring...)
			default:
				continue
			}
			break
		}

		if attachedIdx < 0 {
			break // no remaining way attaches; assemble what we have
		}
		wayIDs = append(wayIDs, remaining[attachedIdx].ID)
		remaining = append(remaining[:attachedIdx], remaining[attachedIdx+1:]...)
	}

	if len(ring) < 3 {
		return nil
	}

	if !ring[0].WithinTolerance(ring[len(ring)-1], coordinateTolerance) {
		ring = append(ring, ring[0]) // force closure
	}

	centroid, radius := centroidAndRadius(ring)
	features := append([]*osm.OsmFeature(nil), group...)

	return &osm.OsmRoundabout{
		ID:           id,
		WayIDs:       wayIDs,
		Ring:         ring,
		Center:       centroid,
		RadiusMeters: radius,
		Tags:         tags,
		Features:     features,
	}
}

func wayLength(f *osm.OsmFeature) float64 {
	total := 0.0
	for i := 1; i < len(f.Coordinates); i++ {
		a, b := f.Coordinates[i-1], f.Coordinates[i]
		total += math.Hypot(b.Lon-a.Lon, b.Lat-a.Lat)
	}
	return total
}

func reverseCoords(in []geo.Coordinate) []geo.Coordinate {
	out := make([]geo.Coordinate, len(in))
	for i, c := range in {
		out[len(in)-1-i] = c
	}
	return out
}

func copyTags(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// centroidAndRadius computes the arithmetic-mean centroid (excluding the
// duplicate closing point) and the average distance from centroid to ring
// points, converted to meters via the centroid latitude's local scale.
func centroidAndRadius(ring []geo.Coordinate) (geo.Coordinate, float64) {
	n := len(ring) - 1 // exclude duplicate closing point
	if n <= 0 {
		n = len(ring)
	}
	var sumLon, sumLat float64
	for i := 0; i < n; i++ {
		sumLon += ring[i].Lon
		sumLat += ring[i].Lat
	}
	centroid := geo.Coordinate{Lon: sumLon / float64(n), Lat: sumLat / float64(n)}

	perLon, perLat := geo.MetersPerDegreeAt(centroid.Lat)
	var sumR float64
	for i := 0; i < n; i++ {
		dx := (ring[i].Lon - centroid.Lon) * perLon
		dy := (ring[i].Lat - centroid.Lat) * perLat
		sumR += math.Hypot(dx, dy)
	}
	return centroid, sumR / float64(n)
}

// detectConnections scans every non-roundabout highway feature's
// coordinates for points within tolerance of a ring coordinate.
func detectConnections(rb *osm.OsmRoundabout, result *osm.OsmQueryResult) {
	type key struct {
		wayID     int64
		ringIndex int
	}
	seen := make(map[key]bool)

	for _, f := range result.Features {
		if f.Kind != osm.LineString || f.IsRoundabout() || f.Tag("highway") == "" {
			continue
		}
		for idx, c := range f.Coordinates {
			ringIdx := nearestRingIndex(rb.Ring, c)
			if ringIdx < 0 {
				continue
			}
			k := key{f.ID, ringIdx}
			if seen[k] {
				continue
			}
			seen[k] = true

			direction := osm.Bidirectional
			oneway := f.Tag("oneway")
			switch {
			case idx == 0 && (oneway == "yes" || oneway == "true" || oneway == "1"):
				direction = osm.Exit
			case idx == len(f.Coordinates)-1 && (oneway == "yes" || oneway == "true" || oneway == "1"):
				direction = osm.Entry
			case idx == 0 && oneway == "-1":
				direction = osm.Entry
			case idx == len(f.Coordinates)-1 && oneway == "-1":
				direction = osm.Exit
			}

			rb.Connections = append(rb.Connections, osm.RoundaboutConnection{
				ConnectingWayID: f.ID,
				Point:           c,
				RingIndex:       ringIdx,
				AngleDegrees:    geo.AngleDegrees(rb.Center, c),
				Direction:       direction,
				Feature:         f,
				FeatureIndex:    idx,
			})
		}
	}

	sort.Slice(rb.Connections, func(i, j int) bool {
		return rb.Connections[i].AngleDegrees < rb.Connections[j].AngleDegrees
	})
}

// nearestRingIndex returns the index of the first ring coordinate within
// tolerance of c, or -1.
func nearestRingIndex(ring []geo.Coordinate, c geo.Coordinate) int {
	for i, r := range ring {
		if r.WithinTolerance(c, coordinateTolerance) {
			return i
		}
	}
	return -1
}

