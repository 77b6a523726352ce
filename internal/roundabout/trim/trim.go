// Package trim implements C7, the connecting-road trimmer (spec.md §4.7):
// it removes the portion of each non-roundabout highway that overlaps a
// roundabout ring, so only the genuine approach/departure segment survives.
package trim

import (
	"math"

	"github.com/MeKo-Tech/roadgeom/internal/geo"
	"github.com/MeKo-Tech/roadgeom/internal/osm"
)

const defaultOverlapToleranceMeters = 2.0

// Options configures the trimmer's overlap tolerance.
type Options struct {
	OverlapToleranceMeters float64
}

func DefaultOptions() Options {
	return Options{OverlapToleranceMeters: defaultOverlapToleranceMeters}
}

// Trim mutates every non-roundabout highway feature in result that overlaps
// one of the given roundabouts, per the decision tree in spec.md §4.7, and
// updates each roundabout's Connections with the new cut points.
func Trim(result *osm.OsmQueryResult, roundabouts []*osm.OsmRoundabout, opts Options) {
	if opts.OverlapToleranceMeters <= 0 {
		opts.OverlapToleranceMeters = defaultOverlapToleranceMeters
	}

	ringCoordSets := make([]map[geo.Coordinate]bool, len(roundabouts))
	for i, rb := range roundabouts {
		set := make(map[geo.Coordinate]bool, len(rb.Ring))
		for _, c := range rb.Ring {
			set[rounded(c)] = true
		}
		ringCoordSets[i] = set
	}

	kept := make([]*osm.OsmFeature, 0, len(result.Features))
	for _, f := range result.Features {
		if f.Kind != osm.LineString || f.IsRoundabout() || f.Tag("highway") == "" {
			kept = append(kept, f)
			continue
		}

		rbIdx := overlappingRoundabout(f, roundabouts, ringCoordSets, opts.OverlapToleranceMeters)
		if rbIdx < 0 {
			kept = append(kept, f)
			continue
		}

		mask := onRingMask(f, ringCoordSets[rbIdx], roundabouts[rbIdx], opts.OverlapToleranceMeters)
		start, count, deleteFeature := trimRange(mask)
		if deleteFeature {
			removeConnectionsFor(roundabouts[rbIdx], f.ID)
			continue
		}

		f.Coordinates = f.Coordinates[start : start+count]
		if len(f.NodeIDs) > 0 {
			end := start + count
			if end > len(f.NodeIDs) {
				end = len(f.NodeIDs)
			}
			if start < len(f.NodeIDs) {
				f.NodeIDs = f.NodeIDs[start:end]
			} else {
				f.NodeIDs = nil
			}
		}
		updateConnectionsFor(roundabouts[rbIdx], f, start, count)
		kept = append(kept, f)
	}
	result.Features = kept
}

func removeConnectionsFor(rb *osm.OsmRoundabout, wayID int64) {
	out := rb.Connections[:0]
	for _, c := range rb.Connections {
		if c.ConnectingWayID != wayID {
			out = append(out, c)
		}
	}
	rb.Connections = out
}

// updateConnectionsFor shifts a trimmed feature's connection's FeatureIndex
// into the new (start, count) window, dropping connections that fell
// outside it, and recording a fresh cut-point connection when none remain.
func updateConnectionsFor(rb *osm.OsmRoundabout, f *osm.OsmFeature, start, count int) {
	var out []osm.RoundaboutConnection
	survived := false
	for _, c := range rb.Connections {
		if c.ConnectingWayID != f.ID {
			out = append(out, c)
			continue
		}
		newIdx := c.FeatureIndex - start
		if newIdx < 0 || newIdx >= count {
			continue
		}
		c.FeatureIndex = newIdx
		out = append(out, c)
		survived = true
	}
	rb.Connections = out

	if !survived && len(f.Coordinates) > 0 {
		cutIdx := 0
		if start > 0 {
			cutIdx = count - 1
		}
		rb.Connections = append(rb.Connections, osm.RoundaboutConnection{
			ConnectingWayID: f.ID,
			Point:           f.Coordinates[cutIdx],
			FeatureIndex:    cutIdx,
			AngleDegrees:    geo.AngleDegrees(rb.Center, f.Coordinates[cutIdx]),
		})
	}
}

func rounded(c geo.Coordinate) geo.Coordinate {
	const scale = 1e7 // ~1cm precision at the equator
	return geo.Coordinate{
		Lon: math.Round(c.Lon*scale) / scale,
		Lat: math.Round(c.Lat*scale) / scale,
	}
}

// overlappingRoundabout returns the index of the roundabout f overlaps, or
// -1 if it touches none (closest centroid wins when several could match).
func overlappingRoundabout(f *osm.OsmFeature, roundabouts []*osm.OsmRoundabout, ringCoordSets []map[geo.Coordinate]bool, toleranceMeters float64) int {
	best := -1
	bestOnRing := 0
	for i, rb := range roundabouts {
		mask := onRingMask(f, ringCoordSets[i], rb, toleranceMeters)
		count := 0
		for _, b := range mask {
			if b {
				count++
			}
		}
		if count > bestOnRing {
			bestOnRing = count
			best = i
		}
	}
	return best
}

// onRingMask marks each coordinate of f as on-ring if it rounds to a ring
// coordinate, or is within toleranceMeters of the ring radius from centroid.
func onRingMask(f *osm.OsmFeature, ringSet map[geo.Coordinate]bool, rb *osm.OsmRoundabout, toleranceMeters float64) []bool {
	perLon, perLat := geo.MetersPerDegreeAt(rb.Center.Lat)
	mask := make([]bool, len(f.Coordinates))
	for i, c := range f.Coordinates {
		if ringSet[rounded(c)] {
			mask[i] = true
			continue
		}
		dx := (c.Lon - rb.Center.Lon) * perLon
		dy := (c.Lat - rb.Center.Lat) * perLat
		dist := math.Hypot(dx, dy)
		if math.Abs(dist-rb.RadiusMeters) <= toleranceMeters {
			mask[i] = true
		}
	}
	return mask
}

// trimRange applies the spec.md §4.7 decision tree to an on-ring mask,
// returning the (start, count) slice to keep, or deleteFeature=true.
func trimRange(mask []bool) (start, count int, deleteFeature bool) {
	n := len(mask)
	onCount := 0
	for _, b := range mask {
		if b {
			onCount++
		}
	}

	if onCount == 0 {
		return 0, n, false
	}
	if onCount == n {
		return 0, 0, true
	}

	transitions := transitionList(mask)

	if len(transitions) == 1 {
		t := transitions[0]
		if !mask[0] && mask[t.at] {
			// single off->on transition: keep prefix through entry index
			return 0, t.at + 1, false
		}
		if mask[0] && !mask[t.at] {
			// single on->off transition: keep suffix from exit index
			return t.at, n - t.at, false
		}
	}

	if len(transitions) == 0 {
		// starts/ends on ring with no transitions impossible here since
		// onCount is neither 0 nor n; fall through to longest-off-run.
	}

	if len(transitions) >= 2 {
		preEntry := firstOffRun(mask)
		postExit := lastOffRun(mask)
		if preEntry.count >= postExit.count {
			return preEntry.start, preEntry.count, preEntry.count == 0
		}
		return postExit.start, postExit.count, postExit.count == 0
	}

	run := longestOffRun(mask)
	return run.start, run.count, run.count == 0
}

type transition struct{ at int }

// transitionList returns the index of each position where mask flips value
// relative to the previous position.
func transitionList(mask []bool) []transition {
	var out []transition
	for i := 1; i < len(mask); i++ {
		if mask[i] != mask[i-1] {
			out = append(out, transition{at: i})
		}
	}
	return out
}

type run struct {
	start, count int
}

func firstOffRun(mask []bool) run {
	for i, b := range mask {
		if !b {
			j := i
			for j < len(mask) && !mask[j] {
				j++
			}
			return run{start: i, count: j - i}
		}
	}
	return run{}
}

func lastOffRun(mask []bool) run {
	for i := len(mask) - 1; i >= 0; i-- {
		if !mask[i] {
			j := i
			for j >= 0 && !mask[j] {
				j--
			}
			return run{start: j + 1, count: i - j}
		}
	}
	return run{}
}

func longestOffRun(mask []bool) run {
	best := run{}
	i := 0
	for i < len(mask) {
		if mask[i] {
			i++
			continue
		}
		j := i
		for j < len(mask) && !mask[j] {
			j++
		}
		if j-i > best.count {
			best = run{start: i, count: j - i}
		}
		i = j
	}
	return best
}
