// Package stub implements C8, the cycleway-stub resolver (spec.md §4.8): it
// folds short cycleway/footway/path stubs that touch a roundabout ring into
// the nearest "real" parent road, so cyclist/pedestrian stubs don't produce
// spurious extra roundabout connections.
package stub

import (
	"math"

	"github.com/MeKo-Tech/roadgeom/internal/geo"
	"github.com/MeKo-Tech/roadgeom/internal/osm"
)

const (
	maxStubLengthMeters = 100.0
	coordinateTolerance = 1e-6
	defaultPriority     = 35
)

// highwayPriority orders candidate parent roads; spec.md names only the
// endpoints of the scale (motorway=100, trunk=90, track=30) and a default
// of 35 for anything unlisted — the intermediate steps below fill the named
// gap at a roughly constant stride, recorded as an explicit decision in
// DESIGN.md.
var highwayPriority = map[string]int{
	"motorway":      100,
	"motorway_link": 100,
	"trunk":         90,
	"trunk_link":    90,
	"primary":       80,
	"primary_link":  80,
	"secondary":     70,
	"secondary_link": 70,
	"tertiary":      60,
	"tertiary_link": 60,
	"unclassified":  50,
	"residential":   45,
	"living_street": 42,
	"service":       40,
	"track":         30,
}

var excludedParentTypes = map[string]bool{
	"cycleway": true, "footway": true, "path": true,
	"steps": true, "bridleway": true, "pedestrian": true,
}

// stubInfo is one candidate stub pending a parent-road fold.
type stubInfo struct {
	feature        *osm.OsmFeature
	onRingCoord    geo.Coordinate
	onRingNode     int64
	hasNode        bool
	divergence     geo.Coordinate
	divergenceNode int64
	hasDivNode     bool
	atStart        bool // true if index 0 is the on-ring end
}

// Resolve folds eligible stubs into parent roads for each roundabout,
// mutating result.Features (removing consumed stubs, extending the chosen
// parent) and rb.Connections.
func Resolve(result *osm.OsmQueryResult, roundabouts []*osm.OsmRoundabout) {
	for _, rb := range roundabouts {
		resolveOne(result, rb)
	}
}

func resolveOne(result *osm.OsmQueryResult, rb *osm.OsmRoundabout) {
	ringSet := make(map[geo.Coordinate]bool, len(rb.Ring))
	for _, c := range rb.Ring {
		ringSet[rounded(c)] = true
	}

	groups := make(map[geo.Coordinate][]stubInfo)

	for _, f := range result.Features {
		if f.Kind != osm.LineString || !isStubHighway(f.Tag("highway")) {
			continue
		}
		if featureLength(f) >= maxStubLengthMeters {
			continue
		}
		startOnRing := ringSet[rounded(f.Coordinates[0])]
		endOnRing := ringSet[rounded(f.Coordinates[len(f.Coordinates)-1])]
		if startOnRing == endOnRing {
			continue // need exactly one endpoint on ring
		}

		info := stubInfo{feature: f, atStart: startOnRing}
		if startOnRing {
			info.onRingCoord = f.Coordinates[0]
			info.divergence = f.Coordinates[len(f.Coordinates)-1]
			if len(f.NodeIDs) > 0 && f.NodeIDs[0] != 0 {
				info.onRingNode, info.hasNode = f.NodeIDs[0], true
			}
			if n, ok := f.EndNodeID(); ok {
				info.divergenceNode, info.hasDivNode = n, true
			}
		} else {
			info.onRingCoord = f.Coordinates[len(f.Coordinates)-1]
			info.divergence = f.Coordinates[0]
			if n, ok := f.EndNodeID(); ok {
				info.onRingNode, info.hasNode = n, true
			}
			if len(f.NodeIDs) > 0 && f.NodeIDs[0] != 0 {
				info.divergenceNode, info.hasDivNode = f.NodeIDs[0], true
			}
		}
		groups[rounded(info.divergence)] = append(groups[rounded(info.divergence)], info)
	}

	consumed := make(map[int64]bool)
	for divergence, stubs := range groups {
		parent, parentAtStart := findParentRoad(result, divergence, stubs[0].feature.ID)
		if parent == nil {
			continue
		}

		var ringPoint geo.Coordinate
		var ringNode int64
		var hasRingNode bool
		if len(stubs) == 1 {
			ringPoint = stubs[0].onRingCoord
			ringNode, hasRingNode = stubs[0].onRingNode, stubs[0].hasNode
		} else {
			ringPoint, ringNode, hasRingNode = circularMeanRingPoint(rb, stubs)
		}

		if parentAtStart {
			parent.Coordinates = append([]geo.Coordinate{ringPoint}, parent.Coordinates...)
			if hasRingNode {
				parent.NodeIDs = append([]int64{ringNode}, parent.NodeIDs...)
			}
		} else {
			parent.Coordinates = append(parent.Coordinates, ringPoint)
			if hasRingNode {
				parent.NodeIDs = append(parent.NodeIDs, ringNode)
			}
		}

		for _, s := range stubs {
			consumed[s.feature.ID] = true
		}

		updateConnectionsAfterStubFold(rb, stubs, parent, ringPoint)
	}

	if len(consumed) > 0 {
		kept := result.Features[:0]
		for _, f := range result.Features {
			if !consumed[f.ID] {
				kept = append(kept, f)
			}
		}
		result.Features = kept
	}
}

func updateConnectionsAfterStubFold(rb *osm.OsmRoundabout, stubs []stubInfo, parent *osm.OsmFeature, ringPoint geo.Coordinate) {
	stubIDs := make(map[int64]bool, len(stubs))
	for _, s := range stubs {
		stubIDs[s.feature.ID] = true
	}

	out := rb.Connections[:0]
	for _, c := range rb.Connections {
		if stubIDs[c.ConnectingWayID] {
			continue
		}
		out = append(out, c)
	}
	out = append(out, osm.RoundaboutConnection{
		ConnectingWayID: parent.ID,
		Point:           ringPoint,
		AngleDegrees:    geo.AngleDegrees(rb.Center, ringPoint),
		Feature:         parent,
	})
	rb.Connections = out
}

func isStubHighway(tag string) bool {
	switch tag {
	case "cycleway", "footway", "path":
		return true
	default:
		return false
	}
}

func rounded(c geo.Coordinate) geo.Coordinate {
	const scale = 1e7
	return geo.Coordinate{Lon: math.Round(c.Lon*scale) / scale, Lat: math.Round(c.Lat*scale) / scale}
}

func featureLength(f *osm.OsmFeature) float64 {
	if len(f.Coordinates) < 2 {
		return 0
	}
	perLon, perLat := geo.MetersPerDegreeAt(f.Coordinates[0].Lat)
	total := 0.0
	for i := 1; i < len(f.Coordinates); i++ {
		a, b := f.Coordinates[i-1], f.Coordinates[i]
		dx := (b.Lon - a.Lon) * perLon
		dy := (b.Lat - a.Lat) * perLat
		total += math.Hypot(dx, dy)
	}
	return total
}

// findParentRoad selects, among highways with an endpoint at divergence
// (excluding stub types and roundabouts), the one with the highest highway
// priority. Returns the feature and whether its matching endpoint is index 0.
func findParentRoad(result *osm.OsmQueryResult, divergence geo.Coordinate, excludeID int64) (*osm.OsmFeature, bool) {
	var best *osm.OsmFeature
	bestAtStart := false
	bestPriority := -1

	for _, f := range result.Features {
		if f.Kind != osm.LineString || f.ID == excludeID || f.IsRoundabout() {
			continue
		}
		hw := f.Tag("highway")
		if hw == "" || excludedParentTypes[hw] {
			continue
		}

		atStart := rounded(f.Coordinates[0]) == rounded(divergence)
		atEnd := rounded(f.Coordinates[len(f.Coordinates)-1]) == rounded(divergence)
		if !atStart && !atEnd {
			continue
		}

		priority := defaultPriority
		if p, ok := highwayPriority[hw]; ok {
			priority = p
		}
		if priority > bestPriority {
			bestPriority = priority
			best = f
			bestAtStart = atStart
		}
	}

	return best, bestAtStart
}

// circularMeanRingPoint computes the circular mean of the stubs' ring
// angles around the centroid, then returns the closest ring coordinate to
// that mean angle and its node id.
func circularMeanRingPoint(rb *osm.OsmRoundabout, stubs []stubInfo) (geo.Coordinate, int64, bool) {
	var sumSin, sumCos float64
	for _, s := range stubs {
		angle := geo.AngleDegrees(rb.Center, s.onRingCoord) * math.Pi / 180
		sumSin += math.Sin(angle)
		sumCos += math.Cos(angle)
	}
	meanAngle := math.Atan2(sumSin, sumCos) * 180 / math.Pi
	if meanAngle < 0 {
		meanAngle += 360
	}

	bestIdx := 0
	bestDelta := math.Inf(1)
	for i, c := range rb.Ring {
		a := geo.AngleDegrees(rb.Center, c)
		delta := math.Abs(a - meanAngle)
		if delta > 180 {
			delta = 360 - delta
		}
		if delta < bestDelta {
			bestDelta = delta
			bestIdx = i
		}
	}

	point := rb.Ring[bestIdx]
	for _, f := range rb.Features {
		for j, c := range f.Coordinates {
			if rounded(c) == rounded(point) && j < len(f.NodeIDs) && f.NodeIDs[j] != 0 {
				return point, f.NodeIDs[j], true
			}
		}
	}
	return point, 0, false
}
