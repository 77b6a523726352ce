// Package connect implements C5, the angle-first greedy path connector
// (spec.md §4.5): repeatedly merges the single best-scoring pair of
// remaining fragments until no candidate exists or the merge cap is hit.
package connect

import (
	"math"

	"github.com/MeKo-Tech/roadgeom/internal/geo"
	"github.com/MeKo-Tech/roadgeom/internal/roadnet"
)

const (
	maxMerges             = 10000
	directionWalkMeters   = 30.0
	junctionValence       = 3
	deflectionDotMin      = 0 // at junctions, require straighter than a right angle
	sharedNodeScore       = 0.5
	sharedRouteScore      = 0.5
	reversalPenalty       = 0.001
	proximityToleranceSq  = 1.0 // 1m, matches EndpointJoinToleranceMeters default^2 via Config override upstream
)

// endKind names which endpoint of a path is involved in a candidate merge.
type endKind int

const (
	endStart endKind = iota
	endEnd
)

// combination enumerates the four endpoint pairings C5 scores per path pair.
type combination struct {
	name   string
	p1End  endKind
	p2End  endKind
}

var combinations = []combination{
	{"EndStart", endEnd, endStart},
	{"EndEnd", endEnd, endEnd},
	{"StartEnd", endStart, endEnd},
	{"StartStart", endStart, endStart},
}

// highwayGroup maps a highway tag value to its compatibility group; ways in
// different non-empty groups never merge.
var highwayGroup = map[string]string{
	"motorway": "motorway", "motorway_link": "motorway",
	"trunk": "trunk", "trunk_link": "trunk",
	"primary": "primary", "primary_link": "primary",
	"secondary": "secondary", "secondary_link": "secondary",
	"tertiary": "tertiary", "tertiary_link": "tertiary",
	"residential":    "residential",
	"unclassified":   "unclassified",
	"living_street":  "living_street",
	"service":        "service",
	"track":          "track",
	"path":           "track",
	"footway":        "footway",
	"cycleway":       "cycleway",
	"bridleway":      "bridleway",
	"steps":          "steps",
	"pedestrian":     "pedestrian",
}

// Options configures the connector. EndpointJoinToleranceMeters is the
// proximity fallback tolerance when node IDs are unavailable (default 1m).
type Options struct {
	EndpointJoinToleranceMeters float64
}

func DefaultOptions() Options {
	return Options{EndpointJoinToleranceMeters: 1.0}
}

// Connect runs the angle-first merge loop over paths until no valid
// candidate remains or maxMerges is reached.
func Connect(paths []*roadnet.PathWithMetadata, opts Options) []*roadnet.PathWithMetadata {
	if opts.EndpointJoinToleranceMeters <= 0 {
		opts.EndpointJoinToleranceMeters = 1.0
	}
	tolSq := opts.EndpointJoinToleranceMeters * opts.EndpointJoinToleranceMeters

	active := make([]*roadnet.PathWithMetadata, 0, len(paths))
	for _, p := range paths {
		if len(p.Points) >= 2 {
			active = append(active, p)
		}
	}

	for merges := 0; merges < maxMerges; merges++ {
		valence := buildValenceMap(active)
		best, bestScore, bi, bj, found := bestCandidate(active, valence, tolSq)
		if !found || bestScore <= math.Inf(-1) {
			break
		}
		_ = bi
		_ = bj
		active = replaceWithMerge(active, bi, bj, best)
	}

	return active
}

type candidate struct {
	merged *roadnet.PathWithMetadata
}

// bestCandidate scans every unordered pair and every endpoint combination,
// returning the single highest-scoring merge.
func bestCandidate(paths []*roadnet.PathWithMetadata, valence map[int64]int, tolSq float64) (*roadnet.PathWithMetadata, float64, int, int, bool) {
	bestScore := math.Inf(-1)
	var bestMerged *roadnet.PathWithMetadata
	bestI, bestJ := -1, -1
	found := false

	for i := 0; i < len(paths); i++ {
		p1 := paths[i]
		if p1.IsRoundabout() {
			continue
		}
		for j := i + 1; j < len(paths); j++ {
			p2 := paths[j]
			if p2.IsRoundabout() {
				continue
			}
			if !compatible(p1, p2) {
				continue
			}

			for _, combo := range combinations {
				merged, score, ok := scoreCombination(p1, p2, combo, valence, tolSq)
				if !ok {
					continue
				}
				if score > bestScore {
					bestScore = score
					bestMerged = merged
					bestI, bestJ = i, j
					found = true
				}
			}
		}
	}

	return bestMerged, bestScore, bestI, bestJ, found
}

func compatible(p1, p2 *roadnet.PathWithMetadata) bool {
	g1, ok1 := highwayGroup[p1.Highway()]
	g2, ok2 := highwayGroup[p2.Highway()]
	if !ok1 || !ok2 {
		return true // missing highway tag: allow
	}
	return g1 == g2
}

// scoreCombination evaluates one of the four endpoint pairings and returns
// the resulting merged path plus its score, or ok=false if the pairing is
// not a valid candidate at all.
func scoreCombination(p1, p2 *roadnet.PathWithMetadata, combo combination, valence map[int64]int, tolSq float64) (*roadnet.PathWithMetadata, float64, bool) {
	node1, has1 := endpointNode(p1, combo.p1End)
	node2, has2 := endpointNode(p2, combo.p2End)

	sharedNode := has1 && has2 && node1 == node2
	proximate := false
	if !sharedNode {
		pt1 := endpointPoint(p1, combo.p1End)
		pt2 := endpointPoint(p2, combo.p2End)
		if pt1.Distance(pt2)*pt1.Distance(pt2) <= tolSq && (!has1 || !has2) {
			proximate = true
		}
	}
	if !sharedNode && !proximate {
		return nil, 0, false
	}

	requiresReversal := combo.p2End == combo.p1End // End-End or Start-Start requires reversing p2
	if requiresReversal && p2.IsOneWay() {
		return nil, 0, false
	}

	dirIn := directionVector(p1, combo.p1End, true)
	dirOut := directionVector(p2, combo.p2End, false)
	if isNaNVec(dirIn) || isNaNVec(dirOut) {
		return nil, 0, false
	}
	d := dirIn.Dot(dirOut)

	var nodeValence int
	if sharedNode {
		nodeValence = valence[node1]
	}
	isJunction := nodeValence >= junctionValence
	if isJunction && d <= deflectionDotMin {
		return nil, 0, false
	}

	score := d
	if sharedNode {
		score += sharedNodeScore
	}
	if p1.SharesRouteRelation(p2) {
		score += sharedRouteScore
	}
	if requiresReversal {
		score -= reversalPenalty
	}

	merged := mergeAt(p1, p2, combo)
	return merged, score, true
}

// directionVector computes the unit direction vector used for the angle
// score, walking ~30m from the endpoint toward the path interior (incoming)
// or from the endpoint outward (outgoing), falling back to the farthest
// available point if the path is shorter than the walk distance.
func directionVector(p *roadnet.PathWithMetadata, end endKind, incoming bool) geo.Vec2 {
	anchor := endpointPoint(p, end)
	dirPoint := walk(p, end, directionWalkMeters)
	if incoming {
		return anchor.Sub(dirPoint).Normalize()
	}
	return dirPoint.Sub(anchor).Normalize()
}

// walk returns the point reached by walking distance meters from the
// endpoint toward the path's interior, clamped to the farthest point.
func walk(p *roadnet.PathWithMetadata, end endKind, distance float64) geo.Vec2 {
	pts := p.Points
	n := len(pts)
	if n < 2 {
		return pts[0]
	}

	var remaining = distance
	if end == endEnd {
		for i := n - 1; i > 0; i-- {
			seg := pts[i].Distance(pts[i-1])
			if seg >= remaining {
				t := remaining / seg
				return geo.Vec2{
					X: pts[i].X + (pts[i-1].X-pts[i].X)*t,
					Y: pts[i].Y + (pts[i-1].Y-pts[i].Y)*t,
				}
			}
			remaining -= seg
		}
		return pts[0]
	}

	for i := 0; i < n-1; i++ {
		seg := pts[i].Distance(pts[i+1])
		if seg >= remaining {
			t := remaining / seg
			return geo.Vec2{
				X: pts[i].X + (pts[i+1].X-pts[i].X)*t,
				Y: pts[i].Y + (pts[i+1].Y-pts[i].Y)*t,
			}
		}
		remaining -= seg
	}
	return pts[n-1]
}

func endpointPoint(p *roadnet.PathWithMetadata, end endKind) geo.Vec2 {
	if end == endEnd {
		return p.End()
	}
	return p.Start()
}

func endpointNode(p *roadnet.PathWithMetadata, end endKind) (int64, bool) {
	if end == endEnd {
		return p.EndNodeID, p.HasEndNode
	}
	return p.StartNodeID, p.HasStartNode
}

func isNaNVec(v geo.Vec2) bool {
	return math.IsNaN(v.X) || math.IsNaN(v.Y)
}

// mergeAt orients p1 and p2 per combo (p1's chosen endpoint meets p2's
// chosen endpoint) and concatenates them, shared point removed once.
func mergeAt(p1, p2 *roadnet.PathWithMetadata, combo combination) *roadnet.PathWithMetadata {
	oa := p1
	if combo.p1End == endStart {
		oa = p1.Reversed()
	}
	ob := p2
	if combo.p2End == endEnd {
		ob = p2.Reversed()
	}

	merged := oa.Clone()
	merged.Points = append(merged.Points, ob.Points[1:]...)
	merged.EndNodeID = ob.EndNodeID
	merged.HasEndNode = ob.HasEndNode
	merged.RouteRelationIDs = roadnet.UnionRouteRelationIDs(oa.RouteRelationIDs, ob.RouteRelationIDs)
	return merged
}

// replaceWithMerge drops paths[i] and paths[j] and appends merged.
func replaceWithMerge(paths []*roadnet.PathWithMetadata, i, j int, merged *roadnet.PathWithMetadata) []*roadnet.PathWithMetadata {
	out := make([]*roadnet.PathWithMetadata, 0, len(paths)-1)
	for k, p := range paths {
		if k == i || k == j {
			continue
		}
		out = append(out, p)
	}
	out = append(out, merged)
	return out
}

// buildValenceMap counts, for every node id appearing as an endpoint across
// all active paths, how many path-endpoints reference it.
func buildValenceMap(paths []*roadnet.PathWithMetadata) map[int64]int {
	valence := make(map[int64]int)
	for _, p := range paths {
		if p.HasStartNode {
			valence[p.StartNodeID]++
		}
		if p.HasEndNode {
			valence[p.EndNodeID]++
		}
	}
	return valence
}
