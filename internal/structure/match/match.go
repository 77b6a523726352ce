// Package match implements C10, the bridge/tunnel matcher (spec.md §4.11):
// it attaches OSM bridge/tunnel structure metadata to whichever
// ParameterizedRoadSpline physically coincides with each structure's
// polyline, using a coarse spatial grid to avoid an all-pairs comparison.
package match

import (
	"fmt"
	"math"

	"github.com/MeKo-Tech/roadgeom/internal/diag"
	"github.com/MeKo-Tech/roadgeom/internal/geo"
	"github.com/MeKo-Tech/roadgeom/internal/geocoord"
	"github.com/MeKo-Tech/roadgeom/internal/osm"
	"github.com/MeKo-Tech/roadgeom/internal/roadnet"
)

// Options configures C10's matching thresholds (spec.md §6).
type Options struct {
	GridCellSizeMeters   float64
	SplineSampleStepMeters float64
	MaxMatchDistanceMeters float64
	MinOverlapPercent      float64
}

// DefaultOptions returns spec.md §6's defaults.
func DefaultOptions() Options {
	return Options{
		GridCellSizeMeters:     50,
		SplineSampleStepMeters: 2,
		MaxMatchDistanceMeters: 10,
		MinOverlapPercent:      50,
	}
}

// cellKey identifies one grid cell of a flat metric grid (a z/x/y
// tile-bucket idiom flattened to one level).
type cellKey struct{ x, y int }

func cellOf(p geo.Vec2, size float64) cellKey {
	return cellKey{x: int(math.Floor(p.X / size)), y: int(math.Floor(p.Y / size))}
}

// Match runs C10 over splines and structures, mutating each matched
// spline's IsBridge/IsTunnel/Layer/StructureData in place, and reports an
// unmatched-structure warning through sink for every structure that fails
// to clear the acceptance thresholds.
func Match(splines []*roadnet.ParameterizedRoadSpline, structures []osm.OsmStructure, transform geocoord.Transformer, metersPerPixel float64, opts Options, sink diag.Sink) {
	if opts.GridCellSizeMeters <= 0 {
		opts = DefaultOptions()
	}

	index := buildIndex(splines, opts)

	for _, st := range structures {
		points := toMeters(st.Coordinates, transform, metersPerPixel)
		if len(points) == 0 {
			continue
		}

		best, bestScore, matched := bestCandidate(points, splines, index, opts)
		if !matched {
			if sink != nil {
				sink.Emit(diag.Warning,
					fmt.Sprintf("structure %d: no spline matched (bridge=%v tunnel=%v)", st.ID, st.IsBridge, st.IsTunnel),
					diag.ReasonUnmatchedStructure)
			}
			continue
		}

		best.IsBridge = st.IsBridge
		best.IsTunnel = st.IsTunnel
		best.Layer = st.Layer
		best.StructureData = &roadnet.StructureMatch{
			StructureID:    st.ID,
			IsBridge:       st.IsBridge,
			IsTunnel:       st.IsTunnel,
			Layer:          st.Layer,
			Tags:           st.Tags,
			AvgDistance:    bestScore.avgDist,
			OverlapPercent: bestScore.overlapPercent,
			Score:          bestScore.score,
			MatchedByWayID: false, // reserved, spec.md §4.11
		}
	}
}

// buildIndex samples every spline every indexSampleStepMeters (a fixed
// 10m, independent of SplineSampleStepMeters) and records which cells it
// visits, so a structure only has to scan its own neighborhood.
func buildIndex(splines []*roadnet.ParameterizedRoadSpline, opts Options) map[cellKey][]int {
	const indexSampleStepMeters = 10.0
	index := make(map[cellKey][]int)
	seen := make(map[cellKey]map[int]bool)

	for i, s := range splines {
		total := s.Spline.TotalLength()
		for d := 0.0; d <= total; d += indexSampleStepMeters {
			pos := s.Spline.GetPointAtDistance(d).Position
			key := cellOf(pos, opts.GridCellSizeMeters)
			if seen[key] == nil {
				seen[key] = make(map[int]bool)
			}
			if !seen[key][i] {
				seen[key][i] = true
				index[key] = append(index[key], i)
			}
		}
	}
	return index
}

type candidateScore struct {
	avgDist        float64
	overlapPercent float64
	score          float64
}

// bestCandidate evaluates every spline that shares a grid cell (±1 in both
// axes) with any point of the structure's polyline, and returns the
// highest-scoring spline that clears the acceptance thresholds.
func bestCandidate(points []geo.Vec2, splines []*roadnet.ParameterizedRoadSpline, index map[cellKey][]int, opts Options) (*roadnet.ParameterizedRoadSpline, candidateScore, bool) {
	candidateSet := make(map[int]bool)
	for _, p := range points {
		c := cellOf(p, opts.GridCellSizeMeters)
		for dx := -1; dx <= 1; dx++ {
			for dy := -1; dy <= 1; dy++ {
				for _, idx := range index[cellKey{c.x + dx, c.y + dy}] {
					candidateSet[idx] = true
				}
			}
		}
	}

	var best *roadnet.ParameterizedRoadSpline
	var bestScore candidateScore
	found := false

	for idx := range candidateSet {
		s := splines[idx]
		samples := sampleSpline(s, opts.SplineSampleStepMeters)
		if len(samples) == 0 {
			continue
		}

		score, ok := evaluate(points, samples, opts)
		if !ok {
			continue
		}
		if !found || score.score > bestScore.score {
			best = s
			bestScore = score
			found = true
		}
	}

	return best, bestScore, found
}

func sampleSpline(s *roadnet.ParameterizedRoadSpline, step float64) []geo.Vec2 {
	total := s.Spline.TotalLength()
	if total <= 0 || step <= 0 {
		return nil
	}
	var out []geo.Vec2
	for d := 0.0; d <= total; d += step {
		out = append(out, s.Spline.GetPointAtDistance(d).Position)
	}
	return out
}

// evaluate computes avgDist/overlap%/score for one structure-spline pair
// (spec.md §4.11) and reports whether it clears the avgDist<=20m and
// overlap%>=MinOverlapPercent gates.
func evaluate(structurePoints, splineSamples []geo.Vec2, opts Options) (candidateScore, bool) {
	const maxAvgDistMeters = 20.0

	var sumDist float64
	withinCount := 0
	for _, p := range structurePoints {
		min := math.Inf(1)
		for _, s := range splineSamples {
			if d := p.Distance(s); d < min {
				min = d
			}
		}
		sumDist += min
		if min <= opts.MaxMatchDistanceMeters {
			withinCount++
		}
	}

	avgDist := sumDist / float64(len(structurePoints))
	overlapPercent := 100 * float64(withinCount) / float64(len(structurePoints))

	if avgDist > maxAvgDistMeters {
		return candidateScore{}, false
	}
	if overlapPercent < opts.MinOverlapPercent {
		return candidateScore{}, false
	}

	score := overlapPercent - 5*avgDist // matchedByWayId bonus always 0, spec.md §4.11
	return candidateScore{avgDist: avgDist, overlapPercent: overlapPercent, score: score}, true
}

func toMeters(coords []geo.Coordinate, transform geocoord.Transformer, metersPerPixel float64) []geo.Vec2 {
	out := make([]geo.Vec2, len(coords))
	for i, c := range coords {
		x, y := transform.ToTerrainPixel(c.Lon, c.Lat)
		out[i] = geocoord.ToMeters(x, y, metersPerPixel)
	}
	return out
}
