// Package merge implements C9, the roundabout merger (spec.md §4.9): it
// turns each detected roundabout's ring into a meter-space RoadSpline and
// projects every recorded connection onto that spline as an arc-length
// distance, for later junction-detection use by §4.10.
package merge

import (
	"fmt"

	"github.com/MeKo-Tech/roadgeom/internal/diag"
	"github.com/MeKo-Tech/roadgeom/internal/geo"
	"github.com/MeKo-Tech/roadgeom/internal/geocoord"
	"github.com/MeKo-Tech/roadgeom/internal/osm"
	"github.com/MeKo-Tech/roadgeom/internal/spline"
)

const (
	closureToleranceMeters   = 0.10
	duplicateToleranceMeters = 0.01
	minRingPoints            = 4
	coarseSampleStepMeters   = 0.5
	refinementSteps          = 10 // halves the bracket each time: 1m -> ~1mm
)

// Ring pairs a roundabout with the meter-space spline built from its ring,
// the result this package hands to §4.10's line-to-spline conversion.
type Ring struct {
	Roundabout *osm.OsmRoundabout
	Spline     *spline.RoadSpline
}

// Merge builds a Ring for every roundabout whose ring survives clipping and
// deduplication with at least minRingPoints distinct points, and records
// DistanceAlongSpline on each of the roundabout's Connections. Roundabouts
// that fail the point-count requirement are skipped and reported via sink.
func Merge(roundabouts []*osm.OsmRoundabout, transform geocoord.Transformer, metersPerPixel float64, sink diag.Sink) []Ring {
	var out []Ring
	for _, rb := range roundabouts {
		ring, ok := mergeOne(rb, transform, metersPerPixel, sink)
		if !ok {
			continue
		}
		out = append(out, ring)
	}
	return out
}

func mergeOne(rb *osm.OsmRoundabout, transform geocoord.Transformer, metersPerPixel float64, sink diag.Sink) (Ring, bool) {
	points := make([]geo.Vec2, 0, len(rb.Ring))
	for _, c := range rb.Ring {
		px, py := transform.ToTerrainPixel(c.Lon, c.Lat)
		points = append(points, geocoord.ToMeters(px, py, metersPerPixel))
	}

	points = forceClosure(points)
	points = spline.RemoveDuplicates(points, duplicateToleranceMeters)

	if len(points) < minRingPoints {
		if sink != nil {
			sink.Emit(diag.Warning,
				fmt.Sprintf("roundabout %d: only %d distinct ring points after cleanup, need at least %d", rb.ID, len(points), minRingPoints),
				diag.ReasonInsufficientPoints)
		}
		return Ring{}, false
	}

	s, err := spline.New(points, spline.SmoothInterpolated)
	if err != nil {
		if sink != nil {
			sink.Emit(diag.Warning,
				fmt.Sprintf("roundabout %d: failed to build ring spline: %v", rb.ID, err),
				diag.ReasonInsufficientPoints)
		}
		return Ring{}, false
	}

	for i := range rb.Connections {
		c := &rb.Connections[i]
		px, py := transform.ToTerrainPixel(c.Point.Lon, c.Point.Lat)
		target := geocoord.ToMeters(px, py, metersPerPixel)
		c.DistanceAlongSpline = nearestDistance(s, target)
	}

	return Ring{Roundabout: rb, Spline: s}, true
}

// forceClosure appends the first point if the ring isn't already closed
// within tolerance, so the spline's seam-smoothing treats it as closed.
func forceClosure(points []geo.Vec2) []geo.Vec2 {
	if len(points) < 2 {
		return points
	}
	if points[0].Distance(points[len(points)-1]) > closureToleranceMeters {
		return append(points, points[0])
	}
	return points
}

// nearestDistance finds the arc-length distance along s whose sample is
// closest to target, by coarse sampling every coarseSampleStepMeters and
// then bisecting the bracket around the best coarse sample down to ~1mm.
func nearestDistance(s *spline.RoadSpline, target geo.Vec2) float64 {
	total := s.TotalLength()
	if total <= 0 {
		return 0
	}

	bestDist := 0.0
	bestD := 0.0
	for d := 0.0; d <= total; d += coarseSampleStepMeters {
		sample := s.GetPointAtDistance(d)
		if dist := sample.Position.Distance(target); dist < bestDist || d == 0 {
			bestDist = dist
			bestD = d
		}
	}
	// also check the exact endpoint, SampleByDistance-style
	if dist := s.GetPointAtDistance(total).Position.Distance(target); dist < bestDist {
		bestDist = dist
		bestD = total
	}

	lo := bestD - coarseSampleStepMeters
	hi := bestD + coarseSampleStepMeters
	if lo < 0 {
		lo = 0
	}
	if hi > total {
		hi = total
	}

	for step := 0; step < refinementSteps; step++ {
		mid := (lo + hi) / 2
		left := s.GetPointAtDistance(mid - (hi-lo)/4).Position.Distance(target)
		right := s.GetPointAtDistance(mid + (hi-lo)/4).Position.Distance(target)
		if left < right {
			hi = mid
		} else {
			lo = mid
		}
	}
	return (lo + hi) / 2
}
