// Package spline implements C3: a parametric polyline with arc-length
// sampling, normals, and two interpolation modes (spec.md §4.3).
package spline

import (
	"sort"

	"github.com/MeKo-Tech/roadgeom/internal/errs"
	"github.com/MeKo-Tech/roadgeom/internal/geo"
)

// InterpolationMode selects how a RoadSpline curves between control points.
type InterpolationMode int

const (
	// SmoothInterpolated is C1-continuous through all control points, with
	// tangents chosen so closed input (first == last) yields a smooth seam.
	SmoothInterpolated InterpolationMode = iota
	// LinearControlPoints degenerates to straight segments between points.
	LinearControlPoints
)

// Sample is a point on a spline plus its local frame.
type Sample struct {
	Position geo.Vec2
	Tangent  geo.Vec2 // unit
	Normal   geo.Vec2 // unit, left of Tangent
}

const denseSubdivisionsPerSegment = 24

// RoadSpline is an immutable parametric polyline in meters.
type RoadSpline struct {
	controlPoints []geo.Vec2
	mode          InterpolationMode
	closed        bool

	// dense is a fine polyline approximation used for both the smooth-mode
	// length estimate and GetPointAtDistance's binary search. For
	// LinearControlPoints, dense == controlPoints exactly (no approximation
	// error, matching property 4's exact-equality requirement).
	dense    []geo.Vec2
	cumLen   []float64 // cumLen[i] = arc length from dense[0] to dense[i]
	totalLen float64

	segmentLengths []float64 // per-control-point-segment length
}

// New constructs a RoadSpline from points (>= 2, in meters) and mode.
// Duplicate consecutive points below 1 cm must be removed by the caller
// beforehand (spec.md §4.3); New does not re-check this.
func New(points []geo.Vec2, mode InterpolationMode) (*RoadSpline, error) {
	if len(points) < 2 {
		return nil, errs.New(errs.InvalidInput, "spline: at least 2 control points required")
	}

	s := &RoadSpline{
		controlPoints: append([]geo.Vec2(nil), points...),
		mode:          mode,
		closed:        points[0].Distance(points[len(points)-1]) < 1e-6,
	}

	switch mode {
	case LinearControlPoints:
		s.buildLinear()
	default:
		s.buildSmooth()
	}

	s.buildCumulativeLength()
	return s, nil
}

func (s *RoadSpline) buildLinear() {
	s.dense = append([]geo.Vec2(nil), s.controlPoints...)
	s.segmentLengths = make([]float64, len(s.controlPoints)-1)
	for i := 0; i < len(s.controlPoints)-1; i++ {
		s.segmentLengths[i] = s.controlPoints[i].Distance(s.controlPoints[i+1])
	}
}

// buildSmooth densifies a uniform Catmull-Rom-style Hermite curve
// through the control points. Tangent at each point is the central
// difference of its neighbors; closed input wraps around the seam so the
// tangent there matches both sides.
func (s *RoadSpline) buildSmooth() {
	n := len(s.controlPoints)
	tangents := make([]geo.Vec2, n)
	for i := 0; i < n; i++ {
		tangents[i] = s.tangentAt(i)
	}

	s.segmentLengths = make([]float64, n-1)
	s.dense = make([]geo.Vec2, 0, (n-1)*denseSubdivisionsPerSegment+1)

	for i := 0; i < n-1; i++ {
		p0 := s.controlPoints[i]
		p1 := s.controlPoints[i+1]
		m0 := tangents[i]
		m1 := tangents[i+1]

		local := make([]geo.Vec2, 0, denseSubdivisionsPerSegment+1)
		for k := 0; k <= denseSubdivisionsPerSegment; k++ {
			t := float64(k) / float64(denseSubdivisionsPerSegment)
			local = append(local, hermite(p0, p1, m0, m1, t))
		}

		segLen := 0.0
		for j := 0; j < len(local)-1; j++ {
			segLen += local[j].Distance(local[j+1])
		}
		s.segmentLengths[i] = segLen

		if i == 0 {
			s.dense = append(s.dense, local...)
		} else {
			s.dense = append(s.dense, local[1:]...) // first sample duplicates the previous segment's last
		}
	}
}

// tangentAt returns the (non-unit) tangent vector at control point index i
// using a central difference, wrapping at the seam for closed splines.
func (s *RoadSpline) tangentAt(i int) geo.Vec2 {
	n := len(s.controlPoints)
	var prev, next geo.Vec2
	switch {
	case i == 0:
		if s.closed && n > 2 {
			prev = s.controlPoints[n-2] // skip the duplicated closing point
		} else {
			prev = s.controlPoints[0]
		}
		next = s.controlPoints[1]
	case i == n-1:
		prev = s.controlPoints[n-2]
		if s.closed && n > 2 {
			next = s.controlPoints[1]
		} else {
			next = s.controlPoints[n-1]
		}
	default:
		prev = s.controlPoints[i-1]
		next = s.controlPoints[i+1]
	}
	return next.Sub(prev).Scale(0.5)
}

// hermite evaluates the cubic Hermite spline between p0 and p1 with
// tangents m0, m1 at parameter t in [0,1].
func hermite(p0, p1, m0, m1 geo.Vec2, t float64) geo.Vec2 {
	t2 := t * t
	t3 := t2 * t
	h00 := 2*t3 - 3*t2 + 1
	h10 := t3 - 2*t2 + t
	h01 := -2*t3 + 3*t2
	h11 := t3 - t2
	return geo.Vec2{
		X: h00*p0.X + h10*m0.X + h01*p1.X + h11*m1.X,
		Y: h00*p0.Y + h10*m0.Y + h01*p1.Y + h11*m1.Y,
	}
}

func (s *RoadSpline) buildCumulativeLength() {
	s.cumLen = make([]float64, len(s.dense))
	total := 0.0
	for i := 1; i < len(s.dense); i++ {
		total += s.dense[i-1].Distance(s.dense[i])
		s.cumLen[i] = total
	}
	s.totalLen = total
}

// ControlPoints returns a copy of the original control points.
func (s *RoadSpline) ControlPoints() []geo.Vec2 {
	return append([]geo.Vec2(nil), s.controlPoints...)
}

// Mode returns the interpolation mode.
func (s *RoadSpline) Mode() InterpolationMode { return s.mode }

// TotalLength returns the cached total arc length.
func (s *RoadSpline) TotalLength() float64 { return s.totalLen }

// SegmentLengths returns the cached per-control-point-segment lengths.
func (s *RoadSpline) SegmentLengths() []float64 {
	return append([]float64(nil), s.segmentLengths...)
}

// GetPointAtDistance locates the sample at arc-length distance d by binary
// search over the cached cumulative length table, clamping d to [0,length].
func (s *RoadSpline) GetPointAtDistance(d float64) Sample {
	if d < 0 {
		d = 0
	}
	if d > s.totalLen {
		d = s.totalLen
	}

	i := sort.Search(len(s.cumLen), func(i int) bool { return s.cumLen[i] >= d })
	if i <= 0 {
		return s.sampleAtIndex(0, 0)
	}
	if i >= len(s.dense) {
		return s.sampleAtIndex(len(s.dense)-1, 0)
	}

	segLen := s.cumLen[i] - s.cumLen[i-1]
	var t float64
	if segLen > 0 {
		t = (d - s.cumLen[i-1]) / segLen
	}
	return s.sampleAtIndex(i-1, t)
}

// sampleAtIndex interpolates between dense[idx] and dense[idx+1] (clamped)
// at local parameter t, deriving tangent/normal from the finite difference.
func (s *RoadSpline) sampleAtIndex(idx int, t float64) Sample {
	if idx < 0 {
		idx = 0
	}
	if idx >= len(s.dense)-1 {
		idx = len(s.dense) - 2
		if idx < 0 {
			idx = 0
		}
		t = 1
	}

	p0 := s.dense[idx]
	p1 := s.dense[idx+1]
	pos := geo.Vec2{
		X: p0.X + (p1.X-p0.X)*t,
		Y: p0.Y + (p1.Y-p0.Y)*t,
	}
	tangent := p1.Sub(p0).Normalize()
	if tangent == (geo.Vec2{}) {
		tangent = geo.Vec2{X: 1, Y: 0}
	}
	normal := tangent.LeftNormal()
	return Sample{Position: pos, Tangent: tangent, Normal: normal}
}

// SampleByDistance returns samples at 0, step, 2*step, ..., TotalLength().
// The final sample is always exactly at TotalLength(), even if it falls
// short of a full step from the previous sample.
func (s *RoadSpline) SampleByDistance(step float64) []Sample {
	if step <= 0 {
		step = 1
	}
	var out []Sample
	for d := 0.0; d < s.totalLen; d += step {
		out = append(out, s.GetPointAtDistance(d))
	}
	out = append(out, s.GetPointAtDistance(s.totalLen))
	return out
}

// RemoveDuplicates drops consecutive points closer than tolerance, the
// precondition New requires of its caller.
func RemoveDuplicates(points []geo.Vec2, tolerance float64) []geo.Vec2 {
	if len(points) == 0 {
		return nil
	}
	out := make([]geo.Vec2, 0, len(points))
	out = append(out, points[0])
	for _, p := range points[1:] {
		if p.Distance(out[len(out)-1]) >= tolerance {
			out = append(out, p)
		}
	}
	return out
}

// StraightLineDistance returns the distance between the first and last
// control point, the lower bound property 4 requires.
func (s *RoadSpline) StraightLineDistance() float64 {
	return s.controlPoints[0].Distance(s.controlPoints[len(s.controlPoints)-1])
}
