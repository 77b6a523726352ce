package roadnet

import (
	"github.com/MeKo-Tech/roadgeom/internal/geo"
	"github.com/MeKo-Tech/roadgeom/internal/spline"
)

// ParameterizedRoadSpline wraps a RoadSpline with the identity and structure
// annotations the pipeline accumulates across C4-C11 (spec.md §3).
type ParameterizedRoadSpline struct {
	ID     int64
	Spline *spline.RoadSpline

	IsBridge     bool
	IsTunnel     bool
	IsRoundabout bool
	Layer        int

	// RoadWidthMeters is the highway-class default surface width (spec.md
	// §4.2); RoadSurfaceWidthMeters, when positive, overrides it with an
	// OSM width= tag value. C2 rasterizes with RoadSurfaceWidthMeters if
	// positive, else RoadWidthMeters.
	RoadWidthMeters        float64
	RoadSurfaceWidthMeters float64

	WayID int64
	Tags  map[string]string

	StructureData    *StructureMatch
	ElevationProfile *ElevationProfile
}

// IsStructure reports whether the spline carries bridge or tunnel metadata.
func (p *ParameterizedRoadSpline) IsStructure() bool { return p.IsBridge || p.IsTunnel }

// EffectiveWidthMeters is the width C2 rasterizes with: the tag-derived
// RoadSurfaceWidthMeters if positive, else the highway-class default
// RoadWidthMeters (spec.md §4.2).
func (p *ParameterizedRoadSpline) EffectiveWidthMeters() float64 {
	if p.RoadSurfaceWidthMeters > 0 {
		return p.RoadSurfaceWidthMeters
	}
	return p.RoadWidthMeters
}

// StartPoint returns the spline's first control point.
func (p *ParameterizedRoadSpline) StartPoint() geo.Vec2 {
	return p.Spline.ControlPoints()[0]
}

// EndPoint returns the spline's last control point.
func (p *ParameterizedRoadSpline) EndPoint() geo.Vec2 {
	cp := p.Spline.ControlPoints()
	return cp[len(cp)-1]
}

// StructureMatch records the OSM bridge/tunnel structure C10 matched this
// spline to, and the score that won the match.
type StructureMatch struct {
	StructureID     int64
	IsBridge        bool
	IsTunnel        bool
	Layer           int
	Tags            map[string]string
	AvgDistance     float64
	OverlapPercent  float64
	Score           float64
	MatchedByWayID  bool
}

// ElevationCurveType selects the vertical-profile shape C11 computes.
type ElevationCurveType int

const (
	Linear ElevationCurveType = iota
	Parabolic
	Arch
	SCurve
)

func (c ElevationCurveType) String() string {
	switch c {
	case Linear:
		return "linear"
	case Parabolic:
		return "parabolic"
	case Arch:
		return "arch"
	case SCurve:
		return "s_curve"
	default:
		return "unknown"
	}
}

// ElevationProfile is the vertical curve C11 computes for a matched
// bridge/tunnel spline (spec.md §4.12).
type ElevationProfile struct {
	EntryElevation float64
	ExitElevation  float64
	Length         float64
	CurveType      ElevationCurveType

	LowestElevation  float64
	HighestElevation float64
	MaxGradePercent  float64
	MinClearance     float64

	TerrainSamples []float64

	Valid   bool
	Message string
}

// ElevationAt evaluates the profile at normalized distance t in [0,1].
func (p *ElevationProfile) ElevationAt(t float64) float64 {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	switch p.CurveType {
	case Parabolic:
		return lerp(p.EntryElevation, p.ExitElevation, t) - 4*p.sagOrRise(t)
	case Arch:
		return lerp(p.EntryElevation, p.ExitElevation, t) + 4*p.sagOrRise(t)
	case SCurve:
		return p.sCurveAt(t)
	default:
		return lerp(p.EntryElevation, p.ExitElevation, t)
	}
}

// sagOrRise returns maxSag/maxRise * t * (1-t); the caller multiplies by 4
// and chooses the sign, matching spec.md §4.12's formulas directly.
func (p *ElevationProfile) sagOrRise(t float64) float64 {
	var mag float64
	switch p.CurveType {
	case Parabolic:
		mag = min(p.Length*0.005, 2.0)
	case Arch:
		mag = min(p.Length*0.01, 10.0)
	}
	return mag * t * (1 - t)
}

func (p *ElevationProfile) sCurveAt(t float64) float64 {
	switch {
	case t <= 0.25:
		return lerp(p.EntryElevation, p.LowestElevation, smoothstep(t/0.25))
	case t <= 0.75:
		return p.LowestElevation
	default:
		return lerp(p.LowestElevation, p.ExitElevation, smoothstep((t-0.75)/0.25))
	}
}

func smoothstep(x float64) float64 {
	if x < 0 {
		x = 0
	}
	if x > 1 {
		x = 1
	}
	return 3*x*x - 2*x*x*x
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }
