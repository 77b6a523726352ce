// Package elevation implements C11, the elevation profile calculator
// (spec.md §4.12): it picks a vertical curve shape for a matched
// bridge/tunnel spline and validates tunnel grades against terrain.
package elevation

import (
	"fmt"
	"math"

	"github.com/MeKo-Tech/roadgeom/internal/diag"
	"github.com/MeKo-Tech/roadgeom/internal/geo"
	"github.com/MeKo-Tech/roadgeom/internal/heightmap"
	"github.com/MeKo-Tech/roadgeom/internal/roadnet"
)

// Options configures C11's thresholds (spec.md §6).
type Options struct {
	TunnelMinClearanceMeters    float64
	TunnelInteriorHeightMeters  float64
	TunnelMaxGradePercent       float64
	ShortBridgeMaxLengthMeters  float64
	MediumBridgeMaxLengthMeters float64
	TerrainSampleCount          int
}

// DefaultOptions returns spec.md §6's defaults.
func DefaultOptions() Options {
	return Options{
		TunnelMinClearanceMeters:    5,
		TunnelInteriorHeightMeters:  5,
		TunnelMaxGradePercent:       6,
		ShortBridgeMaxLengthMeters:  50,
		MediumBridgeMaxLengthMeters: 200,
		TerrainSampleCount:          20,
	}
}

// Compute builds and attaches an ElevationProfile to s, given the entry/exit
// elevations at the structure's endpoints and, for tunnels, a heightmap to
// sample terrain along the path. hm may be nil for a bridge (no terrain
// sampling is needed to pick a sag/arch curve); it is required to validate
// a tunnel's clearance and is reported as a warning via sink if absent.
func Compute(s *roadnet.ParameterizedRoadSpline, entryElevation, exitElevation float64, hm *heightmap.Grid, metersPerPixel float64, opts Options, sink diag.Sink) {
	if !s.IsStructure() {
		return
	}
	if opts.TerrainSampleCount <= 0 {
		opts = DefaultOptions()
	}

	length := s.Spline.TotalLength()
	profile := &roadnet.ElevationProfile{
		EntryElevation: entryElevation,
		ExitElevation:  exitElevation,
		Length:         length,
		Valid:          true,
	}

	switch {
	case s.IsBridge:
		computeBridgeProfile(profile, length, opts)
	case s.IsTunnel:
		computeTunnelProfile(s, profile, hm, metersPerPixel, opts, sink)
	}

	s.ElevationProfile = profile
}

// computeBridgeProfile picks Linear/Parabolic/Arch by length (spec.md
// §4.12) and records the min/max elevation the curve reaches.
func computeBridgeProfile(p *roadnet.ElevationProfile, length float64, opts Options) {
	switch {
	case length <= opts.ShortBridgeMaxLengthMeters:
		p.CurveType = roadnet.Linear
	case length <= opts.MediumBridgeMaxLengthMeters:
		p.CurveType = roadnet.Parabolic
	default:
		p.CurveType = roadnet.Arch
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	const samples = 20
	for i := 0; i <= samples; i++ {
		t := float64(i) / samples
		e := p.ElevationAt(t)
		lo = math.Min(lo, e)
		hi = math.Max(hi, e)
	}
	p.LowestElevation = lo
	p.HighestElevation = hi
}

// computeTunnelProfile samples terrain along the spline, chooses Linear if
// the straight interpolation clears required clearance everywhere,
// otherwise an SCurve dipping under the highest terrain in the middle
// 50%, and validates the resulting grade (spec.md §4.12).
func computeTunnelProfile(s *roadnet.ParameterizedRoadSpline, p *roadnet.ElevationProfile, hm *heightmap.Grid, metersPerPixel float64, opts Options, sink diag.Sink) {
	requiredClearance := opts.TunnelMinClearanceMeters + opts.TunnelInteriorHeightMeters
	p.MinClearance = requiredClearance

	if hm == nil {
		p.CurveType = roadnet.Linear
		if sink != nil {
			sink.Emit(diag.Warning,
				fmt.Sprintf("way %d: no heightmap supplied, tunnel profile defaulted to linear without clearance validation", s.WayID),
				diag.ReasonTopologyAmbiguity)
		}
		return
	}

	samples := sampleTerrain(s, hm, metersPerPixel, opts.TerrainSampleCount)
	p.TerrainSamples = samples

	clearsLinearly := true
	for i, terrain := range samples {
		t := float64(i) / float64(len(samples)-1)
		linear := lerp(p.EntryElevation, p.ExitElevation, t)
		if linear+requiredClearance > terrain {
			clearsLinearly = false
			break
		}
	}

	if clearsLinearly {
		p.CurveType = roadnet.Linear
		p.LowestElevation = math.Min(p.EntryElevation, p.ExitElevation)
		p.HighestElevation = math.Max(p.EntryElevation, p.ExitElevation)
		return
	}

	p.CurveType = roadnet.SCurve

	highestMiddleTerrain := math.Inf(-1)
	for i, terrain := range samples {
		t := float64(i) / float64(len(samples)-1)
		if t >= 0.25 && t <= 0.75 {
			highestMiddleTerrain = math.Max(highestMiddleTerrain, terrain)
		}
	}
	p.LowestElevation = highestMiddleTerrain - requiredClearance
	p.HighestElevation = math.Max(p.EntryElevation, p.ExitElevation)

	validateGrade(s, p, opts, sink)
}

// validateGrade computes the descent/ascent grade percentages for an
// SCurve profile and marks it invalid (without adjusting it) if either
// exceeds TunnelMaxGradePercent.
func validateGrade(s *roadnet.ParameterizedRoadSpline, p *roadnet.ElevationProfile, opts Options, sink diag.Sink) {
	quarterLength := p.Length * 0.25
	if quarterLength <= 0 {
		return
	}

	descentGrade := math.Abs(p.EntryElevation-p.LowestElevation) / quarterLength * 100
	ascentGrade := math.Abs(p.LowestElevation-p.ExitElevation) / quarterLength * 100
	maxGrade := math.Max(descentGrade, ascentGrade)
	p.MaxGradePercent = maxGrade

	if maxGrade > opts.TunnelMaxGradePercent {
		p.Valid = false
		p.Message = fmt.Sprintf("tunnel grade %.1f%% exceeds maximum %.1f%%", maxGrade, opts.TunnelMaxGradePercent)
		if sink != nil {
			sink.Emit(diag.Warning,
				fmt.Sprintf("way %d: %s", s.WayID, p.Message),
				diag.ReasonGradeExceeded)
		}
	}
}

// sampleTerrain samples hm at n points evenly spaced along s's arc length,
// converting each spline point from meters back to heightmap pixel
// indices via metersPerPixel, with bilinear interpolation (spec.md §4.12).
func sampleTerrain(s *roadnet.ParameterizedRoadSpline, hm *heightmap.Grid, metersPerPixel float64, n int) []float64 {
	total := s.Spline.TotalLength()
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n-1)
		pos := s.Spline.GetPointAtDistance(t * total).Position
		out[i] = hm.Sample(toPixel(pos, metersPerPixel))
	}
	return out
}

func toPixel(pos geo.Vec2, metersPerPixel float64) (float64, float64) {
	if metersPerPixel <= 0 {
		return pos.X, pos.Y
	}
	return pos.X / metersPerPixel, pos.Y / metersPerPixel
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }
