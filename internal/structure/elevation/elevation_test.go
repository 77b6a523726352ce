package elevation

import (
	"math"
	"testing"

	"github.com/MeKo-Tech/roadgeom/internal/diag"
	"github.com/MeKo-Tech/roadgeom/internal/geo"
	"github.com/MeKo-Tech/roadgeom/internal/heightmap"
	"github.com/MeKo-Tech/roadgeom/internal/roadnet"
	"github.com/MeKo-Tech/roadgeom/internal/spline"
)

func straightBridgeSpline(t *testing.T, length float64) *roadnet.ParameterizedRoadSpline {
	t.Helper()
	s, err := spline.New([]geo.Vec2{{X: 0, Y: 0}, {X: length, Y: 0}}, spline.LinearControlPoints)
	if err != nil {
		t.Fatalf("spline.New: %v", err)
	}
	return &roadnet.ParameterizedRoadSpline{WayID: 1, Spline: s, IsBridge: true}
}

func TestComputeShortBridgeIsLinear(t *testing.T) {
	s := straightBridgeSpline(t, 30)
	Compute(s, 100, 100, nil, 1, DefaultOptions(), nil)
	if s.ElevationProfile.CurveType != roadnet.Linear {
		t.Fatalf("expected Linear for a 30m bridge, got %v", s.ElevationProfile.CurveType)
	}
}

func TestComputeMediumBridgeIsParabolic(t *testing.T) {
	s := straightBridgeSpline(t, 150)
	Compute(s, 100, 100, nil, 1, DefaultOptions(), nil)
	if s.ElevationProfile.CurveType != roadnet.Parabolic {
		t.Fatalf("expected Parabolic for a 150m bridge, got %v", s.ElevationProfile.CurveType)
	}
	// A level bridge should sag below 100 at mid-span.
	mid := s.ElevationProfile.ElevationAt(0.5)
	if mid >= 100 {
		t.Fatalf("expected the parabolic sag to dip below 100 at mid-span, got %v", mid)
	}
}

func TestComputeLongBridgeIsArch(t *testing.T) {
	s := straightBridgeSpline(t, 500)
	Compute(s, 100, 100, nil, 1, DefaultOptions(), nil)
	if s.ElevationProfile.CurveType != roadnet.Arch {
		t.Fatalf("expected Arch for a 500m bridge, got %v", s.ElevationProfile.CurveType)
	}
	mid := s.ElevationProfile.ElevationAt(0.5)
	if mid <= 100 {
		t.Fatalf("expected the arch to rise above 100 at mid-span, got %v", mid)
	}
}

func straightTunnelSpline(t *testing.T, length float64) *roadnet.ParameterizedRoadSpline {
	t.Helper()
	s, err := spline.New([]geo.Vec2{{X: 0, Y: 0}, {X: length, Y: 0}}, spline.LinearControlPoints)
	if err != nil {
		t.Fatalf("spline.New: %v", err)
	}
	return &roadnet.ParameterizedRoadSpline{WayID: 2, Spline: s, IsTunnel: true}
}

func TestComputeTunnelLinearWhenTerrainIsFlatEnough(t *testing.T) {
	s := straightTunnelSpline(t, 100)
	hm := heightmap.Flat(200, 10, 200) // plenty of clearance over a 100 elevation tunnel
	Compute(s, 100, 100, hm, 1, DefaultOptions(), nil)
	if s.ElevationProfile.CurveType != roadnet.Linear {
		t.Fatalf("expected Linear, got %v", s.ElevationProfile.CurveType)
	}
}

func TestComputeTunnelSCurveWhenTerrainRises(t *testing.T) {
	s := straightTunnelSpline(t, 100)
	// Low hill peaking at x=50: its surface stays below entry/exit(100) +
	// required clearance(10)=110 everywhere, so a straight bore would not
	// leave enough rock cover and the tunnel must dip.
	hm := heightmap.RidgeAlongX(100, 10, 95, 10, 0.5)
	Compute(s, 100, 100, hm, 1, DefaultOptions(), nil)
	if s.ElevationProfile.CurveType != roadnet.SCurve {
		t.Fatalf("expected SCurve given insufficient clearance under the straight path, got %v", s.ElevationProfile.CurveType)
	}
}

func TestComputeTunnelInvalidatesExcessiveGrade(t *testing.T) {
	s := straightTunnelSpline(t, 20) // short tunnel forces a steep grade if forced to dip
	hm := heightmap.Flat(20, 10, 100) // terrain level with the portals: zero rock cover for a straight bore
	collector := diag.NewCollector()
	Compute(s, 100, 100, hm, 1, DefaultOptions(), collector)

	if s.ElevationProfile.CurveType != roadnet.SCurve {
		t.Fatalf("expected SCurve, got %v", s.ElevationProfile.CurveType)
	}
	if s.ElevationProfile.Valid {
		t.Fatal("expected the profile to be marked invalid due to excessive grade")
	}
	if collector.CountAtLeast(diag.Warning) == 0 {
		t.Fatal("expected a grade-exceeded warning")
	}
}

func TestComputeTunnelWithoutHeightmapDefaultsLinearWithWarning(t *testing.T) {
	s := straightTunnelSpline(t, 100)
	collector := diag.NewCollector()
	Compute(s, 100, 100, nil, 1, DefaultOptions(), collector)

	if s.ElevationProfile.CurveType != roadnet.Linear {
		t.Fatalf("expected Linear fallback, got %v", s.ElevationProfile.CurveType)
	}
	if collector.CountAtLeast(diag.Warning) == 0 {
		t.Fatal("expected a warning about the missing heightmap")
	}
}

func TestComputeSkipsNonStructureSplines(t *testing.T) {
	s := straightBridgeSpline(t, 30)
	s.IsBridge = false
	Compute(s, 100, 100, nil, 1, DefaultOptions(), nil)
	if s.ElevationProfile != nil {
		t.Fatal("expected no elevation profile for a non-structure spline")
	}
}

func TestSCurveDescendsMonotonicallyToLowPoint(t *testing.T) {
	p := &roadnet.ElevationProfile{
		CurveType:       roadnet.SCurve,
		EntryElevation:  0,
		LowestElevation: -10,
		ExitElevation:   0,
	}
	prev := math.Inf(1)
	for _, t2 := range []float64{0, 0.1, 0.2, 0.24} {
		v := p.ElevationAt(t2)
		if v > prev {
			t.Fatalf("expected monotonic descent toward the low point, got %v after %v", v, prev)
		}
		prev = v
	}
}
