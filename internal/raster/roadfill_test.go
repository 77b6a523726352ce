package raster

import (
	"testing"

	"github.com/MeKo-Tech/roadgeom/internal/geo"
	"github.com/MeKo-Tech/roadgeom/internal/roadnet"
	"github.com/MeKo-Tech/roadgeom/internal/spline"
)

func straightSpline(t *testing.T, length float64) *spline.RoadSpline {
	t.Helper()
	s, err := spline.New([]geo.Vec2{{X: 0, Y: 50}, {X: length, Y: 50}}, spline.LinearControlPoints)
	if err != nil {
		t.Fatalf("spline.New: %v", err)
	}
	return s
}

func TestFillRoadSplineFillsAStripOfTheConfiguredWidth(t *testing.T) {
	terrainSize := 100
	metersPerPixel := 1.0
	s := &roadnet.ParameterizedRoadSpline{
		WayID:           1,
		Spline:          straightSpline(t, 80),
		RoadWidthMeters: 6,
	}

	m := NewMask(terrainSize, terrainSize)
	FillRoadSpline(m, s, metersPerPixel, terrainSize)

	// The spline runs along meter-y=50, terrain-pixel-y=50, image-pixel-y =
	// terrainSize-50 = 50 at 1 m/px: a horizontal strip should be filled
	// there, 3m (half of 6m width) to either side.
	imageY := terrainSize - 50
	if m.At(40, imageY) != 255 {
		t.Fatal("expected the road centerline pixel to be filled")
	}
	if m.At(40, imageY-4) != 0 {
		t.Fatal("expected a pixel well outside the road width to stay 0")
	}
}

func TestFillRoadSplineSkipsZeroWidth(t *testing.T) {
	s := &roadnet.ParameterizedRoadSpline{Spline: straightSpline(t, 80)}
	m := NewMask(100, 100)
	FillRoadSpline(m, s, 1, 100)
	if countSet(m) != 0 {
		t.Fatal("expected no fill for a spline with no width set")
	}
}

func TestFillRoadSplinePrefersSurfaceWidthOverDefault(t *testing.T) {
	terrainSize := 100
	wide := &roadnet.ParameterizedRoadSpline{
		Spline:                 straightSpline(t, 80),
		RoadWidthMeters:        2,
		RoadSurfaceWidthMeters: 20,
	}
	m := NewMask(terrainSize, terrainSize)
	FillRoadSpline(m, wide, 1, terrainSize)

	imageY := terrainSize - 50
	if m.At(40, imageY-8) != 255 {
		t.Fatal("expected the wider RoadSurfaceWidthMeters to take effect over RoadWidthMeters")
	}
}

func TestFillThickPolylineFillsAroundEachSegment(t *testing.T) {
	terrainSize := 50
	points := []geo.Vec2{{X: 0, Y: 25}, {X: 20, Y: 25}, {X: 20, Y: 40}}
	m := NewMask(terrainSize, terrainSize)
	FillThickPolyline(m, points, 2, 1, terrainSize)

	if m.At(10, terrainSize-25) != 255 {
		t.Fatal("expected the first segment's midpoint to be filled")
	}
	if m.At(20, terrainSize-33) != 255 {
		t.Fatal("expected the second segment's midpoint to be filled")
	}
}
