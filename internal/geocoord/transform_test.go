package geocoord

import (
	"math"
	"testing"

	"github.com/MeKo-Tech/roadgeom/internal/geo"
)

func bboxFixture() geo.BoundingBox {
	return geo.BoundingBox{MinLon: 9.0, MinLat: 52.0, MaxLon: 9.1, MaxLat: 52.1}
}

// TestLinearRoundTrip verifies property 1: for any (lon,lat) inside the
// bounding box, ToTerrainPixel followed by its inverse reproduces (lon,lat)
// within 1e-6 in linear mode.
func TestLinearRoundTrip(t *testing.T) {
	b := bboxFixture()
	tr, err := New(Config{Bounds: b, TerrainSize: 1000, MetersPerPixel: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cases := []geo.Coordinate{
		{Lon: 9.0, Lat: 52.0},
		{Lon: 9.1, Lat: 52.1},
		{Lon: 9.05, Lat: 52.05},
		{Lon: 9.02, Lat: 52.08},
	}

	for _, c := range cases {
		x, y := tr.ToTerrainPixel(c.Lon, c.Lat)
		// invert the linear normalization directly (no geotransform configured)
		nx := x / 1000
		ny := y / 1000
		lon := b.MinLon + nx*b.Width()
		lat := b.MinLat + ny*b.Height()
		if math.Abs(lon-c.Lon) > 1e-6 || math.Abs(lat-c.Lat) > 1e-6 {
			t.Errorf("round trip mismatch for %+v: got (%v,%v)", c, lon, lat)
		}
	}
}

// TestImagePixelYInversion checks that ToImagePixel and ToTerrainPixel agree
// on X but invert Y around TerrainSize.
func TestImagePixelYInversion(t *testing.T) {
	b := bboxFixture()
	tr, _ := New(Config{Bounds: b, TerrainSize: 1000, MetersPerPixel: 1})

	lon, lat := 9.05, 52.05
	tx, ty := tr.ToTerrainPixel(lon, lat)
	ix, iy := tr.ToImagePixel(lon, lat)

	if math.Abs(tx-ix) > 1e-9 {
		t.Errorf("expected matching X, got terrain=%v image=%v", tx, ix)
	}
	if math.Abs((ty+iy)-1000) > 1e-9 {
		t.Errorf("expected ty+iy == terrainSize, got %v + %v", ty, iy)
	}
}

// TestProjectedMode exercises the geotransform inverse-affine path with an
// unrotated affine, where it should agree with the linear-fallback result.
func TestProjectedMode(t *testing.T) {
	b := bboxFixture()
	// Identity-like geotransform over a 1000x1000 raster spanning the bbox.
	const size = 1000.0
	a := b.Width() / size
	d := -b.Height() / size // GeoTIFF row increases downward -> negative d
	gt := Geotransform{b.MinLon, a, 0, b.MaxLat, 0, d}

	tr, err := New(Config{Bounds: b, TerrainSize: size, MetersPerPixel: 1, Geotransform: &gt})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	x, y := tr.ToImagePixel(b.MinLon, b.MaxLat)
	if math.Abs(x) > 0.5 || math.Abs(y) > 0.5 {
		t.Errorf("expected top-left corner near (0,0), got (%v,%v)", x, y)
	}

	x, y = tr.ToImagePixel(b.MaxLon, b.MinLat)
	if math.Abs(x-size) > 0.5 || math.Abs(y-size) > 0.5 {
		t.Errorf("expected bottom-right corner near (%v,%v), got (%v,%v)", size, size, x, y)
	}
}

func TestNewRejectsInvalidBounds(t *testing.T) {
	_, err := New(Config{Bounds: geo.BoundingBox{}, TerrainSize: 100})
	if err == nil {
		t.Fatal("expected error for empty bounding box")
	}
}

func TestNewRejectsNonPositiveTerrainSize(t *testing.T) {
	_, err := New(Config{Bounds: bboxFixture(), TerrainSize: 0})
	if err == nil {
		t.Fatal("expected error for non-positive terrain size")
	}
}
