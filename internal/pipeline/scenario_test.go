package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/roadgeom/internal/config"
	"github.com/MeKo-Tech/roadgeom/internal/geo"
	"github.com/MeKo-Tech/roadgeom/internal/geocoord"
	"github.com/MeKo-Tech/roadgeom/internal/osm"
)

// TestScenarioSimpleStraightRoad covers spec.md §8's straight-road scenario:
// one OSM way running 0.001 degrees of latitude (~111.32m) in a 1000x1000
// terrain, tagged width=1 so it rasterizes as an exact 1-pixel-wide strip.
// The bounding box's latitude extent is chosen so the transform's
// bounds-relative normalization reproduces that real-world distance exactly.
func TestScenarioSimpleStraightRoad(t *testing.T) {
	const terrainSize = 1000
	const metersPerDegreeLat = 111320.0

	bounds := geo.BoundingBox{
		MinLon: 0, MinLat: 0,
		MaxLon: 1, MaxLat: float64(terrainSize) / metersPerDegreeLat,
	}
	transform, err := geocoord.New(geocoord.Config{Bounds: bounds, TerrainSize: terrainSize})
	require.NoError(t, err)

	road := &osm.OsmFeature{
		ID:   1,
		Kind: osm.LineString,
		Tags: map[string]string{"highway": "residential", "width": "1"},
		Coordinates: []geo.Coordinate{
			{Lon: 0, Lat: 0},
			{Lon: 0, Lat: 0.001},
		},
		NodeIDs: []int64{100, 200},
	}
	full := &osm.OsmQueryResult{Features: []*osm.OsmFeature{road}}

	cfg := config.Defaults()
	cfg.MetersPerPixel = 1.0
	cfg.TerrainSize = terrainSize

	opts := DefaultOptions(cfg, transform)
	opts.ConvertOptions.EnableRoundabouts = false

	materials := []Material{{Name: "roads", WayIDs: map[int64]bool{1: true}}}

	result, err := Run(full, materials, opts, nil)
	require.NoError(t, err)
	require.Len(t, result.Splines["roads"], 1, "expected exactly 1 spline")

	length := result.Splines["roads"][0].Spline.TotalLength()
	require.InDelta(t, 111.32, length, 0.5, "expected the spline length to be ~111.32m")

	mask := result.LayerMasks["roads"]
	require.NotNil(t, mask)

	filled := 0
	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			if mask.At(x, y) != 255 {
				continue
			}
			filled++
			if x != 0 {
				t.Fatalf("expected only column 0 filled, found a set pixel at x=%d y=%d", x, y)
			}
		}
	}
	require.Greater(t, filled, 0, "expected at least one filled pixel in column 0")
}
