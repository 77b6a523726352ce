package convert

import (
	"testing"

	"github.com/MeKo-Tech/roadgeom/internal/diag"
	"github.com/MeKo-Tech/roadgeom/internal/geo"
	"github.com/MeKo-Tech/roadgeom/internal/geocoord"
	"github.com/MeKo-Tech/roadgeom/internal/osm"
)

func testTransformer(t *testing.T) geocoord.Transformer {
	t.Helper()
	transform, err := geocoord.New(geocoord.Config{
		Bounds:      geo.BoundingBox{MinLon: 0, MinLat: 0, MaxLon: 1, MaxLat: 1},
		TerrainSize: 1000,
	})
	if err != nil {
		t.Fatalf("geocoord.New: %v", err)
	}
	return transform
}

func TestConvertMaterialMergesConnectedFragments(t *testing.T) {
	// Two straight residential ways sharing node 200, together forming one
	// long straight path. Terrain is 1000px over 1 degree, metersPerPixel=1
	// so 1 degree of longitude == 1000m: 0.001-degree steps give 1m fragments.
	a := &osm.OsmFeature{
		ID:   1,
		Kind: osm.LineString,
		Tags: map[string]string{"highway": "residential"},
		Coordinates: []geo.Coordinate{
			{Lon: 0.000, Lat: 0.5},
			{Lon: 0.001, Lat: 0.5},
		},
		NodeIDs: []int64{100, 200},
	}
	b := &osm.OsmFeature{
		ID:   2,
		Kind: osm.LineString,
		Tags: map[string]string{"highway": "residential"},
		Coordinates: []geo.Coordinate{
			{Lon: 0.001, Lat: 0.5},
			{Lon: 0.002, Lat: 0.5},
		},
		NodeIDs: []int64{200, 300},
	}

	full := &osm.OsmQueryResult{Features: []*osm.OsmFeature{a, b}}
	materialIDs := map[int64]bool{1: true, 2: true}

	transform := testTransformer(t)
	opts := DefaultConvertOptions()
	opts.MetersPerPixel = 1.0
	opts.TerrainSize = 1000
	opts.EnableRoundabouts = false

	out := ConvertMaterial(full, materialIDs, transform, opts, nil)
	if len(out) != 1 {
		t.Fatalf("expected the two fragments to merge into 1 spline, got %d", len(out))
	}
	if out[0].IsRoundabout {
		t.Fatal("expected a regular spline, not a roundabout ring")
	}
}

func TestConvertMaterialDropsShortPaths(t *testing.T) {
	short := &osm.OsmFeature{
		ID:   1,
		Kind: osm.LineString,
		Tags: map[string]string{"highway": "residential"},
		Coordinates: []geo.Coordinate{
			{Lon: 0.0000, Lat: 0.5},
			{Lon: 0.0000001, Lat: 0.5}, // sub-1cm after meter conversion at this scale
		},
	}
	full := &osm.OsmQueryResult{Features: []*osm.OsmFeature{short}}
	materialIDs := map[int64]bool{1: true}

	transform := testTransformer(t)
	opts := DefaultConvertOptions()
	opts.MetersPerPixel = 1.0
	opts.TerrainSize = 1000
	opts.EnableRoundabouts = false
	opts.MinPathLengthMeters = 1.0

	collector := diag.NewCollector()
	out := ConvertMaterial(full, materialIDs, transform, opts, collector)
	if len(out) != 0 {
		t.Fatalf("expected the too-short path to be dropped, got %d splines", len(out))
	}
}

func TestConvertMaterialIgnoresOtherMaterialFeatures(t *testing.T) {
	mine := &osm.OsmFeature{
		ID:   1,
		Kind: osm.LineString,
		Tags: map[string]string{"highway": "residential"},
		Coordinates: []geo.Coordinate{
			{Lon: 0.000, Lat: 0.5},
			{Lon: 0.005, Lat: 0.5},
		},
	}
	other := &osm.OsmFeature{
		ID:   2,
		Kind: osm.LineString,
		Tags: map[string]string{"highway": "cycleway"},
		Coordinates: []geo.Coordinate{
			{Lon: 0.000, Lat: 0.6},
			{Lon: 0.005, Lat: 0.6},
		},
	}
	full := &osm.OsmQueryResult{Features: []*osm.OsmFeature{mine, other}}
	materialIDs := map[int64]bool{1: true}

	transform := testTransformer(t)
	opts := DefaultConvertOptions()
	opts.MetersPerPixel = 1.0
	opts.TerrainSize = 1000
	opts.EnableRoundabouts = false

	out := ConvertMaterial(full, materialIDs, transform, opts, nil)
	if len(out) != 1 {
		t.Fatalf("expected only feature 1's spline, got %d", len(out))
	}
	if out[0].WayID != 1 {
		t.Fatalf("expected way 1, got way %d", out[0].WayID)
	}
}
