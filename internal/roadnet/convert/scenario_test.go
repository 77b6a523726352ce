package convert

import (
	"math"
	"testing"

	"github.com/MeKo-Tech/roadgeom/internal/geo"
	"github.com/MeKo-Tech/roadgeom/internal/osm"
	"github.com/MeKo-Tech/roadgeom/internal/roundabout/detect"
)

// roundaboutTwoEntriesFeatures builds a 4-way square roundabout ring plus two
// residential ways, each touching a different ring corner on opposite sides
// of the square (a diagonal pair, ~180 degrees apart as seen from the ring
// centroid). Returns fresh *osm.OsmFeature values on every call so a test
// that mutates them (trimming) never leaks state into another test.
func roundaboutTwoEntriesFeatures() []*osm.OsmFeature {
	ringA := &osm.OsmFeature{
		ID:   1,
		Kind: osm.LineString,
		Tags: map[string]string{"junction": "roundabout", "highway": "primary"},
		Coordinates: []geo.Coordinate{
			{Lon: 0.500, Lat: 0.500},
			{Lon: 0.501, Lat: 0.500},
		},
	}
	ringB := &osm.OsmFeature{
		ID:   2,
		Kind: osm.LineString,
		Tags: map[string]string{"junction": "roundabout", "highway": "primary"},
		Coordinates: []geo.Coordinate{
			{Lon: 0.501, Lat: 0.500},
			{Lon: 0.501, Lat: 0.501},
		},
	}
	ringC := &osm.OsmFeature{
		ID:   3,
		Kind: osm.LineString,
		Tags: map[string]string{"junction": "roundabout", "highway": "primary"},
		Coordinates: []geo.Coordinate{
			{Lon: 0.501, Lat: 0.501},
			{Lon: 0.500, Lat: 0.501},
		},
	}
	ringD := &osm.OsmFeature{
		ID:   4,
		Kind: osm.LineString,
		Tags: map[string]string{"junction": "roundabout", "highway": "primary"},
		Coordinates: []geo.Coordinate{
			{Lon: 0.500, Lat: 0.501},
			{Lon: 0.500, Lat: 0.500},
		},
	}

	connector1 := &osm.OsmFeature{
		ID:   5,
		Kind: osm.LineString,
		Tags: map[string]string{"highway": "residential"},
		Coordinates: []geo.Coordinate{
			{Lon: 0.500, Lat: 0.500},
			{Lon: 0.499, Lat: 0.499},
			{Lon: 0.495, Lat: 0.495},
		},
	}
	connector2 := &osm.OsmFeature{
		ID:   6,
		Kind: osm.LineString,
		Tags: map[string]string{"highway": "residential"},
		Coordinates: []geo.Coordinate{
			{Lon: 0.501, Lat: 0.501},
			{Lon: 0.502, Lat: 0.502},
			{Lon: 0.506, Lat: 0.506},
		},
	}

	return []*osm.OsmFeature{ringA, ringB, ringC, ringD, connector1, connector2}
}

// TestRoundaboutTwoOppositeEntriesDetectedAndTrimmed covers spec.md §8's
// roundabout scenario end to end: detection finds a single closed ring with
// two connections roughly 180 degrees apart, and converting the material
// trims both connecting ways down to the arm outside the ring while still
// emitting one roundabout spline plus one spline per surviving connector.
func TestRoundaboutTwoOppositeEntriesDetectedAndTrimmed(t *testing.T) {
	detected := detect.Detect(&osm.OsmQueryResult{Features: roundaboutTwoEntriesFeatures()})
	if len(detected) != 1 {
		t.Fatalf("expected 1 roundabout, got %d", len(detected))
	}
	rb := detected[0]
	if len(rb.Connections) != 2 {
		t.Fatalf("expected 2 connections, got %d", len(rb.Connections))
	}
	diff := rb.Connections[1].AngleDegrees - rb.Connections[0].AngleDegrees
	if diff < 0 {
		diff += 360
	}
	if math.Abs(diff-180) > 0.5 {
		t.Fatalf("expected the two connections ~180deg apart, got %.4f", diff)
	}

	full := &osm.OsmQueryResult{Features: roundaboutTwoEntriesFeatures()}
	materialIDs := map[int64]bool{1: true, 2: true, 3: true, 4: true, 5: true, 6: true}

	transform := testTransformer(t)
	opts := DefaultConvertOptions()
	opts.MetersPerPixel = 1.0
	opts.TerrainSize = 1000

	out := ConvertMaterial(full, materialIDs, transform, opts, nil)
	if len(out) != 3 {
		t.Fatalf("expected 3 splines (1 ring + 2 trimmed connectors), got %d", len(out))
	}

	ringSplines := 0
	for _, s := range out {
		if s.IsRoundabout {
			ringSplines++
		}
	}
	if ringSplines != 1 {
		t.Fatalf("expected exactly 1 roundabout spline, got %d", ringSplines)
	}

	ringCornerA := geo.Coordinate{Lon: 0.500, Lat: 0.500}
	ringCornerC := geo.Coordinate{Lon: 0.501, Lat: 0.501}
	for _, f := range full.Features {
		if f.ID != 5 && f.ID != 6 {
			continue
		}
		for _, c := range f.Coordinates {
			if c.WithinTolerance(ringCornerA, 1e-9) || c.WithinTolerance(ringCornerC, 1e-9) {
				t.Fatalf("expected connecting way %d trimmed to exclude the ring node, still has %+v", f.ID, c)
			}
		}
	}
}
