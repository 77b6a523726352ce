package trim

import (
	"testing"

	"github.com/MeKo-Tech/roadgeom/internal/geo"
	"github.com/MeKo-Tech/roadgeom/internal/osm"
)

func squareRing() *osm.OsmRoundabout {
	return &osm.OsmRoundabout{
		ID:           1,
		Center:       geo.Coordinate{Lon: 9.0005, Lat: 52.0005},
		RadiusMeters: 70,
		Ring: []geo.Coordinate{
			{Lon: 9.000, Lat: 52.000},
			{Lon: 9.001, Lat: 52.000},
			{Lon: 9.001, Lat: 52.001},
			{Lon: 9.000, Lat: 52.001},
			{Lon: 9.000, Lat: 52.000},
		},
	}
}

func TestTrimOneTransitionKeepsPrefix(t *testing.T) {
	rb := squareRing()
	// connector starts off-ring, ends exactly on a ring coordinate
	f := &osm.OsmFeature{
		ID:   10,
		Kind: osm.LineString,
		Tags: map[string]string{"highway": "residential"},
		Coordinates: []geo.Coordinate{
			{Lon: 8.999, Lat: 51.999},
			{Lon: 8.9995, Lat: 51.9995},
			{Lon: 9.000, Lat: 52.000}, // on ring
		},
	}
	result := &osm.OsmQueryResult{Features: []*osm.OsmFeature{f}}

	Trim(result, []*osm.OsmRoundabout{rb}, DefaultOptions())

	if len(result.Features) != 1 {
		t.Fatalf("expected feature to survive trimmed, got %d features", len(result.Features))
	}
	got := result.Features[0]
	if len(got.Coordinates) != 3 {
		t.Fatalf("expected all 3 coordinates kept (single on/off transition at end), got %d", len(got.Coordinates))
	}
}

func TestTrimAllOnRingDeletesFeature(t *testing.T) {
	rb := squareRing()
	f := &osm.OsmFeature{
		ID:          11,
		Kind:        osm.LineString,
		Tags:        map[string]string{"highway": "residential"},
		Coordinates: append([]geo.Coordinate(nil), rb.Ring[:3]...),
	}
	result := &osm.OsmQueryResult{Features: []*osm.OsmFeature{f}}

	Trim(result, []*osm.OsmRoundabout{rb}, DefaultOptions())

	if len(result.Features) != 0 {
		t.Fatalf("expected feature entirely on ring to be deleted, got %d features", len(result.Features))
	}
}

func TestTrimNoOverlapLeavesIntact(t *testing.T) {
	rb := squareRing()
	f := &osm.OsmFeature{
		ID:   12,
		Kind: osm.LineString,
		Tags: map[string]string{"highway": "residential"},
		Coordinates: []geo.Coordinate{
			{Lon: 10.0, Lat: 53.0},
			{Lon: 10.1, Lat: 53.1},
		},
	}
	result := &osm.OsmQueryResult{Features: []*osm.OsmFeature{f}}

	Trim(result, []*osm.OsmRoundabout{rb}, DefaultOptions())

	if len(result.Features) != 1 || len(result.Features[0].Coordinates) != 2 {
		t.Fatalf("expected feature untouched, got %+v", result.Features)
	}
}
