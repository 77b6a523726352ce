package export

import (
	"testing"

	"github.com/MeKo-Tech/roadgeom/internal/geo"
	"github.com/MeKo-Tech/roadgeom/internal/osm"
)

func TestToGeoJSONWayFeature(t *testing.T) {
	result := &osm.OsmQueryResult{
		Features: []*osm.OsmFeature{
			{
				ID:   100,
				Kind: osm.LineString,
				Tags: map[string]string{"highway": "residential"},
				Coordinates: []geo.Coordinate{
					{Lon: 9.73, Lat: 52.37},
					{Lon: 9.74, Lat: 52.38},
				},
			},
		},
	}

	fc := ToGeoJSON(result, nil)
	if len(fc.Features) != 1 {
		t.Fatalf("expected 1 feature, got %d", len(fc.Features))
	}

	f := fc.Features[0]
	if f.Geometry.GeoJSONType() != "LineString" {
		t.Errorf("expected LineString, got %s", f.Geometry.GeoJSONType())
	}
	if f.Properties["osm_id"] != int64(100) {
		t.Errorf("expected osm_id=100, got %v", f.Properties["osm_id"])
	}
	if f.Properties["highway"] != "residential" {
		t.Errorf("expected highway=residential property")
	}
}

func TestToGeoJSONIncludesStructuresAndRoundabouts(t *testing.T) {
	result := &osm.OsmQueryResult{
		Structures: []osm.OsmStructure{
			{
				ID:       200,
				IsBridge: true,
				Coordinates: []geo.Coordinate{
					{Lon: 9.70, Lat: 52.30},
					{Lon: 9.71, Lat: 52.31},
				},
			},
		},
	}
	roundabouts := []*osm.OsmRoundabout{
		{
			ID:     300,
			WayIDs: []int64{1, 2},
			Ring: []geo.Coordinate{
				{Lon: 9.0, Lat: 52.0},
				{Lon: 9.1, Lat: 52.0},
				{Lon: 9.1, Lat: 52.1},
				{Lon: 9.0, Lat: 52.0},
			},
		},
	}

	fc := ToGeoJSON(result, roundabouts)
	if len(fc.Features) != 2 {
		t.Fatalf("expected 2 features (structure + roundabout), got %d", len(fc.Features))
	}

	bridge := fc.Features[0]
	if bridge.Properties["is_bridge"] != true {
		t.Errorf("expected is_bridge=true")
	}

	ring := fc.Features[1]
	if ring.Properties["feature_type"] != "roundabout" {
		t.Errorf("expected feature_type=roundabout, got %v", ring.Properties["feature_type"])
	}
}

func TestToGeoJSONBytesProducesValidJSON(t *testing.T) {
	result := &osm.OsmQueryResult{
		Features: []*osm.OsmFeature{
			{ID: 1, Kind: osm.Point, Coordinates: []geo.Coordinate{{Lon: 9.7, Lat: 52.3}}},
		},
	}

	data, err := ToGeoJSONBytes(result, nil)
	if err != nil {
		t.Fatalf("ToGeoJSONBytes failed: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty GeoJSON bytes")
	}
}
