package match

import (
	"testing"

	"github.com/MeKo-Tech/roadgeom/internal/diag"
	"github.com/MeKo-Tech/roadgeom/internal/geo"
	"github.com/MeKo-Tech/roadgeom/internal/osm"
	"github.com/MeKo-Tech/roadgeom/internal/roadnet"
	"github.com/MeKo-Tech/roadgeom/internal/spline"
)

// identityTransformer maps lon/lat directly to pixel coordinates, so with
// metersPerPixel=1 meter-space coordinates equal lon/lat numerically.
type identityTransformer struct{}

func (identityTransformer) ToTerrainPixel(lon, lat float64) (float64, float64) { return lon, lat }
func (identityTransformer) ToImagePixel(lon, lat float64) (float64, float64)   { return lon, lat }

func straightSpline(t *testing.T, id int64, x0, y0, x1, y1 float64) *roadnet.ParameterizedRoadSpline {
	t.Helper()
	s, err := spline.New([]geo.Vec2{{X: x0, Y: y0}, {X: x1, Y: y1}}, spline.LinearControlPoints)
	if err != nil {
		t.Fatalf("spline.New: %v", err)
	}
	return &roadnet.ParameterizedRoadSpline{ID: id, Spline: s, WayID: id}
}

func TestMatchAttachesBridgeToOverlappingSpline(t *testing.T) {
	splines := []*roadnet.ParameterizedRoadSpline{
		straightSpline(t, 1, 0, 0, 100, 0),
		straightSpline(t, 2, 0, 500, 100, 500), // far away, shouldn't match
	}
	structures := []osm.OsmStructure{
		{
			ID:       10,
			IsBridge: true,
			Layer:    1,
			Tags:     map[string]string{"bridge": "yes"},
			Coordinates: []geo.Coordinate{
				{Lon: 20, Lat: 0.5},
				{Lon: 40, Lat: 0.5},
				{Lon: 60, Lat: 0.5},
			},
		},
	}

	Match(splines, structures, identityTransformer{}, 1.0, DefaultOptions(), nil)

	if !splines[0].IsBridge {
		t.Fatal("expected splines[0] to be matched as a bridge")
	}
	if splines[0].StructureData == nil || splines[0].StructureData.StructureID != 10 {
		t.Fatalf("expected StructureData to reference structure 10, got %+v", splines[0].StructureData)
	}
	if splines[1].IsBridge {
		t.Fatal("expected the far spline to remain unmatched")
	}
}

func TestMatchSkipsStructureWithNoNearbySpline(t *testing.T) {
	splines := []*roadnet.ParameterizedRoadSpline{
		straightSpline(t, 1, 0, 0, 100, 0),
	}
	structures := []osm.OsmStructure{
		{
			ID:          11,
			IsTunnel:    true,
			Coordinates: []geo.Coordinate{{Lon: 5000, Lat: 5000}, {Lon: 5010, Lat: 5000}},
		},
	}

	collector := diag.NewCollector()
	Match(splines, structures, identityTransformer{}, 1.0, DefaultOptions(), collector)

	if splines[0].IsTunnel {
		t.Fatal("expected no match for a structure far outside any spline's grid neighborhood")
	}
	if collector.CountAtLeast(diag.Warning) == 0 {
		t.Fatal("expected an unmatched-structure warning")
	}
}

func TestMatchPicksHigherOverlapCandidate(t *testing.T) {
	// Two splines run close together; the structure should prefer the one
	// it overlaps more closely (lower avgDist -> higher score).
	splines := []*roadnet.ParameterizedRoadSpline{
		straightSpline(t, 1, 0, 0, 100, 0),
		straightSpline(t, 2, 0, 8, 100, 8),
	}
	structures := []osm.OsmStructure{
		{
			ID:       20,
			IsBridge: true,
			Coordinates: []geo.Coordinate{
				{Lon: 10, Lat: 0},
				{Lon: 30, Lat: 0},
				{Lon: 50, Lat: 0},
			},
		},
	}

	Match(splines, structures, identityTransformer{}, 1.0, DefaultOptions(), nil)

	if !splines[0].IsBridge {
		t.Fatal("expected the exactly-overlapping spline to win")
	}
	if splines[1].IsBridge {
		t.Fatal("expected the offset spline to lose")
	}
}
