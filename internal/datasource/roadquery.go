package datasource

import (
	"fmt"

	"github.com/MeKo-Christian/go-overpass"

	"github.com/MeKo-Tech/roadgeom/internal/geo"
	"github.com/MeKo-Tech/roadgeom/internal/osm"
)

// RoadDataSource fetches OSM road network data from the Overpass API for a
// bounding box: it queries the full road network (plus route and
// multipolygon relations) for an arbitrary bounds and hands the raw result
// to osm.FromOverpassResult.
type RoadDataSource struct {
	client overpass.Client
}

// NewRoadDataSource builds a RoadDataSource from an OverpassConfig, filling
// in the default endpoint, worker count and HTTP client where cfg leaves
// them unset.
func NewRoadDataSource(cfg OverpassConfig) *RoadDataSource {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://overpass-api.de/api/interpreter"
	}
	if cfg.Workers < 1 {
		cfg.Workers = 2
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = DefaultOverpassConfig().HTTPClient
	}

	var client overpass.Client
	if cfg.RetryConfig != nil {
		client = overpass.NewWithRetry(cfg.Endpoint, cfg.Workers, cfg.HTTPClient, *cfg.RetryConfig)
	} else {
		client = overpass.NewWithSettings(cfg.Endpoint, cfg.Workers, cfg.HTTPClient)
	}
	return &RoadDataSource{client: client}
}

// buildRoadNetworkQuery requests every highway way plus the route and
// multipolygon relations (route=road relations feed C4's relation-ordered
// path assembly and C5's shared-route score; type=multipolygon for
// roundabout islands), using the "geom qt" unclipped-geometry output mode
// so ways at the bbox edge carry full geometry, which spec.md §4.7's trim
// stage needs.
func buildRoadNetworkQuery(bounds geo.BoundingBox) string {
	bbox := fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", bounds.MinLat, bounds.MinLon, bounds.MaxLat, bounds.MaxLon)
	return fmt.Sprintf(`[out:json][timeout:120];
(
  way["highway"](%s);
  relation["type"="route"]["route"="road"](%s);
  relation["type"="multipolygon"]["highway"="roundabout"](%s);
);
out geom qt;
`, bbox, bbox, bbox)
}

// FetchRoadNetwork queries the Overpass API for bounds and converts the
// result into a core OsmQueryResult via osm.FromOverpassResult.
func (ds *RoadDataSource) FetchRoadNetwork(bounds geo.BoundingBox) (*osm.OsmQueryResult, error) {
	if !bounds.Valid() {
		return nil, fmt.Errorf("roadquery: invalid bounds %+v", bounds)
	}
	result, err := ds.client.Query(buildRoadNetworkQuery(bounds))
	if err != nil {
		return nil, fmt.Errorf("roadquery: overpass query failed: %w", err)
	}
	return osm.FromOverpassResult(&result, bounds), nil
}
