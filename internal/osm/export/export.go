// Package export dumps a parsed OsmQueryResult to GeoJSON for debugging and
// for visual diffing against the upstream Overpass result, the road-geometry
// analogue of internal/geojson/converter.go's ToGeoJSON/ToGeoJSONBytes pair.
package export

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/MeKo-Tech/roadgeom/internal/geo"
	"github.com/MeKo-Tech/roadgeom/internal/osm"
)

// ToGeoJSON converts the features, structures, and roundabout rings of
// result into a single GeoJSON FeatureCollection, one geojson.Feature per
// OSM way/relation plus one per detected roundabout ring.
func ToGeoJSON(result *osm.OsmQueryResult, roundabouts []*osm.OsmRoundabout) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, f := range result.Features {
		fc.Append(featureToGeoJSON(f))
	}
	for _, s := range result.Structures {
		fc.Append(structureToGeoJSON(s))
	}
	for _, rb := range roundabouts {
		fc.Append(roundaboutToGeoJSON(rb))
	}

	return fc
}

// ToGeoJSONBytes renders ToGeoJSON's FeatureCollection as indented JSON.
func ToGeoJSONBytes(result *osm.OsmQueryResult, roundabouts []*osm.OsmRoundabout) ([]byte, error) {
	data, err := json.MarshalIndent(ToGeoJSON(result, roundabouts), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export: marshal geojson: %w", err)
	}
	return data, nil
}

func coordsToLineString(coords []geo.Coordinate) orb.LineString {
	ls := make(orb.LineString, len(coords))
	for i, c := range coords {
		ls[i] = orb.Point{c.Lon, c.Lat}
	}
	return ls
}

func featureToGeoJSON(f *osm.OsmFeature) *geojson.Feature {
	var geom orb.Geometry
	switch f.Kind {
	case osm.Point:
		if len(f.Coordinates) > 0 {
			geom = orb.Point{f.Coordinates[0].Lon, f.Coordinates[0].Lat}
		}
	case osm.Polygon:
		poly := orb.Polygon{coordsToLineString(f.Coordinates)}
		for _, inner := range f.InnerRings {
			poly = append(poly, coordsToLineString(inner))
		}
		geom = poly
	default:
		geom = coordsToLineString(f.Coordinates)
	}
	if geom == nil {
		return geojson.NewFeature(orb.LineString{})
	}

	gf := geojson.NewFeature(geom)
	gf.Properties["osm_id"] = f.ID
	gf.Properties["category"] = f.Category
	for k, v := range f.Tags {
		gf.Properties[k] = v
	}
	return gf
}

func structureToGeoJSON(s osm.OsmStructure) *geojson.Feature {
	gf := geojson.NewFeature(coordsToLineString(s.Coordinates))
	gf.Properties["osm_id"] = s.ID
	gf.Properties["is_bridge"] = s.IsBridge
	gf.Properties["is_tunnel"] = s.IsTunnel
	gf.Properties["layer"] = s.Layer
	for k, v := range s.Tags {
		gf.Properties[k] = v
	}
	return gf
}

func roundaboutToGeoJSON(rb *osm.OsmRoundabout) *geojson.Feature {
	gf := geojson.NewFeature(coordsToLineString(rb.Ring))
	gf.Properties["osm_id"] = rb.ID
	gf.Properties["feature_type"] = "roundabout"
	gf.Properties["way_ids"] = rb.WayIDs
	gf.Properties["radius_meters"] = rb.RadiusMeters
	gf.Properties["connection_count"] = len(rb.Connections)
	for k, v := range rb.Tags {
		gf.Properties[k] = v
	}
	return gf
}
