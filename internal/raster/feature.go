package raster

import (
	"github.com/MeKo-Tech/roadgeom/internal/geo"
	"github.com/MeKo-Tech/roadgeom/internal/geocoord"
	"github.com/MeKo-Tech/roadgeom/internal/osm"
)

// projectRing converts a lon/lat ring to image-pixel space.
func projectRing(ring []geo.Coordinate, transform geocoord.Transformer) []geo.Vec2 {
	out := make([]geo.Vec2, len(ring))
	for i, c := range ring {
		x, y := transform.ToImagePixel(c.Lon, c.Lat)
		out[i] = geo.Vec2{X: x, Y: y}
	}
	return out
}

// FillPolygonFeature rasterizes f (kind osm.Polygon) into m per spec.md
// §4.2: outer ring and inner rings scanline-filled, additional
// multipolygon outer parts filled with no hole inheritance. Features of
// any other kind are ignored.
func FillPolygonFeature(m *Mask, f *osm.OsmFeature, transform geocoord.Transformer) {
	if f.Kind != osm.Polygon {
		return
	}

	outer := projectRing(f.Coordinates, transform)
	inner := make([][]geo.Vec2, len(f.InnerRings))
	for i, r := range f.InnerRings {
		inner[i] = projectRing(r, transform)
	}
	outerParts := make([][]geo.Vec2, len(f.OuterParts))
	for i, r := range f.OuterParts {
		outerParts[i] = projectRing(r, transform)
	}

	FillMultipolygon(m, outer, inner, outerParts)
}
