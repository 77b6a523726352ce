// Package geocoord implements C1, the coordinate transformer: mapping WGS84
// (lon,lat) to terrain-pixel and image-pixel space, in the two modes spec.md
// §4.1 describes (projected affine and linear fallback).
package geocoord

import (
	"github.com/MeKo-Tech/roadgeom/internal/errs"
	"github.com/MeKo-Tech/roadgeom/internal/geo"
)

// Geotransform is the six-element affine GeoTIFF convention: world coordinate
// = [ox + a*col + b*row, oy + c*col + d*row].
type Geotransform [6]float64

// ox, a, b, oy, c, d accessors for readability at call sites.
func (g Geotransform) ox() float64 { return g[0] }
func (g Geotransform) a() float64  { return g[1] }
func (g Geotransform) b() float64  { return g[2] }
func (g Geotransform) oy() float64 { return g[3] }
func (g Geotransform) c() float64  { return g[4] }
func (g Geotransform) d() float64  { return g[5] }

// toPixel inverts the affine to map a world coordinate (lon,lat) back to a
// continuous (col,row) pixel coordinate. ok is false when the affine is
// singular (a*d - b*c == 0).
func (g Geotransform) toPixel(lon, lat float64) (col, row float64, ok bool) {
	det := g.a()*g.d() - g.b()*g.c()
	if det == 0 {
		return 0, 0, false
	}
	dx := lon - g.ox()
	dy := lat - g.oy()
	col = (g.d()*dx - g.b()*dy) / det
	row = (-g.c()*dx + g.a()*dy) / det
	return col, row, true
}

// Config configures a Transformer. Geotransform is optional; when nil (or
// singular), the transformer falls back to linear bbox normalization
// (spec.md §4.1's "linear fallback" mode).
type Config struct {
	Bounds         geo.BoundingBox
	TerrainSize    int
	MetersPerPixel float64
	Geotransform   *Geotransform
	// CropOffsetX/Y shift the projected pixel coordinate when the terrain
	// raster is a crop of a larger source raster.
	CropOffsetX, CropOffsetY float64
}

// Transformer exposes exactly the two operations spec.md §4.1 names: the
// injected capability used by every pipeline stage that needs lon/lat <->
// pixel/meter conversion. No package-level singleton is used (spec.md §9).
type Transformer interface {
	// ToTerrainPixel maps (lon,lat) to terrain-pixel space: bottom-left
	// origin, Y increases north.
	ToTerrainPixel(lon, lat float64) (x, y float64)
	// ToImagePixel maps (lon,lat) to image-pixel space: top-left origin, Y
	// inverted relative to ToTerrainPixel.
	ToImagePixel(lon, lat float64) (x, y float64)
}

type transformer struct {
	cfg       Config
	projected bool
}

// New builds a Transformer from cfg. Returns an *errs.Error of kind
// InvalidInput if cfg.Bounds is not a valid box or TerrainSize <= 0.
func New(cfg Config) (Transformer, error) {
	if !cfg.Bounds.Valid() {
		return nil, errs.New(errs.InvalidInput, "geocoord: bounding box must satisfy maxLon>minLon and maxLat>minLat")
	}
	if cfg.TerrainSize <= 0 {
		return nil, errs.New(errs.InvalidInput, "geocoord: terrain size must be positive")
	}

	t := &transformer{cfg: cfg}
	if cfg.Geotransform != nil {
		det := cfg.Geotransform.a()*cfg.Geotransform.d() - cfg.Geotransform.b()*cfg.Geotransform.c()
		t.projected = det != 0
	}
	return t, nil
}

func (t *transformer) ToTerrainPixel(lon, lat float64) (float64, float64) {
	if t.projected {
		x, yImg, ok := t.projectedPixel(lon, lat)
		if ok {
			return x, float64(t.cfg.TerrainSize) - yImg
		}
	}
	nx, ny := t.normalized(lon, lat)
	return nx * float64(t.cfg.TerrainSize), ny * float64(t.cfg.TerrainSize)
}

func (t *transformer) ToImagePixel(lon, lat float64) (float64, float64) {
	if t.projected {
		if x, y, ok := t.projectedPixel(lon, lat); ok {
			return x, y
		}
	}
	nx, ny := t.normalized(lon, lat)
	return nx * float64(t.cfg.TerrainSize), (1 - ny) * float64(t.cfg.TerrainSize)
}

// projectedPixel returns the continuous image-space (top-left origin, Y
// down) pixel coordinate via the geotransform's inverse affine, adjusted for
// a configured crop offset.
func (t *transformer) projectedPixel(lon, lat float64) (x, y float64, ok bool) {
	col, row, ok := t.cfg.Geotransform.toPixel(lon, lat)
	if !ok {
		return 0, 0, false
	}
	return col - t.cfg.CropOffsetX, row - t.cfg.CropOffsetY, true
}

// normalized returns (nx, ny) in [0,1] for the linear-fallback mode: nx grows
// east, ny grows north. Precision contract (spec.md §4.1): exact only for
// unrotated, axis-aligned extents.
func (t *transformer) normalized(lon, lat float64) (nx, ny float64) {
	b := t.cfg.Bounds
	nx = (lon - b.MinLon) / b.Width()
	ny = (lat - b.MinLat) / b.Height()
	return nx, ny
}

// MetersPerPixel returns the configured scale factor.
func (t *transformer) MetersPerPixel() float64 { return t.cfg.MetersPerPixel }

// ToMeters converts a terrain-pixel coordinate to meter-space by multiplying
// by MetersPerPixel, per spec.md §4.10 step 1.
func ToMeters(x, y, metersPerPixel float64) geo.Vec2 {
	return geo.Vec2{X: x * metersPerPixel, Y: y * metersPerPixel}
}

// FromMeters is ToMeters's inverse: terrain-pixel coordinates from a
// meter-space vector, used by C2 to rasterize meter-space splines back
// onto the terrain-pixel mask grid.
func FromMeters(v geo.Vec2, metersPerPixel float64) (x, y float64) {
	if metersPerPixel <= 0 {
		return v.X, v.Y
	}
	return v.X / metersPerPixel, v.Y / metersPerPixel
}

// TerrainToImageY flips a terrain-pixel Y (bottom-left origin) to
// image-pixel Y (top-left origin) for a terrain of the given size.
func TerrainToImageY(terrainY float64, terrainSize int) float64 {
	return float64(terrainSize) - terrainY
}
