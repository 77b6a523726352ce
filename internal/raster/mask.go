// Package raster implements C2, the rasterizer (spec.md §4.2): scanline
// polygon-with-holes fill, quad-strip-from-spline fill for road layers, a
// thick-polyline fallback, and Bresenham debug lines, all writing directly
// into a single-channel byte mask with idempotent 0/255 writes.
package raster

import "github.com/MeKo-Tech/roadgeom/internal/geo"

// Mask is a single-channel 8-bit layer raster, image-pixel space (top-left
// origin, Y down), 255 meaning "feature present" and 0 "absent" (spec.md
// §6's layer mask output contract).
type Mask struct {
	Pix           []uint8
	Width, Height int
}

// NewMask allocates a zeroed width x height mask.
func NewMask(width, height int) *Mask {
	return &Mask{Pix: make([]uint8, width*height), Width: width, Height: height}
}

// At returns the pixel value at (x,y), or 0 if out of bounds.
func (m *Mask) At(x, y int) uint8 {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return 0
	}
	return m.Pix[y*m.Width+x]
}

// Set writes v at (x,y); out-of-bounds writes are silently dropped.
func (m *Mask) Set(x, y int, v uint8) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.Pix[y*m.Width+x] = v
}

// edge is one polygon-ring edge expressed for the scanline sweep: y0 < y1
// always, with x0 the x at y0.
type edge struct {
	y0, y1 float64
	x0     float64
	invSlope float64 // dx per dy
}

func ringEdges(ring []geo.Vec2) []edge {
	var edges []edge
	n := len(ring)
	for i := 0; i < n; i++ {
		a := ring[i]
		b := ring[(i+1)%n]
		if a.Y == b.Y {
			continue // horizontal edges never contribute a scanline crossing
		}
		y0, y1, x0, x1 := a.Y, b.Y, a.X, b.X
		if y0 > y1 {
			y0, y1 = y1, y0
			x0, x1 = x1, x0
		}
		edges = append(edges, edge{y0: y0, y1: y1, x0: x0, invSlope: (x1 - x0) / (y1 - y0)})
	}
	return edges
}

// scanlineXs returns the sorted x-intersections of edges with horizontal
// line y, using the half-open [y0,y1) convention so a vertex shared by two
// edges contributes exactly one crossing.
func scanlineXs(edges []edge, y float64) []float64 {
	var xs []float64
	for _, e := range edges {
		if y < e.y0 || y >= e.y1 {
			continue
		}
		xs = append(xs, e.x0+(y-e.y0)*e.invSlope)
	}
	sortFloats(xs)
	return xs
}

func sortFloats(xs []float64) {
	for i := 1; i < len(xs); i++ {
		for j := i; j > 0 && xs[j-1] > xs[j]; j-- {
			xs[j-1], xs[j] = xs[j], xs[j-1]
		}
	}
}

// fillRingScanline sweeps every integer scanline y in [0,m.Height) that
// falls inside ring's y-bounds, computing edge intersections and filling
// between successive pairs with value, per spec.md §4.2's exact-pair-fill
// rule (even-odd convention: 1st-2nd pair filled, 3rd-4th pair
// filled, etc).
func fillRingScanline(m *Mask, ring []geo.Vec2, value uint8) {
	if len(ring) < 3 {
		return
	}
	edges := ringEdges(ring)
	if len(edges) == 0 {
		return
	}

	minY, maxY := ring[0].Y, ring[0].Y
	for _, p := range ring[1:] {
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}

	yStart := clampInt(int(minY), 0, m.Height-1)
	yEnd := clampInt(int(maxY), 0, m.Height-1)

	for y := yStart; y <= yEnd; y++ {
		xs := scanlineXs(edges, float64(y)+0.5)
		for i := 0; i+1 < len(xs); i += 2 {
			x0 := clampInt(int(xs[i]+0.5), 0, m.Width-1)
			x1 := clampInt(int(xs[i+1]-0.5), 0, m.Width-1)
			for x := x0; x <= x1; x++ {
				m.Set(x, y, value)
			}
		}
	}
}

// FillPolygonWithHoles implements spec.md §4.2's polygon-with-holes fill:
// the outer ring is scanline-filled with 255, then every inner ring is
// scanline-filled with 0 (a hole always wins over the outer fill,
// regardless of write order within this call).
func FillPolygonWithHoles(m *Mask, outer []geo.Vec2, inner [][]geo.Vec2) {
	fillRingScanline(m, outer, 255)
	for _, hole := range inner {
		fillRingScanline(m, hole, 0)
	}
}

// FillMultipolygon implements spec.md §4.2's multipolygon rule: the primary
// outer ring plus holes fill as FillPolygonWithHoles, and every additional
// outer part fills 255 with no hole inheritance (an extra part's own holes,
// if any, must be passed as part of outerParts by the caller pairing them
// itself - spec.md's multipolygon model keeps one hole list per primary
// ring only).
func FillMultipolygon(m *Mask, outer []geo.Vec2, inner [][]geo.Vec2, outerParts [][]geo.Vec2) {
	FillPolygonWithHoles(m, outer, inner)
	for _, part := range outerParts {
		fillRingScanline(m, part, 255)
	}
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
