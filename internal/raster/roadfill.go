package raster

import (
	"math"

	"github.com/MeKo-Tech/roadgeom/internal/geo"
	"github.com/MeKo-Tech/roadgeom/internal/geocoord"
	"github.com/MeKo-Tech/roadgeom/internal/roadnet"
)

// sampleStepMeters returns spec.md §4.2's fine sampling interval: the finer
// of a fixed 0.25m and half a terrain pixel.
func sampleStepMeters(metersPerPixel float64) float64 {
	step := 0.25
	if half := metersPerPixel * 0.5; half < step {
		step = half
	}
	if step <= 0 {
		step = 0.25
	}
	return step
}

// toImagePixel converts a meter-space point to image-pixel space (top-left
// origin): terrain-pixel via geocoord.FromMeters, then Y-flip.
func toImagePixel(p geo.Vec2, metersPerPixel float64, terrainSize int) geo.Vec2 {
	tx, ty := geocoord.FromMeters(p, metersPerPixel)
	return geo.Vec2{X: tx, Y: geocoord.TerrainToImageY(ty, terrainSize)}
}

// FillRoadSpline implements spec.md §4.2's quad-strip rasterization: sample
// s at sampleStepMeters(metersPerPixel), and for each consecutive pair of
// samples emit a quad offset by +-halfWidth along each sample's normal,
// filling the quad in image-space via scanline. The half-width used is
// s.EffectiveWidthMeters()/2.
func FillRoadSpline(m *Mask, s *roadnet.ParameterizedRoadSpline, metersPerPixel float64, terrainSize int) {
	width := s.EffectiveWidthMeters()
	if width <= 0 {
		return
	}
	halfWidth := width / 2

	step := sampleStepMeters(metersPerPixel)
	samples := s.Spline.SampleByDistance(step)
	if len(samples) < 2 {
		return
	}

	for i := 0; i+1 < len(samples); i++ {
		a, b := samples[i], samples[i+1]
		quad := []geo.Vec2{
			toImagePixel(a.Position.Add(a.Normal.Scale(halfWidth)), metersPerPixel, terrainSize),
			toImagePixel(b.Position.Add(b.Normal.Scale(halfWidth)), metersPerPixel, terrainSize),
			toImagePixel(b.Position.Add(b.Normal.Scale(-halfWidth)), metersPerPixel, terrainSize),
			toImagePixel(a.Position.Add(a.Normal.Scale(-halfWidth)), metersPerPixel, terrainSize),
		}
		fillRingScanline(m, quad, 255)
	}
}

// FillThickPolyline implements spec.md §4.2's thick-polyline fallback, used
// only for rendering the original (pre-trim) OSM path in debug output: a
// dense per-segment half-width offset perpendicular to the segment
// direction, writing 255. points and halfWidth are both in meters.
func FillThickPolyline(m *Mask, points []geo.Vec2, halfWidth, metersPerPixel float64, terrainSize int) {
	if len(points) < 2 || halfWidth <= 0 {
		return
	}
	dense := densifyPolyline(points, sampleStepMeters(metersPerPixel))
	if len(dense) < 2 {
		return
	}

	for i := 0; i+1 < len(dense); i++ {
		a, b := dense[i], dense[i+1]
		segLen := a.Distance(b)
		if segLen < 1e-9 {
			continue
		}
		normal := b.Sub(a).Scale(1 / segLen).LeftNormal()

		quad := []geo.Vec2{
			toImagePixel(a.Add(normal.Scale(halfWidth)), metersPerPixel, terrainSize),
			toImagePixel(b.Add(normal.Scale(halfWidth)), metersPerPixel, terrainSize),
			toImagePixel(b.Add(normal.Scale(-halfWidth)), metersPerPixel, terrainSize),
			toImagePixel(a.Add(normal.Scale(-halfWidth)), metersPerPixel, terrainSize),
		}
		fillRingScanline(m, quad, 255)
	}
}

// densifyPolyline inserts evenly spaced points along every segment of
// points so no gap exceeds step, without altering existing vertex
// positions (spec.md §4.2's "dense sampling" for the thick-polyline path).
func densifyPolyline(points []geo.Vec2, step float64) []geo.Vec2 {
	if step <= 0 {
		step = 0.25
	}
	out := make([]geo.Vec2, 0, len(points))
	out = append(out, points[0])
	for i := 0; i+1 < len(points); i++ {
		a, b := points[i], points[i+1]
		segLen := a.Distance(b)
		if segLen < 1e-9 {
			continue
		}
		n := int(math.Ceil(segLen / step))
		for j := 1; j <= n; j++ {
			t := float64(j) / float64(n)
			out = append(out, a.Add(b.Sub(a).Scale(t)))
		}
	}
	return out
}

// DrawDebugLine draws a single-pixel Bresenham line between two image-pixel
// points into m, writing value (spec.md §6's debug visualization output).
func DrawDebugLine(m *Mask, x0, y0, x1, y1 int, value uint8) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy

	for {
		m.Set(x0, y0, value)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
