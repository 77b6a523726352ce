package geocoord

import "github.com/MeKo-Tech/roadgeom/internal/geo"

// outcode bits for Cohen-Sutherland clipping against [0,size]^2.
const (
	inside = 0
	left   = 1 << 0
	right  = 1 << 1
	bottom = 1 << 2
	top    = 1 << 3
)

func computeOutCode(x, y, size float64) int {
	code := inside
	switch {
	case x < 0:
		code |= left
	case x > size:
		code |= right
	}
	switch {
	case y < 0:
		code |= bottom
	case y > size:
		code |= top
	}
	return code
}

// ClipSegment clips the segment (x0,y0)-(x1,y1) against the square
// [0,size]x[0,size] using the Cohen-Sutherland algorithm. ok is false when
// the segment lies entirely outside the square.
func ClipSegment(x0, y0, x1, y1, size float64) (cx0, cy0, cx1, cy1 float64, ok bool) {
	out0 := computeOutCode(x0, y0, size)
	out1 := computeOutCode(x1, y1, size)

	for {
		if out0|out1 == 0 {
			return x0, y0, x1, y1, true
		}
		if out0&out1 != 0 {
			return 0, 0, 0, 0, false
		}

		var x, y float64
		outside := out0
		if outside == 0 {
			outside = out1
		}

		switch {
		case outside&top != 0:
			x = x0 + (x1-x0)*(size-y0)/(y1-y0)
			y = size
		case outside&bottom != 0:
			x = x0 + (x1-x0)*(0-y0)/(y1-y0)
			y = 0
		case outside&right != 0:
			y = y0 + (y1-y0)*(size-x0)/(x1-x0)
			x = size
		case outside&left != 0:
			y = y0 + (y1-y0)*(0-x0)/(x1-x0)
			x = 0
		}

		if outside == out0 {
			x0, y0 = x, y
			out0 = computeOutCode(x0, y0, size)
		} else {
			x1, y1 = x, y
			out1 = computeOutCode(x1, y1, size)
		}
	}
}

// ClipPolyline clips each consecutive segment of pts against [0,size]^2,
// returning a sequence of clipped sub-polylines (a single polyline can split
// into several pieces when it leaves and re-enters the square).
func ClipPolyline(pts []geo.Vec2, size float64) [][]geo.Vec2 {
	if len(pts) < 2 {
		return nil
	}

	var result [][]geo.Vec2
	var current []geo.Vec2

	for i := 0; i < len(pts)-1; i++ {
		x0, y0, x1, y1, ok := ClipSegment(pts[i].X, pts[i].Y, pts[i+1].X, pts[i+1].Y, size)
		if !ok {
			if len(current) > 1 {
				result = append(result, current)
			}
			current = nil
			continue
		}
		if len(current) == 0 {
			current = append(current, geo.Vec2{X: x0, Y: y0})
		}
		current = append(current, geo.Vec2{X: x1, Y: y1})
	}
	if len(current) > 1 {
		result = append(result, current)
	}
	return result
}
