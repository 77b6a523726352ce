// Package heightmap holds the terrain elevation grid C11 samples when
// computing tunnel clearance and grade validation (spec.md §6).
package heightmap

import (
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
)

// Grid is a [height][width] array of elevations in meters above the
// terrain base, indexed [y][x] with origin bottom-left (spec.md §6).
type Grid struct {
	data          [][]float32
	width, height int
}

// NewGrid wraps data as a Grid. data must be rectangular ([height][width]);
// NewGrid does not copy it.
func NewGrid(data [][]float32) *Grid {
	g := &Grid{data: data, height: len(data)}
	if g.height > 0 {
		g.width = len(data[0])
	}
	return g
}

// Width returns the grid's column count.
func (g *Grid) Width() int { return g.width }

// Height returns the grid's row count.
func (g *Grid) Height() int { return g.height }

// At returns the raw elevation at integer pixel (x,y), clamped to bounds.
func (g *Grid) At(x, y int) float32 {
	x = clampInt(x, 0, g.width-1)
	y = clampInt(y, 0, g.height-1)
	return g.data[y][x]
}

// Sample bilinearly interpolates the elevation at fractional pixel (x,y),
// clamping out-of-range coordinates to the grid edge (spec.md §4.12).
func (g *Grid) Sample(x, y float64) float64 {
	if g.width == 0 || g.height == 0 {
		return 0
	}

	x = clampFloat(x, 0, float64(g.width-1))
	y = clampFloat(y, 0, float64(g.height-1))

	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	x1 := clampInt(x0+1, 0, g.width-1)
	y1 := clampInt(y0+1, 0, g.height-1)

	fx := x - float64(x0)
	fy := y - float64(y0)

	v00 := float64(g.At(x0, y0))
	v10 := float64(g.At(x1, y0))
	v01 := float64(g.At(x0, y1))
	v11 := float64(g.At(x1, y1))

	top := v00 + (v10-v00)*fx
	bottom := v01 + (v11-v01)*fx
	return top + (bottom-top)*fy
}

// LoadPNG decodes a grayscale (8- or 16-bit) PNG at path into a Grid, scaling
// each pixel linearly from [0,maxPixelValue] to [0,maxElevationMeters], the
// way the teacher's readPNG decodes texture PNGs from disk before further
// processing.
func LoadPNG(path string, maxElevationMeters float64) (*Grid, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("heightmap: open %s: %w", path, err)
	}
	defer file.Close() // nolint:errcheck

	img, err := png.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("heightmap: decode %s: %w", path, err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	data := make([][]float32, height)

	gray16, is16 := img.(*image.Gray16)
	gray8, is8 := img.(*image.Gray)

	for y := 0; y < height; y++ {
		row := make([]float32, width)
		for x := 0; x < width; x++ {
			var frac float64
			switch {
			case is16:
				frac = float64(gray16.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y) / 65535
			case is8:
				frac = float64(gray8.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y) / 255
			default:
				r, _, _, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
				frac = float64(r) / 65535
			}
			row[x] = float32(frac * maxElevationMeters)
		}
		data[y] = row
	}

	return NewGrid(data), nil
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

func clampFloat(v, lo, hi float64) float64 {
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
