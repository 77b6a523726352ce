package heightmap

import (
	"math"

	"github.com/aquilax/go-perlin"
)

// GeneratePerlin builds a synthetic heightmap of width x height, base
// elevation baseMeters plus Perlin noise scaled by amplitudeMeters, for use
// as a test fixture in place of a real GeoTIFF-derived terrain. Samples
// go-perlin directly (persistence 2.0, lacunarity 2.0, 3 octaves) rather
// than round-tripping through an 8-bit grayscale image, so the noise
// contributes its full float64 precision to the elevation delta instead of
// a quantized approximation of it.
func GeneratePerlin(width, height int, scale, baseMeters, amplitudeMeters float64, seed int64) *Grid {
	p := perlin.NewPerlin(2.0, 2.0, 3, seed)

	data := make([][]float32, height)
	for y := 0; y < height; y++ {
		row := make([]float32, width)
		for x := 0; x < width; x++ {
			val := p.Noise2D(float64(x)/scale, float64(y)/scale)
			if val > 1 {
				val = 1
			} else if val < -1 {
				val = -1
			}
			row[x] = float32(baseMeters + val*amplitudeMeters)
		}
		data[y] = row
	}
	return NewGrid(data)
}

// Flat builds a constant-elevation heightmap, useful when a test only cares
// about bridge sag/arch curves and not terrain clearance.
func Flat(width, height int, elevationMeters float64) *Grid {
	data := make([][]float32, height)
	for y := range data {
		row := make([]float32, width)
		for x := range row {
			row[x] = float32(elevationMeters)
		}
		data[y] = row
	}
	return NewGrid(data)
}

// RidgeAlongX builds a heightmap that rises to a ridge at the given x
// fraction of width and falls off linearly, useful for exercising C11's
// tunnel S-curve clearance logic deterministically (no noise).
func RidgeAlongX(width, height int, baseMeters, ridgeMeters, ridgeXFraction float64) *Grid {
	ridgeX := float64(width-1) * ridgeXFraction
	data := make([][]float32, height)
	for y := range data {
		row := make([]float32, width)
		for x := range row {
			dist := math.Abs(float64(x) - ridgeX)
			falloff := dist / math.Max(ridgeX, float64(width-1)-ridgeX+1)
			if falloff > 1 {
				falloff = 1
			}
			row[x] = float32(baseMeters + ridgeMeters*(1-falloff))
		}
		data[y] = row
	}
	return NewGrid(data)
}
