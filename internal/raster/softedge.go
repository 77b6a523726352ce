package raster

import (
	"image"

	"github.com/disintegration/gift"
)

// SoftenMaskEdges blurs a layer mask's hard 0/255 edges into a smooth
// grayscale falloff. DebugCanvas uses this to paint a soft halo behind its
// crisp vector strokes, a cheap way to make the geometry a mask actually
// filled visually distinct from the spline the rasterizer traced it from.
func SoftenMaskEdges(m *Mask, sigma float32) *image.Gray {
	src := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	copy(src.Pix, m.Pix)

	g := gift.New(gift.GaussianBlur(sigma))
	dst := image.NewGray(g.Bounds(src.Bounds()))
	g.Draw(dst, src)
	return dst
}
