package raster

import (
	"image/color"
	"testing"
)

func TestSoftenMaskEdgesSpreadsIntensityBeyondHardEdge(t *testing.T) {
	m := NewMask(20, 20)
	FillPolygonWithHoles(m, square(5, 5, 15, 15), nil)

	soft := SoftenMaskEdges(m, 2.0)

	if got := soft.GrayAt(10, 10).Y; got == 0 {
		t.Fatal("expected the filled interior to stay bright after blurring")
	}
	if got := soft.GrayAt(4, 10).Y; got == 0 {
		t.Fatal("expected the blur to spread some intensity just outside the hard 0/255 edge")
	}
	if got := soft.GrayAt(0, 0).Y; got != 0 {
		t.Fatalf("expected a corner far from the fill to stay dark, got %d", got)
	}
}

func TestDrawMaskOverlayTintsCanvasNearFilledPixels(t *testing.T) {
	m := NewMask(20, 20)
	FillPolygonWithHoles(m, square(5, 5, 15, 15), nil)

	c := NewDebugCanvas(20, 20)
	c.DrawMaskOverlay(m, 2.0, color.NRGBA{R: 0, G: 200, B: 200, A: 80})

	px := c.Image().NRGBAAt(10, 10)
	if px.A == 0 {
		t.Fatal("expected the overlay to paint a visible alpha inside the filled region")
	}
	if px.G == 0 || px.B == 0 {
		t.Fatalf("expected the overlay's tint color to come through, got %+v", px)
	}

	corner := c.Image().NRGBAAt(0, 0)
	if corner.A != 0 {
		t.Fatalf("expected a far corner to remain untouched, got %+v", corner)
	}
}
