package raster

import (
	"testing"

	"github.com/MeKo-Tech/roadgeom/internal/geo"
)

// TestScenarioMultipolygonLakeWithIsland covers spec.md §8's lake-with-
// island scenario: a 100x100 outer square with a 20x20 inner square hole
// cut out of its middle fills exactly 10000-400=9600 pixels, one for every
// whole-number (x,y) scanned at y+0.5 and column-clamped the same way on
// both rings.
func TestScenarioMultipolygonLakeWithIsland(t *testing.T) {
	m := NewMask(100, 100)
	outer := square(0, 0, 100, 100)
	hole := square(40, 40, 60, 60)

	FillPolygonWithHoles(m, outer, [][]geo.Vec2{hole})

	if got := countSet(m); got != 9600 {
		t.Fatalf("expected 9600 filled pixels (10000 outer - 400 hole), got %d", got)
	}
	if m.At(0, 0) != 255 {
		t.Fatal("expected a corner of the lake to be filled")
	}
	if m.At(50, 50) != 0 {
		t.Fatal("expected the island's center to read 0")
	}
}
