package assemble

import (
	"testing"

	"github.com/MeKo-Tech/roadgeom/internal/geo"
	"github.com/MeKo-Tech/roadgeom/internal/osm"
	"github.com/MeKo-Tech/roadgeom/internal/roadnet"
)

func pathFrom(wayID int64, startNode, endNode int64, pts ...geo.Vec2) *roadnet.PathWithMetadata {
	return &roadnet.PathWithMetadata{
		Points:       pts,
		WayID:        wayID,
		StartNodeID:  startNode,
		HasStartNode: true,
		EndNodeID:    endNode,
		HasEndNode:   true,
		Tags:         map[string]string{},
	}
}

func TestMergeThreeWaysInOrder(t *testing.T) {
	a := pathFrom(1, 10, 20, geo.Vec2{X: 0, Y: 0}, geo.Vec2{X: 10, Y: 0})
	b := pathFrom(2, 20, 30, geo.Vec2{X: 10, Y: 0}, geo.Vec2{X: 20, Y: 0})
	c := pathFrom(3, 30, 40, geo.Vec2{X: 20, Y: 0}, geo.Vec2{X: 30, Y: 0})

	rel := osm.RouteRelation{
		ID: 1,
		Members: []osm.RouteMember{
			{WayID: 1, Role: "forward"},
			{WayID: 2, Role: "forward"},
			{WayID: 3, Role: "forward"},
		},
	}

	out := Merge([]*roadnet.PathWithMetadata{a, b, c}, []osm.RouteRelation{rel})
	if len(out) != 1 {
		t.Fatalf("expected 1 merged path, got %d", len(out))
	}
	merged := out[0]
	if len(merged.Points) != 4 {
		t.Fatalf("expected 4 points, got %d", len(merged.Points))
	}
	if merged.Points[0].X != 0 || merged.Points[3].X != 30 {
		t.Errorf("unexpected endpoint ordering: %+v", merged.Points)
	}
	if merged.StartNodeID != 10 || merged.EndNodeID != 40 {
		t.Errorf("expected outer node ids 10,40, got %d,%d", merged.StartNodeID, merged.EndNodeID)
	}
}

func TestMergeRejectsOneWayUTurn(t *testing.T) {
	a := pathFrom(1, 10, 20, geo.Vec2{X: 0, Y: 0}, geo.Vec2{X: 10, Y: 0})
	a.Tags["oneway"] = "yes"
	// b doubles back on itself at the shared node (U-turn).
	b := pathFrom(2, 20, 30, geo.Vec2{X: 10, Y: 0}, geo.Vec2{X: 0, Y: 0.5})
	b.Tags["oneway"] = "yes"

	rel := osm.RouteRelation{
		ID:      1,
		Members: []osm.RouteMember{{WayID: 1}, {WayID: 2}},
	}

	out := Merge([]*roadnet.PathWithMetadata{a, b}, []osm.RouteRelation{rel})
	if len(out) != 2 {
		t.Fatalf("expected no merge (u-turn reject), got %d paths", len(out))
	}
}

func TestMergeSkipsMissingMember(t *testing.T) {
	a := pathFrom(1, 10, 20, geo.Vec2{X: 0, Y: 0}, geo.Vec2{X: 10, Y: 0})
	c := pathFrom(3, 30, 40, geo.Vec2{X: 20, Y: 0}, geo.Vec2{X: 30, Y: 0})

	rel := osm.RouteRelation{
		ID: 1,
		Members: []osm.RouteMember{
			{WayID: 1},
			{WayID: 99}, // missing
			{WayID: 3},
		},
	}

	out := Merge([]*roadnet.PathWithMetadata{a, c}, []osm.RouteRelation{rel})
	if len(out) != 2 {
		t.Fatalf("expected paths to pass through unmerged, got %d", len(out))
	}
}

func TestMergeUnrelatedPathsPassThrough(t *testing.T) {
	a := pathFrom(1, 10, 20, geo.Vec2{X: 0, Y: 0}, geo.Vec2{X: 10, Y: 0})
	out := Merge([]*roadnet.PathWithMetadata{a}, nil)
	if len(out) != 1 {
		t.Fatalf("expected passthrough, got %d", len(out))
	}
}
