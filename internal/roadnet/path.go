// Package roadnet holds the PathWithMetadata type shared by the path
// assembler (C4) and path connector (C5).
package roadnet

import "github.com/MeKo-Tech/roadgeom/internal/geo"

// PathWithMetadata is a mutable point list (in meters) carrying the OSM
// bookkeeping C4/C5 need to decide whether two fragments may be merged.
// Node IDs are nullable: a cropped endpoint loses its node id (spec.md §4.2).
type PathWithMetadata struct {
	Points []geo.Vec2

	StartNodeID   int64
	HasStartNode  bool
	EndNodeID     int64
	HasEndNode    bool

	WayID int64
	Tags  map[string]string

	// RouteRelationIDs lists the OSM route relations this path's way is a
	// member of (spec.md §4.5's sharedRouteRelation connector term), empty
	// if the way belongs to none. C4 populates it from the query result's
	// RouteRelations and unions it across every fragment a merge fuses.
	RouteRelationIDs []int64

	IsBridge  bool
	IsTunnel  bool
	Layer     int
	StructureType string
}

// SharesRouteRelation reports whether p and other have at least one
// RouteRelationIDs entry in common.
func (p *PathWithMetadata) SharesRouteRelation(other *PathWithMetadata) bool {
	if len(p.RouteRelationIDs) == 0 || len(other.RouteRelationIDs) == 0 {
		return false
	}
	for _, a := range p.RouteRelationIDs {
		for _, b := range other.RouteRelationIDs {
			if a == b {
				return true
			}
		}
	}
	return false
}

// Start returns the path's first point.
func (p *PathWithMetadata) Start() geo.Vec2 { return p.Points[0] }

// End returns the path's last point.
func (p *PathWithMetadata) End() geo.Vec2 { return p.Points[len(p.Points)-1] }

// IsOneWay reports whether the path's oneway tag is yes/true/1/-1.
func (p *PathWithMetadata) IsOneWay() bool {
	switch p.Tags["oneway"] {
	case "yes", "true", "1", "-1":
		return true
	default:
		return false
	}
}

// Highway returns the path's highway tag, or "" if absent.
func (p *PathWithMetadata) Highway() string { return p.Tags["highway"] }

// IsRoundabout reports whether the path is tagged junction=roundabout.
func (p *PathWithMetadata) IsRoundabout() bool { return p.Tags["junction"] == "roundabout" }

// Clone returns a deep copy so merge operators never alias input paths.
func (p *PathWithMetadata) Clone() *PathWithMetadata {
	out := *p
	out.Points = append([]geo.Vec2(nil), p.Points...)
	out.Tags = copyTags(p.Tags)
	out.RouteRelationIDs = append([]int64(nil), p.RouteRelationIDs...)
	return &out
}

// UnionRouteRelationIDs returns the deduplicated union of a and b's
// RouteRelationIDs, used by C4's assemble and C5's connect when fusing two
// paths together so the merged path keeps both fragments' memberships.
func UnionRouteRelationIDs(a, b []int64) []int64 {
	if len(a) == 0 {
		return append([]int64(nil), b...)
	}
	if len(b) == 0 {
		return append([]int64(nil), a...)
	}
	seen := make(map[int64]bool, len(a)+len(b))
	out := make([]int64, 0, len(a)+len(b))
	for _, id := range append(append([]int64(nil), a...), b...) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func copyTags(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Reversed returns a new path with points, and start/end node ids, swapped.
func (p *PathWithMetadata) Reversed() *PathWithMetadata {
	out := p.Clone()
	n := len(out.Points)
	for i := 0; i < n/2; i++ {
		out.Points[i], out.Points[n-1-i] = out.Points[n-1-i], out.Points[i]
	}
	out.StartNodeID, out.EndNodeID = out.EndNodeID, out.StartNodeID
	out.HasStartNode, out.HasEndNode = out.HasEndNode, out.HasStartNode
	return out
}
