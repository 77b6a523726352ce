// Package osm defines the OSM-facing data model the pipeline consumes:
// features parsed from ways/relations, route relations, and roundabouts
// assembled later by the roundabout pipeline (spec.md §3).
package osm

import "github.com/MeKo-Tech/roadgeom/internal/geo"

// GeometryKind classifies an OsmFeature's geometry.
type GeometryKind int

const (
	Point GeometryKind = iota
	LineString
	Polygon
)

// OsmFeature is a single OSM way or relation after parsing. It is mutable
// only during C7 trimming and C8 stub resolution, which shorten Coordinates
// and NodeIDs in lockstep; all other code treats it as immutable.
type OsmFeature struct {
	ID         int64
	Category   string
	Tags       map[string]string
	Kind       GeometryKind
	Coordinates []geo.Coordinate // outer ring for Polygon
	NodeIDs    []int64          // parallel to Coordinates; may be shorter if cropped
	InnerRings [][]geo.Coordinate
	OuterParts [][]geo.Coordinate // additional outer parts, for multipolygons
}

// Tag returns the value of key, or "" if absent.
func (f *OsmFeature) Tag(key string) string {
	if f == nil || f.Tags == nil {
		return ""
	}
	return f.Tags[key]
}

// IsOneWay reports whether the feature's oneway tag is yes/true/1/-1.
func (f *OsmFeature) IsOneWay() bool {
	switch f.Tag("oneway") {
	case "yes", "true", "1", "-1":
		return true
	default:
		return false
	}
}

// OneWayReversed reports whether oneway=-1, meaning the way is tagged
// one-way against its drawing order.
func (f *OsmFeature) OneWayReversed() bool {
	return f.Tag("oneway") == "-1"
}

// IsRoundabout reports whether the feature is tagged junction=roundabout.
func (f *OsmFeature) IsRoundabout() bool {
	return f.Tag("junction") == "roundabout"
}

// StartNodeID returns the first node ID, or nil (via ok=false) if the start
// was cropped at a boundary.
func (f *OsmFeature) StartNodeID() (int64, bool) {
	if len(f.NodeIDs) == 0 || f.NodeIDs[0] == 0 {
		return 0, false
	}
	return f.NodeIDs[0], true
}

// EndNodeID returns the last node ID, or nil (via ok=false) if the end was
// cropped at a boundary.
func (f *OsmFeature) EndNodeID() (int64, bool) {
	if len(f.NodeIDs) == 0 {
		return 0, false
	}
	last := f.NodeIDs[len(f.NodeIDs)-1]
	if last == 0 {
		return 0, false
	}
	return last, true
}

// RouteMember is one member of a RouteRelation.
type RouteMember struct {
	WayID int64
	Role  string // "forward", "backward", or ""
}

// RouteRelation groups ordered way members into a logical route, used by C4
// to pre-merge route-relation ways ahead of the general connector (C5).
type RouteRelation struct {
	ID      int64
	Members []RouteMember
}

// ConnectionDirection classifies how traffic flows through a roundabout
// connection relative to the ring.
type ConnectionDirection int

const (
	Bidirectional ConnectionDirection = iota
	Entry
	Exit
)

// RoundaboutConnection records where a non-ring way touches a roundabout ring.
type RoundaboutConnection struct {
	ConnectingWayID int64
	Point           geo.Coordinate
	RingIndex       int
	AngleDegrees    float64 // 0 = East, increasing counter-clockwise
	Direction       ConnectionDirection
	Feature         *OsmFeature // one-way borrow, valid for the pipeline pass
	FeatureIndex    int         // index along the connecting feature's coordinates
	DistanceAlongSpline float64 // set by C9 once the ring spline exists
}

// OsmRoundabout is a physical roundabout assembled from one or more
// junction=roundabout ways (spec.md §3). Invariant: len(Ring) >= 3.
type OsmRoundabout struct {
	ID          int64
	WayIDs      []int64
	Ring        []geo.Coordinate // closed; Ring[0] ~= Ring[len-1]
	Center      geo.Coordinate
	RadiusMeters float64
	Tags        map[string]string
	Features    []*OsmFeature // one-way borrows to the contributing ways
	Connections []RoundaboutConnection
}

// OsmStructure is a bridge or tunnel polyline with its structural metadata
// (spec.md §4.11's OsmBridgeTunnelQueryResult entries).
type OsmStructure struct {
	ID          int64
	Coordinates []geo.Coordinate
	IsBridge    bool
	IsTunnel    bool
	Layer       int
	Tags        map[string]string
}

// OsmQueryResult is the parsed, already-decoded OSM query the pipeline
// consumes for one invocation (spec.md §6). The pipeline owns this value
// for the request's duration and may mutate Features in place via C7/C8.
type OsmQueryResult struct {
	Features       []*OsmFeature
	RouteRelations []RouteRelation
	Structures     []OsmStructure
	Bounds         geo.BoundingBox
}

// ByID returns the first feature with the given ID, or nil.
func (r *OsmQueryResult) ByID(id int64) *OsmFeature {
	for _, f := range r.Features {
		if f.ID == id {
			return f
		}
	}
	return nil
}
