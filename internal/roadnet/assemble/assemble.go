// Package assemble implements C4, the route-relation-guided pre-merger that
// runs before the general-purpose angle-first connector (spec.md §4.4).
package assemble

import (
	"github.com/MeKo-Tech/roadgeom/internal/osm"
	"github.com/MeKo-Tech/roadgeom/internal/roadnet"
)

const uTurnDotThreshold = -0.7

// Merge walks each route relation's members in order, fusing adjacent
// PathWithMetadata entries that share an OSM node, and returns the
// (possibly shorter) resulting list. Paths untouched by any relation pass
// through unchanged.
func Merge(paths []*roadnet.PathWithMetadata, relations []osm.RouteRelation) []*roadnet.PathWithMetadata {
	byWay := make(map[int64]*roadnet.PathWithMetadata, len(paths))
	consumed := make(map[int64]bool, len(paths))
	var order []int64
	for _, p := range paths {
		if _, exists := byWay[p.WayID]; exists {
			continue // first occurrence wins for cropped duplicates
		}
		byWay[p.WayID] = p
		order = append(order, p.WayID)
	}

	for _, rel := range relations {
		annotateRouteRelation(rel, byWay)
	}
	for _, rel := range relations {
		mergeRelation(rel, byWay, consumed)
	}

	out := make([]*roadnet.PathWithMetadata, 0, len(order))
	for _, wayID := range order {
		if consumed[wayID] {
			continue
		}
		out = append(out, byWay[wayID])
	}
	return out
}

// annotateRouteRelation records rel's ID on every path whose way is one of
// rel's members, so spec.md §4.5's sharedRouteRelation connector term has
// something to compare once C5 runs. Runs before mergeRelation fuses
// anything, so every original fragment gets tagged regardless of whether
// it ends up consumed by a merge here.
func annotateRouteRelation(rel osm.RouteRelation, byWay map[int64]*roadnet.PathWithMetadata) {
	for _, member := range rel.Members {
		path, ok := byWay[member.WayID]
		if !ok {
			continue
		}
		path.RouteRelationIDs = roadnet.UnionRouteRelationIDs(path.RouteRelationIDs, []int64{rel.ID})
	}
}

// mergeRelation walks rel's members in order, forming contiguous
// sub-sequences of wayIds present in byWay, and fuses each sub-sequence
// pairwise left-to-right.
func mergeRelation(rel osm.RouteRelation, byWay map[int64]*roadnet.PathWithMetadata, consumed map[int64]bool) {
	var current *roadnet.PathWithMetadata
	var currentRole string

	for _, member := range rel.Members {
		path, ok := byWay[member.WayID]
		if !ok || consumed[member.WayID] {
			current = nil
			currentRole = ""
			continue
		}
		if current == nil {
			current = path
			currentRole = member.Role
			continue
		}

		merged := tryMerge(current, path, currentRole, member.Role)
		if merged == nil {
			current = path
			currentRole = member.Role
			continue
		}

		// merged carries current's WayID and replaces it in byWay, so only
		// the absorbed member is marked consumed.
		consumed[path.WayID] = true
		byWay[merged.WayID] = merged
		current = merged
		currentRole = member.Role
	}
}

// endpointPair names which endpoint of a and b are the candidate shared node.
type endpointPair struct {
	aEnd bool // true = a's End, false = a's Start
	bEnd bool // true = b's End, false = b's Start
}

// tryMerge attempts to fuse a onto b at one of the four endpoint
// combinations, trying the orientation the members' roles suggest first.
func tryMerge(a, b *roadnet.PathWithMetadata, roleA, roleB string) *roadnet.PathWithMetadata {
	preferred := endpointPair{aEnd: true, bEnd: false} // EndStart: the common case
	if roleA == "backward" || roleB == "backward" {
		preferred = endpointPair{aEnd: false, bEnd: true} // StartEnd
	}

	order := []endpointPair{
		preferred,
		{aEnd: true, bEnd: false},
		{aEnd: true, bEnd: true},
		{aEnd: false, bEnd: false},
		{aEnd: false, bEnd: true},
	}

	tried := make(map[endpointPair]bool, 4)
	for _, pair := range order {
		if tried[pair] {
			continue
		}
		tried[pair] = true
		if m := attemptMerge(a, b, pair); m != nil {
			return m
		}
	}
	return nil
}

func attemptMerge(a, b *roadnet.PathWithMetadata, pair endpointPair) *roadnet.PathWithMetadata {
	aNode, aHas := endpointNode(a, pair.aEnd)
	bNode, bHas := endpointNode(b, pair.bEnd)
	if !aHas || !bHas || aNode != bNode {
		return nil
	}

	// Orient both paths so oa.End connects to ob.Start.
	oa := a
	if !pair.aEnd {
		oa = a.Reversed()
	}
	ob := b
	if pair.bEnd {
		ob = b.Reversed()
	}

	if a.IsOneWay() && b.IsOneWay() {
		dirIn := oa.Points[len(oa.Points)-1].Sub(oa.Points[len(oa.Points)-2]).Normalize()
		dirOut := ob.Points[1].Sub(ob.Points[0]).Normalize()
		if dirIn.Dot(dirOut) < uTurnDotThreshold {
			return nil
		}
	}

	return concat(oa, ob)
}

// endpointNode returns the node id at p's chosen endpoint.
func endpointNode(p *roadnet.PathWithMetadata, end bool) (int64, bool) {
	if end {
		return p.EndNodeID, p.HasEndNode
	}
	return p.StartNodeID, p.HasStartNode
}

// concat merges oa and ob (already oriented so oa ends where ob begins) into
// a single path, dropping ob's duplicate leading point and carrying oa's
// tags, wayId, and structure flags.
func concat(oa, ob *roadnet.PathWithMetadata) *roadnet.PathWithMetadata {
	merged := oa.Clone()
	merged.Points = append(merged.Points, ob.Points[1:]...)
	merged.EndNodeID = ob.EndNodeID
	merged.HasEndNode = ob.HasEndNode
	merged.RouteRelationIDs = roadnet.UnionRouteRelationIDs(oa.RouteRelationIDs, ob.RouteRelationIDs)
	return merged
}
