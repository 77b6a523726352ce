// Package convert implements spec.md §4.10, the line-to-spline conversion
// that orchestrates C1 (geocoord), C4 (assemble), C5 (connect), and the
// roundabout pipeline C6-C9 (detect/trim/stub/merge) into the final
// per-material list of ParameterizedRoadSpline.
package convert

import (
	"fmt"

	"github.com/MeKo-Tech/roadgeom/internal/diag"
	"github.com/MeKo-Tech/roadgeom/internal/geo"
	"github.com/MeKo-Tech/roadgeom/internal/geocoord"
	"github.com/MeKo-Tech/roadgeom/internal/osm"
	"github.com/MeKo-Tech/roadgeom/internal/roadnet"
	"github.com/MeKo-Tech/roadgeom/internal/roadnet/assemble"
	"github.com/MeKo-Tech/roadgeom/internal/roadnet/connect"
	"github.com/MeKo-Tech/roadgeom/internal/roundabout/detect"
	"github.com/MeKo-Tech/roadgeom/internal/roundabout/merge"
	"github.com/MeKo-Tech/roadgeom/internal/roundabout/stub"
	"github.com/MeKo-Tech/roadgeom/internal/roundabout/trim"
	"github.com/MeKo-Tech/roadgeom/internal/spline"
)

const defaultMinPathLengthMeters = 1.0

// ConvertOptions configures the line-to-spline conversion (spec.md §4.10).
type ConvertOptions struct {
	MetersPerPixel      float64
	TerrainSize         int
	MinPathLengthMeters float64
	EnableRoundabouts   bool

	ConnectOptions connect.Options
	TrimOptions    trim.Options

	// RoadInterpolationMode is the caller's preferred interpolation mode
	// for regular (non-ring) road splines. Roundabout rings always use
	// spline.SmoothInterpolated regardless of this setting (spec.md §4.9).
	RoadInterpolationMode spline.InterpolationMode
}

// DefaultConvertOptions returns the spec's defaults: 1 m minimum path
// length, roundabout handling enabled, straight (non-smoothed) regular
// roads — OSM ways are already densely sampled polylines, so smoothing
// them would invent curvature the source data never expressed.
func DefaultConvertOptions() ConvertOptions {
	return ConvertOptions{
		MinPathLengthMeters:   defaultMinPathLengthMeters,
		EnableRoundabouts:     true,
		ConnectOptions:        connect.DefaultOptions(),
		TrimOptions:           trim.DefaultOptions(),
		RoadInterpolationMode: spline.LinearControlPoints,
	}
}

// ConvertMaterial implements spec.md §4.10 for one material: the named
// subset of full's LineString features (materialWayIDs) that belong to a
// single render/processing layer (e.g. "roads" vs "cycleways"), mirroring
// the teacher's per-layer generator loop. full is the complete parsed OSM
// result; passing the full result to roundabout detection (rather than
// just this material's features) lets overlapping materials agree on
// which roundabouts exist, while each material still only emits splines
// for its own share of the network. Output spline IDs are numbered
// sequentially starting at 1 within a single call; callers combining
// several materials must offset IDs themselves.
func ConvertMaterial(full *osm.OsmQueryResult, materialWayIDs map[int64]bool, transform geocoord.Transformer, opts ConvertOptions, sink diag.Sink) []*roadnet.ParameterizedRoadSpline {
	if opts.MinPathLengthMeters <= 0 {
		opts.MinPathLengthMeters = defaultMinPathLengthMeters
	}

	materialFeatures := make([]*osm.OsmFeature, 0, len(materialWayIDs))
	for _, f := range full.Features {
		if f.Kind == osm.LineString && materialWayIDs[f.ID] {
			materialFeatures = append(materialFeatures, f)
		}
	}
	materialResult := &osm.OsmQueryResult{
		Features:       materialFeatures,
		RouteRelations: full.RouteRelations,
		Bounds:         full.Bounds,
	}

	excludedWayIDs := make(map[int64]bool)
	var rings []merge.Ring

	if opts.EnableRoundabouts {
		rings, excludedWayIDs = handleRoundabouts(full, materialResult, materialWayIDs, transform, opts, sink)
	}

	var paths []*roadnet.PathWithMetadata
	for _, f := range materialResult.Features {
		if excludedWayIDs[f.ID] || f.IsRoundabout() {
			continue
		}
		paths = append(paths, buildPaths(f, transform, opts.MetersPerPixel, opts.TerrainSize)...)
	}

	paths = assemble.Merge(paths, full.RouteRelations)
	paths = connect.Connect(paths, opts.ConnectOptions)

	var out []*roadnet.ParameterizedRoadSpline
	var id int64 = 1

	for _, ring := range rings {
		out = append(out, &roadnet.ParameterizedRoadSpline{
			ID:              id,
			Spline:          ring.Spline,
			IsRoundabout:    true,
			WayID:           ring.Roundabout.ID,
			Tags:            ring.Roundabout.Tags,
			RoadWidthMeters: roadnet.DefaultWidthMeters(ring.Roundabout.Tags["highway"]),
		})
		id++
	}

	for _, p := range paths {
		if pathLength(p) < opts.MinPathLengthMeters {
			if sink != nil {
				sink.Emit(diag.Warning,
					fmt.Sprintf("way %d: path shorter than minimum length %.2fm, dropped", p.WayID, opts.MinPathLengthMeters),
					diag.ReasonInsufficientPoints)
			}
			continue
		}
		deduped := spline.RemoveDuplicates(p.Points, 0.01)
		if len(deduped) < 2 {
			continue
		}
		s, err := spline.New(deduped, opts.RoadInterpolationMode)
		if err != nil {
			continue
		}
		surfaceWidth, _ := roadnet.ParseWidthTag(p.Tags["width"])
		out = append(out, &roadnet.ParameterizedRoadSpline{
			ID:                     id,
			Spline:                 s,
			IsBridge:               p.IsBridge,
			IsTunnel:               p.IsTunnel,
			Layer:                  p.Layer,
			WayID:                  p.WayID,
			Tags:                   p.Tags,
			RoadWidthMeters:        roadnet.DefaultWidthMeters(p.Highway()),
			RoadSurfaceWidthMeters: surfaceWidth,
		})
		id++
	}

	return out
}

// handleRoundabouts runs C6-C9 restricted to roundabouts that intersect
// this material's feature set, trimming/folding/merging materialResult in
// place, and returns the resulting ring splines plus the set of way IDs
// already consumed by ring assembly or trimming (spec.md §4.10 step 2).
func handleRoundabouts(full, materialResult *osm.OsmQueryResult, materialWayIDs map[int64]bool, transform geocoord.Transformer, opts ConvertOptions, sink diag.Sink) ([]merge.Ring, map[int64]bool) {
	excluded := make(map[int64]bool)

	allRoundabouts := detect.Detect(full)
	var materialRoundabouts []*osm.OsmRoundabout
	for _, rb := range allRoundabouts {
		if intersectsMaterial(rb.WayIDs, materialWayIDs) {
			materialRoundabouts = append(materialRoundabouts, rb)
		}
	}
	if len(materialRoundabouts) == 0 {
		return nil, excluded
	}

	before := make(map[int64]bool, len(materialResult.Features))
	for _, f := range materialResult.Features {
		before[f.ID] = true
	}

	trim.Trim(materialResult, materialRoundabouts, opts.TrimOptions)
	stub.Resolve(materialResult, materialRoundabouts)

	after := make(map[int64]bool, len(materialResult.Features))
	for _, f := range materialResult.Features {
		after[f.ID] = true
	}
	for id := range before {
		if !after[id] {
			excluded[id] = true // deleted by the trimmer or folded by the stub resolver
		}
	}

	rings := merge.Merge(materialRoundabouts, transform, opts.MetersPerPixel, sink)
	for _, rb := range materialRoundabouts {
		for _, id := range rb.WayIDs {
			excluded[id] = true
		}
	}

	return rings, excluded
}

func intersectsMaterial(wayIDs []int64, materialWayIDs map[int64]bool) bool {
	for _, id := range wayIDs {
		if materialWayIDs[id] {
			return true
		}
	}
	return false
}

// pointWithNode is one clipped/converted coordinate plus its node-id
// provenance, used only during buildPaths.
type pointWithNode struct {
	pos     geo.Vec2
	nodeID  int64
	hasNode bool
}

// buildPaths implements spec.md §4.10 step 1 for a single feature: project
// to terrain pixels, Cohen-Sutherland clip to [0,terrainSize]^2 (possibly
// splitting into several pieces when the way leaves and re-enters the
// square), convert to meters, and drop consecutive duplicates under 1cm.
// A clipped/synthetic endpoint loses its node id.
func buildPaths(f *osm.OsmFeature, transform geocoord.Transformer, metersPerPixel float64, terrainSize int) []*roadnet.PathWithMetadata {
	if len(f.Coordinates) < 2 {
		return nil
	}

	pixel := make([]geo.Vec2, len(f.Coordinates))
	for i, c := range f.Coordinates {
		x, y := transform.ToTerrainPixel(c.Lon, c.Lat)
		pixel[i] = geo.Vec2{X: x, Y: y}
	}

	pieces := clipWithNodes(f, pixel, float64(terrainSize))

	isBridge := f.Tag("bridge") != "" && f.Tag("bridge") != "no"
	isTunnel := f.Tag("tunnel") != "" && f.Tag("tunnel") != "no"
	structureType := ""
	switch {
	case isBridge:
		structureType = "bridge"
	case isTunnel:
		structureType = "tunnel"
	}

	var out []*roadnet.PathWithMetadata
	for _, piece := range pieces {
		points := make([]geo.Vec2, len(piece))
		for i, pt := range piece {
			points[i] = geocoord.ToMeters(pt.pos.X, pt.pos.Y, metersPerPixel)
		}
		points, meta := dedupeTrackingNodes(points, piece, 0.01)
		if len(points) < 2 {
			continue
		}

		p := &roadnet.PathWithMetadata{
			Points:        points,
			WayID:         f.ID,
			Tags:          f.Tags,
			IsBridge:      isBridge,
			IsTunnel:      isTunnel,
			Layer:         osm.ParseLayer(f.Tag("layer")),
			StructureType: structureType,
		}
		p.HasStartNode, p.StartNodeID = meta[0].hasNode, meta[0].nodeID
		p.HasEndNode, p.EndNodeID = meta[len(meta)-1].hasNode, meta[len(meta)-1].nodeID
		out = append(out, p)
	}
	return out
}

// clipWithNodes clips the polyline pixel (whose coordinates parallel
// f.Coordinates/f.NodeIDs) against [0,size]^2, splitting on exit exactly
// as geocoord.ClipPolyline does, but carries node-id provenance alongside
// each resulting point.
func clipWithNodes(f *osm.OsmFeature, pixel []geo.Vec2, size float64) [][]pointWithNode {
	var pieces [][]pointWithNode
	var current []pointWithNode

	for i := 0; i < len(pixel)-1; i++ {
		cx0, cy0, cx1, cy1, ok := geocoord.ClipSegment(pixel[i].X, pixel[i].Y, pixel[i+1].X, pixel[i+1].Y, size)
		if !ok {
			if len(current) > 1 {
				pieces = append(pieces, current)
			}
			current = nil
			continue
		}

		id0, ok0 := nodeIDAt(f, i)
		id1, ok1 := nodeIDAt(f, i+1)
		start := geo.Vec2{X: cx0, Y: cy0}
		end := geo.Vec2{X: cx1, Y: cy1}

		if len(current) == 0 {
			hasNode := ok0 && start == pixel[i]
			current = append(current, pointWithNode{pos: start, nodeID: id0, hasNode: hasNode})
		}
		hasNode1 := ok1 && end == pixel[i+1]
		current = append(current, pointWithNode{pos: end, nodeID: id1, hasNode: hasNode1})
	}
	if len(current) > 1 {
		pieces = append(pieces, current)
	}
	return pieces
}

func nodeIDAt(f *osm.OsmFeature, i int) (int64, bool) {
	if i < 0 || i >= len(f.NodeIDs) || f.NodeIDs[i] == 0 {
		return 0, false
	}
	return f.NodeIDs[i], true
}

// dedupeTrackingNodes drops consecutive points closer than tolerance, the
// same rule as spline.RemoveDuplicates, but returns a parallel meta slice
// so buildPaths can still read the surviving endpoints' node ids.
func dedupeTrackingNodes(points []geo.Vec2, meta []pointWithNode, tolerance float64) ([]geo.Vec2, []pointWithNode) {
	if len(points) == 0 {
		return nil, nil
	}
	outPoints := make([]geo.Vec2, 0, len(points))
	outMeta := make([]pointWithNode, 0, len(points))
	outPoints = append(outPoints, points[0])
	outMeta = append(outMeta, meta[0])
	for i, p := range points[1:] {
		if p.Distance(outPoints[len(outPoints)-1]) >= tolerance {
			outPoints = append(outPoints, p)
			outMeta = append(outMeta, meta[i+1])
		}
	}
	return outPoints, outMeta
}

func pathLength(p *roadnet.PathWithMetadata) float64 {
	total := 0.0
	for i := 1; i < len(p.Points); i++ {
		total += p.Points[i-1].Distance(p.Points[i])
	}
	return total
}
