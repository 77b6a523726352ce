package pipeline

import (
	"image/color"

	"github.com/MeKo-Tech/roadgeom/internal/config"
	"github.com/MeKo-Tech/roadgeom/internal/diag"
	"github.com/MeKo-Tech/roadgeom/internal/errs"
	"github.com/MeKo-Tech/roadgeom/internal/geo"
	"github.com/MeKo-Tech/roadgeom/internal/geocoord"
	"github.com/MeKo-Tech/roadgeom/internal/heightmap"
	"github.com/MeKo-Tech/roadgeom/internal/osm"
	"github.com/MeKo-Tech/roadgeom/internal/raster"
	"github.com/MeKo-Tech/roadgeom/internal/roadnet"
	"github.com/MeKo-Tech/roadgeom/internal/roadnet/convert"
	"github.com/MeKo-Tech/roadgeom/internal/structure/elevation"
	"github.com/MeKo-Tech/roadgeom/internal/structure/match"
)

// Material implements spec.md §4.10's "per-material feature selection": a
// named subset of the OSM query result's LineString way IDs that is
// converted, matched, and rasterized as one independent layer (e.g. "roads"
// vs "cycleways"), the way the teacher's generator paints one layer per
// z/x/y tile request.
type Material struct {
	Name   string
	WayIDs map[int64]bool
}

// Options composes C1's transform and the per-component options C4-C11
// need (spec.md §5's ordering: C4/C5 before roundabouts are merged in;
// C6-C9 before C10; C10 before C11) into one orchestrator call.
type Options struct {
	Config           config.Config
	Transform        geocoord.Transformer
	Heightmap        *heightmap.Grid
	ConvertOptions   convert.ConvertOptions
	MatchOptions     match.Options
	ElevationOptions elevation.Options
	Debug            bool
}

// DefaultOptions seeds every sub-component's defaults and lets the caller
// only override what spec.md §6's Configuration enumerates through cfg.
func DefaultOptions(cfg config.Config, transform geocoord.Transformer) Options {
	convertOpts := convert.DefaultConvertOptions()
	convertOpts.MetersPerPixel = cfg.MetersPerPixel
	convertOpts.TerrainSize = cfg.TerrainSize
	convertOpts.MinPathLengthMeters = cfg.MinPathLengthMeters

	matchOpts := match.DefaultOptions()
	matchOpts.MaxMatchDistanceMeters = cfg.MaxMatchDistanceMeters
	matchOpts.MinOverlapPercent = cfg.MinOverlapPercent

	elevOpts := elevation.DefaultOptions()
	elevOpts.TunnelMinClearanceMeters = cfg.TunnelMinClearanceMeters
	elevOpts.TunnelInteriorHeightMeters = cfg.TunnelInteriorHeightMeters
	elevOpts.TunnelMaxGradePercent = cfg.TunnelMaxGradePercent
	elevOpts.ShortBridgeMaxLengthMeters = cfg.ShortBridgeMaxLengthMeters
	elevOpts.MediumBridgeMaxLengthMeters = cfg.MediumBridgeMaxLengthMeters
	elevOpts.TerrainSampleCount = cfg.DefaultTerrainSampleCount

	return Options{
		Config:           cfg,
		Transform:        transform,
		ConvertOptions:   convertOpts,
		MatchOptions:     matchOpts,
		ElevationOptions: elevOpts,
	}
}

// Result is C12's output: spec.md §6's RoadSpline list (grouped by the
// material that produced it), one layer mask per material, and an
// optional debug visualization.
type Result struct {
	Splines     map[string][]*roadnet.ParameterizedRoadSpline
	LayerMasks  map[string]*raster.Mask
	DebugCanvas *raster.DebugCanvas
}

// AllSplines flattens Result.Splines across every material, in material
// order, for callers that don't care about per-material grouping.
func (r *Result) AllSplines() []*roadnet.ParameterizedRoadSpline {
	var out []*roadnet.ParameterizedRoadSpline
	for _, m := range orderedMaterialNames(r.Splines) {
		out = append(out, r.Splines[m]...)
	}
	return out
}

func orderedMaterialNames(m map[string][]*roadnet.ParameterizedRoadSpline) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j-1] > names[j]; j-- {
			names[j-1], names[j] = names[j], names[j-1]
		}
	}
	return names
}

// Run implements C12: runs §4.10's line-to-spline conversion per material,
// §4.11's bridge/tunnel matching and §4.12's elevation profiles across the
// combined spline set, then rasterizes each material's road layer mask via
// C2. Pipeline stages run strictly in sequence (spec.md §5: no internal
// parallelism) - Run itself is the unit a caller offloads to a background
// goroutine or worker, not something that fans out inside.
func Run(full *osm.OsmQueryResult, materials []Material, opts Options, sink diag.Sink) (*Result, error) {
	if full == nil {
		return nil, errs.New(errs.InvalidInput, "pipeline: OsmQueryResult must not be nil")
	}
	if opts.Transform == nil {
		return nil, errs.New(errs.InvalidInput, "pipeline: a geocoord.Transformer is required")
	}
	if len(materials) == 0 {
		return nil, errs.New(errs.InvalidInput, "pipeline: at least one material is required")
	}

	result := &Result{
		Splines:    make(map[string][]*roadnet.ParameterizedRoadSpline),
		LayerMasks: make(map[string]*raster.Mask),
	}
	if opts.Debug {
		result.DebugCanvas = raster.NewDebugCanvas(opts.Config.TerrainSize, opts.Config.TerrainSize)
	}

	for _, material := range materials {
		splines := convert.ConvertMaterial(full, material.WayIDs, opts.Transform, opts.ConvertOptions, sink)

		match.Match(splines, full.Structures, opts.Transform, opts.Config.MetersPerPixel, opts.MatchOptions, sink)
		computeElevationProfiles(splines, opts, sink)

		mask := rasterizeMaterial(splines, opts)
		result.Splines[material.Name] = splines
		result.LayerMasks[material.Name] = mask

		if result.DebugCanvas != nil {
			paintDebug(result.DebugCanvas, splines, mask, opts)
		}
	}

	return result, nil
}

// computeElevationProfiles implements spec.md §4.11's "if a heightmap is
// supplied, compute and attach an elevation profile (C11)" step: entry/exit
// elevation is sampled at each matched structure spline's endpoints.
func computeElevationProfiles(splines []*roadnet.ParameterizedRoadSpline, opts Options, sink diag.Sink) {
	if opts.Heightmap == nil {
		return
	}
	for _, s := range splines {
		if !s.IsStructure() {
			continue
		}
		entry := sampleElevation(s.StartPoint(), opts)
		exit := sampleElevation(s.EndPoint(), opts)
		elevation.Compute(s, entry, exit, opts.Heightmap, opts.Config.MetersPerPixel, opts.ElevationOptions, sink)
	}
}

func sampleElevation(meterPoint geo.Vec2, opts Options) float64 {
	if opts.Heightmap == nil {
		return 0
	}
	x, y := geocoord.FromMeters(meterPoint, opts.Config.MetersPerPixel)
	return opts.Heightmap.Sample(x, y)
}

func rasterizeMaterial(splines []*roadnet.ParameterizedRoadSpline, opts Options) *raster.Mask {
	size := opts.Config.TerrainSize
	m := raster.NewMask(size, size)
	for _, s := range splines {
		raster.FillRoadSpline(m, s, opts.Config.MetersPerPixel, size)
	}
	return m
}

var colorMaskHalo = color.NRGBA{R: 0, G: 200, B: 200, A: 60}

func paintDebug(canvas *raster.DebugCanvas, splines []*roadnet.ParameterizedRoadSpline, mask *raster.Mask, opts Options) {
	canvas.DrawMaskOverlay(mask, 3.0, colorMaskHalo)
	for _, s := range splines {
		canvas.DrawRoadSpline(s, opts.Config.MetersPerPixel, opts.Config.TerrainSize)
	}
}

// RunAsync offloads Run to a background goroutine, mirroring
// internal/worker/pool.go's Task/Result channel idiom but for the single
// whole-pipeline job spec.md §5 allows offloading (no parallelism inside
// Run itself). The returned channel receives exactly one value.
func RunAsync(full *osm.OsmQueryResult, materials []Material, opts Options, sink diag.Sink) <-chan AsyncResult {
	ch := make(chan AsyncResult, 1)
	go func() {
		defer close(ch)
		res, err := Run(full, materials, opts, sink)
		ch <- AsyncResult{Result: res, Err: err}
	}()
	return ch
}

// AsyncResult is RunAsync's single delivered outcome.
type AsyncResult struct {
	Result *Result
	Err    error
}
