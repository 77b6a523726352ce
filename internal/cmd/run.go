package cmd

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/roadgeom/internal/config"
	"github.com/MeKo-Tech/roadgeom/internal/datasource"
	"github.com/MeKo-Tech/roadgeom/internal/diag"
	"github.com/MeKo-Tech/roadgeom/internal/geo"
	"github.com/MeKo-Tech/roadgeom/internal/geocoord"
	"github.com/MeKo-Tech/roadgeom/internal/heightmap"
	"github.com/MeKo-Tech/roadgeom/internal/osm"
	"github.com/MeKo-Tech/roadgeom/internal/osm/export"
	"github.com/MeKo-Tech/roadgeom/internal/pipeline"
	"github.com/MeKo-Tech/roadgeom/internal/raster"
	"github.com/MeKo-Tech/roadgeom/internal/worker"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the road geometry pipeline for a bounding box",
	Long: `Fetches OSM road network data for a bounding box, runs it through the
road geometry pipeline (coordinate transform, conversion, roundabout
merging, bridge/tunnel matching, elevation profiles, rasterization), and
writes one layer-mask PNG per material plus an optional debug overlay.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("bbox", "", "Bounding box: minLon,minLat,maxLon,maxLat (required)")
	runCmd.Flags().String("heightmap", "", "Path to a single-channel 16-bit PNG heightmap (optional; flat terrain if omitted)")
	runCmd.Flags().Float64("heightmap-max-elevation", 1000, "Elevation in meters that a fully-white heightmap pixel represents")
	runCmd.Flags().Bool("debug", false, "Also write a debug visualization overlay PNG")
	runCmd.Flags().Bool("geojson", false, "Also write a GeoJSON dump of the fetched OSM road network")

	if err := viper.BindPFlag("run.bbox", runCmd.Flags().Lookup("bbox")); err != nil {
		panic(fmt.Sprintf("failed to bind flag: %v", err))
	}
	if err := viper.BindPFlag("run.heightmap", runCmd.Flags().Lookup("heightmap")); err != nil {
		panic(fmt.Sprintf("failed to bind flag: %v", err))
	}
	if err := viper.BindPFlag("run.heightmap_max_elevation", runCmd.Flags().Lookup("heightmap-max-elevation")); err != nil {
		panic(fmt.Sprintf("failed to bind flag: %v", err))
	}
	if err := viper.BindPFlag("run.debug", runCmd.Flags().Lookup("debug")); err != nil {
		panic(fmt.Sprintf("failed to bind flag: %v", err))
	}
	if err := viper.BindPFlag("run.geojson", runCmd.Flags().Lookup("geojson")); err != nil {
		panic(fmt.Sprintf("failed to bind flag: %v", err))
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	bounds, err := parseRunBBox(viper.GetString("run.bbox"))
	if err != nil {
		return err
	}

	outputDir := viper.GetString("output-dir")
	_, err = runRegion(context.Background(), worker.Region{Name: "region", Bounds: bounds}, outputDir, runRegionOptions{
		cfg:                config.Load(viper.GetViper()),
		debug:              viper.GetBool("run.debug"),
		geojson:            viper.GetBool("run.geojson"),
		heightmapPath:      viper.GetString("run.heightmap"),
		heightmapMaxMeters: viper.GetFloat64("run.heightmap_max_elevation"),
	})
	return err
}

// runRegionOptions bundles the per-region knobs both the single-region
// `run` command and the `batch` command's worker.Generator need.
type runRegionOptions struct {
	cfg                config.Config
	debug              bool
	geojson            bool
	heightmapPath      string
	heightmapMaxMeters float64
}

// runRegion fetches, processes, and writes one bounding box's road geometry
// pipeline output under outputDir/region.Name/. It is the shared body behind
// both `run` (one region) and `batch` (many regions via worker.Pool).
func runRegion(ctx context.Context, region worker.Region, outputDir string, opts runRegionOptions) (string, error) {
	regionDir := filepath.Join(outputDir, region.Name)
	if err := os.MkdirAll(regionDir, 0o755); err != nil {
		return "", fmt.Errorf("run: create output dir: %w", err)
	}

	logger.Info("fetching road network", "region", region.Name, "bbox", region.Bounds)
	ds := datasource.NewRoadDataSource(datasource.DefaultOverpassConfig())
	full, err := ds.FetchRoadNetwork(region.Bounds)
	if err != nil {
		return "", fmt.Errorf("run: fetch road network: %w", err)
	}
	logger.Info("fetched road network", "region", region.Name, "features", len(full.Features), "structures", len(full.Structures))

	if opts.geojson {
		path := filepath.Join(regionDir, "source.geojson")
		data, err := export.ToGeoJSONBytes(full, nil)
		if err != nil {
			return "", fmt.Errorf("run: export geojson: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return "", fmt.Errorf("run: write %s: %w", path, err)
		}
		logger.Info("wrote geojson dump", "region", region.Name, "path", path)
	}

	transform, err := geocoord.New(geocoord.Config{Bounds: region.Bounds, TerrainSize: opts.cfg.TerrainSize})
	if err != nil {
		return "", fmt.Errorf("run: build coordinate transform: %w", err)
	}

	pipelineOpts := pipeline.DefaultOptions(opts.cfg, transform)
	pipelineOpts.Debug = opts.debug
	if opts.heightmapPath != "" {
		grid, err := heightmap.LoadPNG(opts.heightmapPath, opts.heightmapMaxMeters)
		if err != nil {
			return "", fmt.Errorf("run: load heightmap: %w", err)
		}
		pipelineOpts.Heightmap = grid
	}

	sink := diag.NewSlogSink(logger)
	result, err := pipeline.Run(full, roadMaterials(full), pipelineOpts, sink)
	if err != nil {
		return "", fmt.Errorf("run: pipeline: %w", err)
	}

	for name, mask := range result.LayerMasks {
		path := filepath.Join(regionDir, fmt.Sprintf("%s.png", name))
		if err := writeMaskPNG(path, mask); err != nil {
			return "", fmt.Errorf("run: write %s: %w", path, err)
		}
		logger.Info("wrote layer mask", "region", region.Name, "material", name, "path", path)
	}

	if result.DebugCanvas != nil {
		path := filepath.Join(regionDir, "debug.png")
		if err := writeDebugPNG(path, result.DebugCanvas.Image()); err != nil {
			return "", fmt.Errorf("run: write debug overlay: %w", err)
		}
		logger.Info("wrote debug overlay", "region", region.Name, "path", path)
	}

	logger.Info("pipeline complete", "region", region.Name, "splines", len(result.AllSplines()))
	return regionDir, nil
}

// roadMaterials splits the query result's highway features into the two
// materials a driving-simulator terrain typically paints separately: a
// "roads" layer for drivable ways and a "paths" layer for foot/cycle
// infrastructure, the CLI-level analogue of the teacher's per-layer
// geojson.LayerType grouping.
func roadMaterials(full *osm.OsmQueryResult) []pipeline.Material {
	roads := map[int64]bool{}
	paths := map[int64]bool{}
	for _, f := range full.Features {
		if f.Kind != osm.LineString {
			continue
		}
		switch f.Tag("highway") {
		case "footway", "path", "cycleway", "pedestrian", "steps", "bridleway":
			paths[f.ID] = true
		case "":
			// not a highway way; ignore (e.g. a bare route relation member)
		default:
			roads[f.ID] = true
		}
	}

	materials := []pipeline.Material{{Name: "roads", WayIDs: roads}}
	if len(paths) > 0 {
		materials = append(materials, pipeline.Material{Name: "paths", WayIDs: paths})
	}
	return materials
}

func parseRunBBox(raw string) (geo.BoundingBox, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return geo.BoundingBox{}, fmt.Errorf("run: --bbox must be minLon,minLat,maxLon,maxLat, got %q", raw)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geo.BoundingBox{}, fmt.Errorf("run: invalid --bbox value %q: %w", p, err)
		}
		vals[i] = v
	}
	bounds := geo.BoundingBox{MinLon: vals[0], MinLat: vals[1], MaxLon: vals[2], MaxLat: vals[3]}
	if !bounds.Valid() {
		return geo.BoundingBox{}, fmt.Errorf("run: --bbox %q is not a valid extent (need maxLon>minLon, maxLat>minLat)", raw)
	}
	return bounds, nil
}

// writeMaskPNG encodes a raster.Mask as an 8-bit grayscale PNG, the layer
// mask output format spec.md §6 documents.
func writeMaskPNG(path string, mask *raster.Mask) error {
	img := image.NewGray(image.Rect(0, 0, mask.Width, mask.Height))
	copy(img.Pix, mask.Pix)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close() // nolint:errcheck

	enc := png.Encoder{CompressionLevel: png.BestCompression}
	return enc.Encode(f, img)
}

// writeDebugPNG encodes the debug canvas's NRGBA image as a PNG.
func writeDebugPNG(path string, img *image.NRGBA) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close() // nolint:errcheck

	enc := png.Encoder{CompressionLevel: png.DefaultCompression}
	return enc.Encode(f, img)
}
