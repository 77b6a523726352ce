package cmd

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/roadgeom/internal/config"
	"github.com/MeKo-Tech/roadgeom/internal/geo"
	"github.com/MeKo-Tech/roadgeom/internal/worker"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run the road geometry pipeline over many regions in parallel",
	Long: `Splits a set of named bounding boxes across a worker pool and runs the
road geometry pipeline for each independently (spec.md's per-run
single-threaded guarantee applies to each region; batch only parallelizes
across regions, not within one).`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringSlice("region", nil, `Named region as "name=minLon,minLat,maxLon,maxLat"; repeatable`)
	batchCmd.Flags().IntP("workers", "w", 0, "Number of parallel workers (default: number of CPUs)")
	batchCmd.Flags().Bool("progress", true, "Show a progress bar while regions process")
	batchCmd.Flags().String("heightmap", "", "Path to a single-channel 16-bit PNG heightmap shared by every region")
	batchCmd.Flags().Float64("heightmap-max-elevation", 1000, "Elevation in meters that a fully-white heightmap pixel represents")
	batchCmd.Flags().Bool("debug", false, "Also write a debug visualization overlay PNG per region")
	batchCmd.Flags().Bool("geojson", false, "Also write a GeoJSON dump of each region's fetched OSM road network")
}

func runBatch(cmd *cobra.Command, args []string) error {
	regionFlags, err := cmd.Flags().GetStringSlice("region")
	if err != nil {
		return err
	}
	if len(regionFlags) == 0 {
		return fmt.Errorf("batch: at least one --region is required")
	}

	regions := make([]worker.Region, 0, len(regionFlags))
	for _, raw := range regionFlags {
		region, err := parseRegionFlag(raw)
		if err != nil {
			return err
		}
		regions = append(regions, region)
	}

	workers, _ := cmd.Flags().GetInt("workers")
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	showProgress, _ := cmd.Flags().GetBool("progress")
	debug, _ := cmd.Flags().GetBool("debug")
	geojson, _ := cmd.Flags().GetBool("geojson")
	heightmapPath, _ := cmd.Flags().GetString("heightmap")
	heightmapMaxMeters, _ := cmd.Flags().GetFloat64("heightmap-max-elevation")

	opts := runRegionOptions{
		cfg:                config.Load(viper.GetViper()),
		debug:              debug,
		geojson:            geojson,
		heightmapPath:      heightmapPath,
		heightmapMaxMeters: heightmapMaxMeters,
	}
	outputDir := viper.GetString("output-dir")

	gen := &regionGenerator{outputDir: outputDir, opts: opts}
	progress := worker.NewProgress(len(regions), showProgress)

	pool := worker.New(worker.Config{
		Workers:    workers,
		Generator:  gen,
		OnProgress: progress.Callback(),
	})

	tasks := make([]worker.Task, len(regions))
	for i, r := range regions {
		tasks[i] = worker.Task{Region: r}
	}

	results := pool.Run(context.Background(), tasks)
	progress.Done()

	var failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
			logger.Error("region failed", "region", r.Task.Region.Name, "error", r.Err)
			continue
		}
		logger.Info("region complete", "region", r.Task.Region.Name, "path", r.Path, "elapsed", r.Elapsed)
	}

	logger.Info("batch complete", "summary", progress.Summary())
	if failed > 0 {
		return fmt.Errorf("batch: %d of %d regions failed", failed, len(regions))
	}
	return nil
}

// regionGenerator adapts runRegion to worker.Generator.
type regionGenerator struct {
	outputDir string
	opts      runRegionOptions
}

func (g *regionGenerator) Generate(ctx context.Context, region worker.Region, force bool) (string, error) {
	return runRegion(ctx, region, g.outputDir, g.opts)
}

// parseRegionFlag parses "name=minLon,minLat,maxLon,maxLat" into a
// worker.Region.
func parseRegionFlag(raw string) (worker.Region, error) {
	name, coords, ok := strings.Cut(raw, "=")
	if !ok {
		return worker.Region{}, fmt.Errorf("batch: --region %q must be \"name=minLon,minLat,maxLon,maxLat\"", raw)
	}
	parts := strings.Split(coords, ",")
	if len(parts) != 4 {
		return worker.Region{}, fmt.Errorf("batch: --region %q bounds must have 4 comma-separated values", raw)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return worker.Region{}, fmt.Errorf("batch: --region %q: invalid value %q: %w", raw, p, err)
		}
		vals[i] = v
	}
	bounds := geo.BoundingBox{MinLon: vals[0], MinLat: vals[1], MaxLon: vals[2], MaxLat: vals[3]}
	if !bounds.Valid() {
		return worker.Region{}, fmt.Errorf("batch: --region %q is not a valid extent", raw)
	}
	return worker.Region{Name: strings.TrimSpace(name), Bounds: bounds}, nil
}
