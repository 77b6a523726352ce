// Package config holds the road geometry pipeline's enumerated
// configuration (spec.md §6) and binds it through viper the way the
// teacher's root command binds its own flags/env vars.
package config

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the full set of pipeline tolerances and options spec.md §6
// enumerates. Every field has a spec-given default, applied by Defaults().
type Config struct {
	MetersPerPixel      float64
	TerrainSize         int
	MinPathLengthMeters float64

	DuplicatePointToleranceMeters    float64
	EndpointJoinToleranceMeters      float64
	RoundaboutOverlapToleranceMeters float64

	MaxMatchDistanceMeters float64
	MinOverlapPercent      float64

	TunnelMinClearanceMeters   float64
	TunnelInteriorHeightMeters float64
	TunnelMaxGradePercent      float64

	ShortBridgeMaxLengthMeters  float64
	MediumBridgeMaxLengthMeters float64
	DefaultTerrainSampleCount   int
}

// Defaults returns spec.md §6's documented defaults.
func Defaults() Config {
	return Config{
		MetersPerPixel:      1.0,
		TerrainSize:         1024,
		MinPathLengthMeters: 1.0,

		DuplicatePointToleranceMeters:    0.01,
		EndpointJoinToleranceMeters:      1.0,
		RoundaboutOverlapToleranceMeters: 2.0,

		MaxMatchDistanceMeters: 10,
		MinOverlapPercent:      50,

		TunnelMinClearanceMeters:   5,
		TunnelInteriorHeightMeters: 5,
		TunnelMaxGradePercent:      6,

		ShortBridgeMaxLengthMeters:  50,
		MediumBridgeMaxLengthMeters: 200,
		DefaultTerrainSampleCount:   20,
	}
}

// BindFlags registers every Config field as a persistent flag on flags and
// binds it into v, mirroring internal/cmd/root.go's BindPFlag sequence.
// Call Load(v) afterward to read the bound values back into a Config.
func BindFlags(flags *pflag.FlagSet, v *viper.Viper) error {
	d := Defaults()

	flags.Float64("meters-per-pixel", d.MetersPerPixel, "terrain scale factor, meters per pixel")
	flags.Int("terrain-size", d.TerrainSize, "terrain grid size in pixels (power of two)")
	flags.Float64("min-path-length-meters", d.MinPathLengthMeters, "minimum spline arc length to keep")
	flags.Float64("duplicate-point-tolerance-meters", d.DuplicatePointToleranceMeters, "consecutive-point dedup tolerance")
	flags.Float64("endpoint-join-tolerance-meters", d.EndpointJoinToleranceMeters, "proximity fallback tolerance for C5")
	flags.Float64("roundabout-overlap-tolerance-meters", d.RoundaboutOverlapToleranceMeters, "C7 radius tolerance")
	flags.Float64("max-match-distance-meters", d.MaxMatchDistanceMeters, "C10 matching distance threshold")
	flags.Float64("min-overlap-percent", d.MinOverlapPercent, "C10 acceptance threshold")
	flags.Float64("tunnel-min-clearance-meters", d.TunnelMinClearanceMeters, "minimum rock cover above a tunnel")
	flags.Float64("tunnel-interior-height-meters", d.TunnelInteriorHeightMeters, "tunnel interior clear height")
	flags.Float64("tunnel-max-grade-percent", d.TunnelMaxGradePercent, "maximum tunnel grade before the profile is marked invalid")
	flags.Float64("short-bridge-max-length-meters", d.ShortBridgeMaxLengthMeters, "bridges at or under this length use a linear profile")
	flags.Float64("medium-bridge-max-length-meters", d.MediumBridgeMaxLengthMeters, "bridges at or under this length use a parabolic sag")
	flags.Int("default-terrain-sample-count", d.DefaultTerrainSampleCount, "terrain samples taken along a structure's path")

	for _, name := range []string{
		"meters-per-pixel", "terrain-size", "min-path-length-meters",
		"duplicate-point-tolerance-meters", "endpoint-join-tolerance-meters",
		"roundabout-overlap-tolerance-meters", "max-match-distance-meters",
		"min-overlap-percent", "tunnel-min-clearance-meters",
		"tunnel-interior-height-meters", "tunnel-max-grade-percent",
		"short-bridge-max-length-meters", "medium-bridge-max-length-meters",
		"default-terrain-sample-count",
	} {
		if err := v.BindPFlag(name, flags.Lookup(name)); err != nil {
			return fmt.Errorf("config: bind flag %q: %w", name, err)
		}
	}
	return nil
}

// Load reads a Config back out of v, after BindFlags and any config
// file/env var overrides viper has layered on top (same precedence order
// as internal/cmd/root.go's initConfig: flag > env > config file > default).
func Load(v *viper.Viper) Config {
	return Config{
		MetersPerPixel:      v.GetFloat64("meters-per-pixel"),
		TerrainSize:         v.GetInt("terrain-size"),
		MinPathLengthMeters: v.GetFloat64("min-path-length-meters"),

		DuplicatePointToleranceMeters:    v.GetFloat64("duplicate-point-tolerance-meters"),
		EndpointJoinToleranceMeters:      v.GetFloat64("endpoint-join-tolerance-meters"),
		RoundaboutOverlapToleranceMeters: v.GetFloat64("roundabout-overlap-tolerance-meters"),

		MaxMatchDistanceMeters: v.GetFloat64("max-match-distance-meters"),
		MinOverlapPercent:      v.GetFloat64("min-overlap-percent"),

		TunnelMinClearanceMeters:   v.GetFloat64("tunnel-min-clearance-meters"),
		TunnelInteriorHeightMeters: v.GetFloat64("tunnel-interior-height-meters"),
		TunnelMaxGradePercent:      v.GetFloat64("tunnel-max-grade-percent"),

		ShortBridgeMaxLengthMeters:  v.GetFloat64("short-bridge-max-length-meters"),
		MediumBridgeMaxLengthMeters: v.GetFloat64("medium-bridge-max-length-meters"),
		DefaultTerrainSampleCount:   v.GetInt("default-terrain-sample-count"),
	}
}
