package config

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func TestBindFlagsAndLoadRoundTripsDefaults(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	v := viper.New()

	if err := BindFlags(flags, v); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}

	got := Load(v)
	want := Defaults()
	if got != want {
		t.Fatalf("expected Load to round-trip Defaults exactly, got %+v, want %+v", got, want)
	}
}

func TestBindFlagsHonorsOverride(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	v := viper.New()

	if err := BindFlags(flags, v); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}
	if err := flags.Set("meters-per-pixel", "2.5"); err != nil {
		t.Fatalf("flags.Set: %v", err)
	}

	got := Load(v)
	if got.MetersPerPixel != 2.5 {
		t.Fatalf("expected overridden MetersPerPixel 2.5, got %v", got.MetersPerPixel)
	}
}
