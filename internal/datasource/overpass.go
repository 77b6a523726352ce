package datasource

import (
	"net/http"
	"time"

	"github.com/MeKo-Christian/go-overpass"
)

// OverpassConfig contains configuration for the Overpass API client.
type OverpassConfig struct {
	// Endpoint is the Overpass API URL (default: https://overpass-api.de/api/interpreter)
	Endpoint string
	// Workers controls parallelism (default: 2 for public API, increase for private instances)
	Workers int
	// RetryConfig configures retry behavior with exponential backoff
	RetryConfig *overpass.RetryConfig
	// HTTPClient allows custom HTTP client (default: http.DefaultClient)
	HTTPClient *http.Client
}

// DefaultOverpassConfig returns sensible defaults for public Overpass API.
func DefaultOverpassConfig() OverpassConfig {
	retryConfig := overpass.DefaultRetryConfig()
	return OverpassConfig{
		Endpoint:    "https://overpass-api.de/api/interpreter",
		Workers:     2,
		RetryConfig: &retryConfig,
		HTTPClient:  http.DefaultClient,
	}
}

// PrivateInstanceConfig returns config optimized for a private Overpass instance.
// Uses more aggressive retries and higher parallelism.
func PrivateInstanceConfig(endpoint string) OverpassConfig {
	return OverpassConfig{
		Endpoint: endpoint,
		Workers:  10, // Higher parallelism for private instance
		RetryConfig: &overpass.RetryConfig{
			MaxRetries:        5,
			InitialBackoff:    500 * time.Millisecond,
			MaxBackoff:        10 * time.Second,
			BackoffMultiplier: 1.5,
			Jitter:            true, // Prevents thundering herd
		},
		HTTPClient: http.DefaultClient,
	}
}
