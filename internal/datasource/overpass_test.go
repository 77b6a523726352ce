package datasource

import "testing"

func TestDefaultOverpassConfig(t *testing.T) {
	cfg := DefaultOverpassConfig()
	if cfg.Endpoint != "https://overpass-api.de/api/interpreter" {
		t.Errorf("unexpected default endpoint: %s", cfg.Endpoint)
	}
	if cfg.Workers != 2 {
		t.Errorf("expected 2 default workers, got %d", cfg.Workers)
	}
	if cfg.RetryConfig == nil {
		t.Error("expected a default retry config")
	}
	if cfg.HTTPClient == nil {
		t.Error("expected a default HTTP client")
	}
}

func TestPrivateInstanceConfig(t *testing.T) {
	cfg := PrivateInstanceConfig("http://localhost:12345/api/interpreter")
	if cfg.Endpoint != "http://localhost:12345/api/interpreter" {
		t.Errorf("unexpected endpoint: %s", cfg.Endpoint)
	}
	if cfg.Workers != 10 {
		t.Errorf("expected 10 workers for a private instance, got %d", cfg.Workers)
	}
	if cfg.RetryConfig == nil || cfg.RetryConfig.MaxRetries != 5 {
		t.Error("expected an aggressive retry config for a private instance")
	}
}
