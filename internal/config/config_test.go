package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, "app:\n  name: bookcomps\n"))
	if err != nil {
		t.Fatalf("Load should succeed: %v", err)
	}

	if cfg.Ingest.Workers != 4 {
		t.Fatalf("default workers wrong: %d", cfg.Ingest.Workers)
	}
	if cfg.Ingest.MinPrice != 0.01 || cfg.Ingest.MaxPrice != 10000.0 {
		t.Fatalf("default price bounds wrong: %f..%f", cfg.Ingest.MinPrice, cfg.Ingest.MaxPrice)
	}
	if cfg.Stats.LookbackDays != 365 {
		t.Fatalf("default lookback wrong: %d", cfg.Stats.LookbackDays)
	}
	if cfg.Stats.RefreshInterval != 24*time.Hour {
		t.Fatalf("default refresh interval wrong: %s", cfg.Stats.RefreshInterval)
	}
	if cfg.Estimator.MedianRatio != 0.75 || cfg.Estimator.MinRatio != 0.65 || cfg.Estimator.MaxRatio != 0.85 {
		t.Fatalf("default estimator ratios wrong: %+v", cfg.Estimator)
	}
	if cfg.Staleness.Market != 24*time.Hour {
		t.Fatalf("default market staleness wrong: %s", cfg.Staleness.Market)
	}
	if len(cfg.Stats.Platforms) != 3 {
		t.Fatalf("default platforms wrong: %v", cfg.Stats.Platforms)
	}
}

func TestLoadOverridesFromFile(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, `
ingest:
  workers: 8
stats:
  lookback_days: 90
  refresh_interval: 6h
`))
	if err != nil {
		t.Fatalf("Load should succeed: %v", err)
	}

	if cfg.Ingest.Workers != 8 {
		t.Fatalf("workers override wrong: %d", cfg.Ingest.Workers)
	}
	if cfg.Stats.LookbackDays != 90 {
		t.Fatalf("lookback override wrong: %d", cfg.Stats.LookbackDays)
	}
	if cfg.Stats.RefreshInterval != 6*time.Hour {
		t.Fatalf("refresh interval override wrong: %s", cfg.Stats.RefreshInterval)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"zero workers", "ingest:\n  workers: 0\n"},
		{"inverted price bounds", "ingest:\n  min_price: 100\n  max_price: 10\n"},
		{"inverted ratios", "estimator:\n  min_ratio: 0.9\n  median_ratio: 0.75\n"},
		{"score out of range", "scoring:\n  min_score: 1.5\n"},
	}

	for _, c := range cases {
		if _, err := Load(writeConfigFile(t, c.content)); err == nil {
			t.Fatalf("%s: Load should fail", c.name)
		}
	}
}

func TestResolveMaxPoints(t *testing.T) {
	cfg := Config{Export: ExportConfig{MaxDataPoints: 500}}

	if got := cfg.ResolveMaxPoints(0); got != 500 {
		t.Fatalf("config default should apply, got %d", got)
	}
	if got := cfg.ResolveMaxPoints(42); got != 42 {
		t.Fatalf("override should win, got %d", got)
	}
}
