package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/signalsfoundry/surface-sampler/core"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sampler.yaml")

	data := `
name: IR Surface Sampler
probe:
  transform: drillTransform
  distance: 2.5
animation: Drill
rerunnable: false
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.Probe.Transform != "drillTransform" || cfg.Probe.Distance != 2.5 {
		t.Fatalf("probe = %+v", cfg.Probe)
	}
	if cfg.DefaultDeployTime != 2*time.Second {
		t.Fatalf("expected DefaultDeployTime 2s, got %s", cfg.DefaultDeployTime)
	}
	if cfg.ScanInterval != 500*time.Millisecond {
		t.Fatalf("expected ScanInterval 500ms, got %s", cfg.ScanInterval)
	}
	if cfg.CaptureRadius != 200 || cfg.MaxWarp != 10 {
		t.Fatalf("expected capture radius 200 and max warp 10, got %v %v", cfg.CaptureRadius, cfg.MaxWarp)
	}
	if cfg.Experiments.Surface != "surfaceSample" || cfg.Experiments.Asteroid != "asteroidSample" {
		t.Fatalf("experiments = %+v", cfg.Experiments)
	}
	if cfg.ForeignBodyPrefix != "PotatoRoid" {
		t.Fatalf("foreign body prefix = %q", cfg.ForeignBodyPrefix)
	}
	layers, err := cfg.Layers()
	if err != nil || len(layers) != 1 || layers[0] != core.LayerLocalScenery {
		t.Fatalf("Layers() = (%v, %v), want [local_scenery]", layers, err)
	}
}

func TestParseDurations(t *testing.T) {
	cfg, err := Parse([]byte("scan_interval: 250ms\ndefault_deploy_time: 3s\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.ScanInterval != 250*time.Millisecond || cfg.DefaultDeployTime != 3*time.Second {
		t.Fatalf("durations = %v %v", cfg.ScanInterval, cfg.DefaultDeployTime)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown layer":   "terrain_layers: [\"15\"]\n",
		"transmit scalar": "transmit_scalar: 1.5\n",
		"ancestor depth":  "max_ancestor_depth: 500\n",
		"warp":            "max_warp: 0.5\n",
	}
	for name, raw := range cases {
		if _, err := Parse([]byte(raw)); err == nil {
			t.Fatalf("%s: expected Parse() to fail", name)
		}
	}
}

func TestParseKeepsUnusableProbeDistance(t *testing.T) {
	cfg, err := Parse([]byte("probe:\n  distance: -1\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Probe.Distance != -1 {
		t.Fatalf("probe distance = %v, want -1", cfg.Probe.Distance)
	}
}

func TestRuntimeFromEnvironment(t *testing.T) {
	rt, err := parseRuntime(env.Options{Environment: map[string]string{
		"LOG_LEVEL":                    "debug",
		"SAMPLER_TRACING_ENABLED":      "true",
		"SAMPLER_TRACING_SAMPLE_RATIO": "0.5",
		"SAMPLER_GRPC_ADDR":            ":7443",
	}})
	if err != nil {
		t.Fatalf("parseRuntime() error = %v", err)
	}
	if rt.LogLevel != "debug" || !rt.TracingEnabled || rt.TracingSampleRatio != 0.5 || rt.GRPCAddr != ":7443" {
		t.Fatalf("runtime = %+v", rt)
	}
	if rt.LogFormat != "text" || rt.TracingExporter != "stdout" {
		t.Fatalf("defaults not applied: %+v", rt)
	}

	if _, err := parseRuntime(env.Options{Environment: map[string]string{
		"SAMPLER_TRACING_SAMPLE_RATIO": "2",
	}}); err == nil {
		t.Fatalf("expected out-of-range ratio to fail")
	}
}
