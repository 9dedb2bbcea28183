package main

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/signalsfoundry/surface-sampler/core"
	"github.com/signalsfoundry/surface-sampler/internal/config"
	"github.com/signalsfoundry/surface-sampler/internal/logging"
	"github.com/signalsfoundry/surface-sampler/internal/persist"
	"github.com/signalsfoundry/surface-sampler/timectrl"
)

func testRuntime() config.Runtime {
	return config.Runtime{
		LogLevel:           "warn",
		LogFormat:          "text",
		TracingServiceName: "surface-sampler",
		TracingSampleRatio: 1,
	}
}

func testOptions(scenario, action string) Options {
	return Options{
		Duration:    20 * time.Second,
		Tick:        250 * time.Millisecond,
		Accelerated: true,
		Warp:        1,
		Scenario:    scenario,
		Action:      action,
	}
}

func runSimulation(t *testing.T, opts Options) string {
	t.Helper()
	var out bytes.Buffer
	if err := run(context.Background(), opts, testRuntime(), logging.Noop(), &out); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	return out.String()
}

// TestSurfaceTransmitAndSave deploys on the surface, transmits the sample
// and checks the save file records the spent instrument.
func TestSurfaceTransmitAndSave(t *testing.T) {
	defer goleak.VerifyNone(t)

	opts := testOptions("surface", "transmit")
	opts.SaveDir = t.TempDir()
	out := runSimulation(t, opts)

	for _, want := range []string{
		"[deployed] Surface Sample from Mun (Midlands)",
		"state=inoperable records=0",
		"[science] surfaceSample@MunSrfLandedMidlands +",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}

	store, err := persist.NewFileStore(opts.SaveDir, persist.Binary)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	root, err := store.Load(saveName)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got, _ := root.GetValue("state"); got != "inoperable" {
		t.Fatalf("saved state = %q, want inoperable", got)
	}

	// A resumed run starts spent and never deploys.
	opts.Resume = true
	out = runSimulation(t, opts)
	if strings.Contains(out, "[deployed]") {
		t.Fatalf("resumed inoperable instrument deployed again:\n%s", out)
	}
	if !strings.Contains(out, "state=inoperable") {
		t.Fatalf("resumed state not inoperable:\n%s", out)
	}
}

func TestRendezvousKeepsAsteroidSample(t *testing.T) {
	opts := testOptions("rendezvous", "keep")
	opts.SaveDir = t.TempDir()
	opts.TextSave = true
	out := runSimulation(t, opts)

	if !strings.Contains(out, "[deployed] Asteroid Sample from Class A Asteroid") {
		t.Fatalf("asteroid sample not deployed:\n%s", out)
	}
	if !strings.Contains(out, "state=deployed records=1") {
		t.Fatalf("kept record missing:\n%s", out)
	}

	store, err := persist.NewFileStore(opts.SaveDir, persist.Text)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	root, err := store.Load(saveName)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	records := root.GetNodes(persist.RecordNodeName)
	if len(records) != 1 {
		t.Fatalf("saved records = %d, want 1", len(records))
	}
	rec, err := persist.LoadRecord(records[0])
	if err != nil {
		t.Fatalf("LoadRecord() error = %v", err)
	}
	if rec.SubjectID != "asteroidSample@PotatoRoid7InSpaceLow" {
		t.Fatalf("SubjectID = %q, want asteroidSample@PotatoRoid7InSpaceLow", rec.SubjectID)
	}
}

func TestRendezvousAsteroidFollowsTarget(t *testing.T) {
	tc := timectrl.NewTimeController(time.Date(2021, 10, 2, 0, 0, 0, 0, time.UTC), time.Second, timectrl.Accelerated)
	sc, err := buildScenario("rendezvous", tc)
	if err != nil {
		t.Fatalf("buildScenario() error = %v", err)
	}
	sc.world.Move("asteroid", core.Vec3{Z: -500})
	sc.follow()

	hit, ok := sc.world.Raycast(core.Ray{Direction: core.Vec3{Z: -1}}, 5)
	if !ok {
		t.Fatalf("asteroid not back beside the vessel after follow()")
	}
	if math.Abs(hit.Distance-1.5) > 1e-6 {
		t.Fatalf("hit distance = %v, want 1.5", hit.Distance)
	}
}

func TestAnalyzeReturnsFromLab(t *testing.T) {
	out := runSimulation(t, testOptions("surface", "analyze"))
	if !strings.Contains(out, "state=inoperable records=0") {
		t.Fatalf("analysed record not consumed:\n%s", out)
	}
}

func TestUnknownScenario(t *testing.T) {
	err := run(context.Background(), testOptions("mars", "keep"), testRuntime(), logging.Noop(), &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "unknown scenario") {
		t.Fatalf("run() error = %v, want unknown scenario", err)
	}
}

func TestManualRunServesOperators(t *testing.T) {
	rt := testRuntime()
	rt.MetricsAddr = "127.0.0.1:0"
	rt.GRPCAddr = "127.0.0.1:0"

	opts := testOptions("surface", "transmit")
	opts.Duration = 2 * time.Second
	opts.Manual = true

	var out bytes.Buffer
	if err := run(context.Background(), opts, rt, logging.Noop(), &out); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(out.String(), "state=idle records=0") {
		t.Fatalf("manual run acted without an operator:\n%s", out.String())
	}
}
