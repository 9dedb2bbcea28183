package instrument

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/signalsfoundry/surface-sampler/core"
	"github.com/signalsfoundry/surface-sampler/internal/persist"
	"github.com/signalsfoundry/surface-sampler/model"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	for _, enc := range []persist.Encoding{persist.Binary, persist.Text} {
		f := newFixture(t, nil)
		f.deployAndComplete(t)

		root := persist.NewNode("MODULE")
		f.sampler.Save(root)

		data, err := persist.Marshal(root, enc)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		decoded, err := persist.Unmarshal(data, enc)
		if err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}

		restored := newFixture(t, nil)
		if err := restored.sampler.Load(decoded); err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if diff := cmp.Diff(f.sampler.GetRecords(), restored.sampler.GetRecords()); diff != "" {
			t.Fatalf("records mismatch (-want +got):\n%s", diff)
		}
		if got := restored.sampler.State(); got != model.StateDeployed {
			t.Fatalf("State() = %v, want deployed", got)
		}
		if restored.metrics.held != 1 {
			t.Fatalf("records held metric = %d, want 1", restored.metrics.held)
		}
	}
}

func TestSaveOverwritesPreviousRecords(t *testing.T) {
	f := newFixture(t, nil)
	root := persist.NewNode("MODULE")
	rec := f.deployAndComplete(t)
	f.sampler.Save(root)

	if err := f.sampler.Discard(context.Background(), rec); err != nil {
		t.Fatalf("Discard() error = %v", err)
	}
	f.sampler.Save(root)

	if root.HasNode(persist.RecordNodeName) {
		t.Fatalf("stale record left in saved node")
	}
	if v, _ := root.GetValue(stateKey); v != "idle" {
		t.Fatalf("saved state = %q, want idle", v)
	}
}

func TestSaveWhilePendingOmitsRequest(t *testing.T) {
	f := newFixture(t, nil)
	if err := f.sampler.Deploy(context.Background()); err != nil {
		t.Fatalf("Deploy() error = %v", err)
	}

	root := persist.NewNode("MODULE")
	f.sampler.Save(root)
	if v, _ := root.GetValue(stateKey); v != "idle" {
		t.Fatalf("saved state = %q, want idle", v)
	}
	if len(root.GetNodes(persist.RecordNodeName)) != 0 {
		t.Fatalf("pending deploy persisted a record")
	}

	if err := f.sampler.Load(root); !errors.Is(err, ErrCapacity) {
		t.Fatalf("Load() while pending error = %v, want ErrCapacity", err)
	}
}

func TestLoadRestoresInoperable(t *testing.T) {
	root := persist.NewNode("MODULE")
	root.SetValue(stateKey, "inoperable")

	f := newFixture(t, nil)
	if err := f.sampler.Load(root); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := f.sampler.State(); got != model.StateInoperable {
		t.Fatalf("State() = %v, want inoperable", got)
	}
	if err := f.sampler.Deploy(context.Background()); !errors.Is(err, ErrCapacity) {
		t.Fatalf("Deploy() error = %v, want ErrCapacity", err)
	}
}

func TestLoadDeployedWithoutRecordsIsIdle(t *testing.T) {
	root := persist.NewNode("MODULE")
	root.SetValue(stateKey, "deployed")

	f := newFixture(t, nil)
	if err := f.sampler.Load(root); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := f.sampler.State(); got != model.StateIdle {
		t.Fatalf("State() = %v, want idle", got)
	}
	if err := f.sampler.Deploy(context.Background()); err != nil {
		t.Fatalf("Deploy() after Load error = %v", err)
	}
}

func TestLoadRescansDeployAvailability(t *testing.T) {
	target := &fakeTarget{}
	f := newFixture(t, nil, WithTargetTracker(target))
	f.vehicle.situation = model.VehicleOrbiting

	f.sampler.Tick(testStart, 1)
	if f.sampler.Actions().Deploy {
		t.Fatalf("deploy exposed with nothing in range")
	}

	target.ok = true
	target.bodies = []core.Attachment{{Position: core.Vec3{X: 50}}}
	if err := f.sampler.Load(persist.NewNode("MODULE")); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Well inside the scan interval, but a load forces a fresh scan.
	f.sampler.Tick(testStart.Add(100*time.Millisecond), 1)
	if !f.sampler.Actions().Deploy {
		t.Fatalf("deploy not exposed after Load with a target in range")
	}
}

func TestLoadRejectsMalformedInput(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.deployAndComplete(t)

	bad := persist.NewNode("MODULE")
	bad.SetValue(stateKey, "exploded")
	if err := f.sampler.Load(bad); err == nil {
		t.Fatalf("Load() accepted unknown state")
	}

	bad = persist.NewNode("MODULE")
	child := bad.AddNode(persist.RecordNodeName)
	child.SetValue("id", "broken")
	if err := f.sampler.Load(bad); err == nil {
		t.Fatalf("Load() accepted a malformed record")
	}

	records := f.sampler.GetRecords()
	if len(records) != 1 || records[0].ID != rec.ID {
		t.Fatalf("failed Load() changed the held records")
	}
}
