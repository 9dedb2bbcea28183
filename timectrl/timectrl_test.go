package timectrl

import (
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestTimeControllerSetTime(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	tc := NewTimeController(start, time.Second, RealTime)

	newNow := start.Add(42 * time.Second)
	tc.SetTime(newNow)

	if got := tc.Now(); !got.Equal(newNow) {
		t.Fatalf("Now() = %v, want %v", got, newNow)
	}
}

func TestTimeControllerStartUpdatesNow(t *testing.T) {
	defer goleak.VerifyNone(t)

	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	tc := NewTimeController(start, 5*time.Millisecond, Accelerated)

	var ticks int
	tc.AddListener(func(time.Time) { ticks++ })

	done := tc.Start(15 * time.Millisecond)
	<-done

	expected := start.Add(15 * time.Millisecond)
	if got := tc.Now(); !got.Equal(expected) {
		t.Fatalf("Now() = %v, want %v", got, expected)
	}
	if ticks != 3 {
		t.Fatalf("listener ticks = %d, want 3", ticks)
	}
}

func TestTimeControllerStepAppliesWarp(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	tc := NewTimeController(start, 100*time.Millisecond, Accelerated)
	tc.SetWarp(5)

	var seen time.Time
	tc.AddListener(func(now time.Time) { seen = now })

	got := tc.Step()
	want := start.Add(500 * time.Millisecond)
	if !got.Equal(want) || !seen.Equal(want) {
		t.Fatalf("Step() = %v (listener %v), want %v", got, seen, want)
	}
}

func TestTimeControllerWarpFloor(t *testing.T) {
	tc := NewTimeController(time.Unix(0, 0), time.Second, RealTime)
	tc.SetWarp(0.25)
	if got := tc.Warp(); got != 1 {
		t.Fatalf("Warp() = %v, want 1", got)
	}
}
