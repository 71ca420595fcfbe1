package fusion

import (
	"testing"
	"time"

	"github.com/glintlabs/glint/internal/shared/types"
)

func sampleAt(x, y float64, t time.Time) types.PointerSample {
	return types.PointerSample{X: x, Y: y, T: t}
}

func TestTrackerConvergesToStationaryPoint(t *testing.T) {
	tr := NewTracker(DefaultConfig())
	base := time.Now()

	for i := 0; i < 50; i++ {
		tr.ObservePointer(sampleAt(100, 200, base.Add(time.Duration(i)*20*time.Millisecond)))
	}

	pos := tr.Tick(base.Add(1 * time.Second))
	if d := pos.Point().DistanceTo(types.Point{X: 100, Y: 200}); d > 0.5 {
		t.Errorf("expected convergence to (100,200), got (%v,%v)", pos.X, pos.Y)
	}
}

func TestTrackerVelocityDecaysWhenIdle(t *testing.T) {
	tr := NewTracker(DefaultConfig())
	base := time.Now()

	// Fast movement builds velocity.
	for i := 0; i < 10; i++ {
		tr.ObservePointer(sampleAt(float64(i)*50, 0, base.Add(time.Duration(i)*20*time.Millisecond)))
	}
	moving := tr.Tick(base.Add(200 * time.Millisecond))
	if moving.Velocity < 100 {
		t.Fatalf("expected high velocity after fast movement, got %v", moving.Velocity)
	}

	// No samples for 2s of cooperative ticks: velocity decays toward zero.
	var idle types.FusedPosition
	for at := 400 * time.Millisecond; at <= 2200*time.Millisecond; at += 200 * time.Millisecond {
		idle = tr.Tick(base.Add(at))
	}
	if idle.Velocity > 30 {
		t.Errorf("expected velocity decay during idle, got %v", idle.Velocity)
	}
}

func TestTrackerGapWithinIntervalSkipsDecay(t *testing.T) {
	cfg := DefaultConfig()
	tr := NewTracker(cfg)
	base := time.Now()

	for i := 0; i < 10; i++ {
		tr.ObservePointer(sampleAt(float64(i)*50, 0, base.Add(time.Duration(i)*20*time.Millisecond)))
	}
	before := tr.Tick(base.Add(180 * time.Millisecond))
	after := tr.Tick(base.Add(180*time.Millisecond + cfg.CheckInterval/2))
	if after.Velocity < before.Velocity*0.99 {
		t.Errorf("velocity decayed inside one check interval: %v -> %v", before.Velocity, after.Velocity)
	}
}

func TestGazeSupersedesPointer(t *testing.T) {
	tr := NewTracker(DefaultConfig())
	base := time.Now()

	tr.ObserveGaze(types.GazeFrame{X: 10, Y: 10, Confidence: 0.9, T: base, Available: true})
	if !tr.GazeLive() {
		t.Fatal("expected gaze to be live")
	}

	// Pointer samples are ignored while gaze is live.
	for i := 0; i < 30; i++ {
		tr.ObservePointer(sampleAt(500, 500, base.Add(time.Duration(i+1)*20*time.Millisecond)))
	}
	pos := tr.Tick(base.Add(time.Second))
	if pos.Point().DistanceTo(types.Point{X: 10, Y: 10}) > 1 {
		t.Errorf("pointer input moved gaze-sourced position: (%v,%v)", pos.X, pos.Y)
	}
	if pos.Source != types.SourceGaze {
		t.Errorf("expected gaze source, got %s", pos.Source)
	}
}

func TestLowConfidenceGazeMarksUnavailable(t *testing.T) {
	tr := NewTracker(DefaultConfig())
	base := time.Now()

	tr.ObserveGaze(types.GazeFrame{X: 10, Y: 10, Confidence: 0.9, T: base, Available: true})
	tr.ObserveGaze(types.GazeFrame{X: 12, Y: 12, Confidence: 0.1, T: base.Add(20 * time.Millisecond), Available: true})
	if tr.GazeLive() {
		t.Fatal("low confidence frame should mark gaze unavailable")
	}

	// Pointer takes over again.
	tr.ObservePointer(sampleAt(300, 300, base.Add(40*time.Millisecond)))
	pos := tr.Tick(base.Add(60 * time.Millisecond))
	if pos.Source != types.SourcePointer {
		t.Errorf("expected pointer source after gaze degradation, got %s", pos.Source)
	}
}

func TestOutageFrameMarksUnavailable(t *testing.T) {
	tr := NewTracker(DefaultConfig())
	tr.ObserveGaze(types.GazeFrame{X: 10, Y: 10, Confidence: 0.9, Available: true})
	tr.ObserveGaze(types.GazeFrame{Available: false})
	if tr.GazeLive() {
		t.Error("outage frame should mark gaze unavailable")
	}
}
