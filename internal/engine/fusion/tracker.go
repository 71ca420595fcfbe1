package fusion

import (
	"math"
	"sync"
	"time"

	"github.com/glintlabs/glint/internal/shared/types"
)

// Config tunes the fusion filter.
type Config struct {
	// PositionAlpha is the exponential smoothing factor for position.
	PositionAlpha float64
	// VelocityAlpha is the exponential smoothing factor for velocity.
	VelocityAlpha float64
	// IdleHalfLife controls velocity decay while no samples arrive.
	IdleHalfLife time.Duration
	// CheckInterval is the expected tick spacing; a sample gap longer than
	// this triggers idle decay on the next tick.
	CheckInterval time.Duration
	// MinGazeConfidence is the threshold below which gaze frames are
	// treated as noise.
	MinGazeConfidence float64
}

// DefaultConfig returns the production filter settings.
func DefaultConfig() Config {
	return Config{
		PositionAlpha:     0.35,
		VelocityAlpha:     0.3,
		IdleHalfLife:      300 * time.Millisecond,
		CheckInterval:     200 * time.Millisecond,
		MinGazeConfidence: 0.5,
	}
}

// Tracker folds raw pointer samples and, when available, an external gaze
// stream into a smoothed position and velocity estimate. Gaze supersedes
// pointer input while the gaze source is healthy.
type Tracker struct {
	cfg Config

	mu         sync.Mutex
	x, y       float64
	velocity   float64
	lastSample time.Time
	lastDecay  time.Time
	lastRawX   float64
	lastRawY   float64
	hasRaw     bool
	primed     bool
	gazeLive   bool
	source     types.PositionSource
}

// NewTracker creates a tracker with the given configuration. Zero fields
// fall back to defaults.
func NewTracker(cfg Config) *Tracker {
	def := DefaultConfig()
	if cfg.PositionAlpha <= 0 || cfg.PositionAlpha > 1 {
		cfg.PositionAlpha = def.PositionAlpha
	}
	if cfg.VelocityAlpha <= 0 || cfg.VelocityAlpha > 1 {
		cfg.VelocityAlpha = def.VelocityAlpha
	}
	if cfg.IdleHalfLife <= 0 {
		cfg.IdleHalfLife = def.IdleHalfLife
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = def.CheckInterval
	}
	if cfg.MinGazeConfidence <= 0 {
		cfg.MinGazeConfidence = def.MinGazeConfidence
	}
	return &Tracker{cfg: cfg, source: types.SourcePointer}
}

// ObservePointer folds a raw pointer sample into the filter. Pointer input
// is ignored while a healthy gaze stream is supplying positions.
func (t *Tracker) ObservePointer(s types.PointerSample) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gazeLive {
		return
	}
	t.fold(s.X, s.Y, s.T, types.SourcePointer)
}

// ObserveGaze folds a gaze frame into the filter. A malformed frame, a low
// confidence score, or an outage marker marks the gaze source unavailable;
// it stays unavailable until a valid frame arrives again.
func (t *Tracker) ObserveGaze(f types.GazeFrame) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !f.Valid() || f.Confidence < t.cfg.MinGazeConfidence {
		t.gazeLive = false
		return
	}
	t.gazeLive = true
	t.fold(f.X, f.Y, f.T, types.SourceGaze)
}

// GazeLive reports whether gaze is currently the position source.
func (t *Tracker) GazeLive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gazeLive
}

// Tick returns the current fused position, applying idle velocity decay
// when no raw sample arrived within one check interval. Call once per
// detector tick.
func (t *Tracker) Tick(now time.Time) types.FusedPosition {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.primed && now.Sub(t.lastSample) > t.cfg.CheckInterval {
		// Motionless input produces no events; decay velocity so the
		// detector can still recognize rest. Decay runs from whichever is
		// later, the last sample or the last decayed tick, so repeated
		// ticks never re-apply the same span.
		from := t.lastSample
		if t.lastDecay.After(from) {
			from = t.lastDecay
		}
		if elapsed := now.Sub(from).Seconds(); elapsed > 0 {
			half := t.cfg.IdleHalfLife.Seconds()
			t.velocity *= math.Pow(0.5, elapsed/half)
			if t.velocity < 1e-3 {
				t.velocity = 0
			}
		}
		t.lastDecay = now
	}

	return types.FusedPosition{
		X:        t.x,
		Y:        t.y,
		Velocity: t.velocity,
		T:        now,
		Source:   t.source,
	}
}

// Primed reports whether at least one sample has been folded.
func (t *Tracker) Primed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.primed
}

// Reset clears all filter state.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.x, t.y, t.velocity = 0, 0, 0
	t.lastSample, t.lastDecay = time.Time{}, time.Time{}
	t.hasRaw = false
	t.primed = false
	t.gazeLive = false
	t.source = types.SourcePointer
}

func (t *Tracker) fold(x, y float64, at time.Time, src types.PositionSource) {
	if at.IsZero() {
		at = time.Now()
	}

	if !t.primed {
		t.x, t.y = x, y
		t.primed = true
	} else {
		a := t.cfg.PositionAlpha
		t.x = t.x + a*(x-t.x)
		t.y = t.y + a*(y-t.y)
	}

	if t.hasRaw {
		dt := at.Sub(t.lastSample).Seconds()
		if dt > 0 {
			raw := math.Hypot(x-t.lastRawX, y-t.lastRawY) / dt
			va := t.cfg.VelocityAlpha
			t.velocity = t.velocity + va*(raw-t.velocity)
		}
	}

	t.lastRawX, t.lastRawY = x, y
	t.lastSample = at
	t.hasRaw = true
	t.source = src
}
