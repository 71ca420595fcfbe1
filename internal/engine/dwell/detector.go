package dwell

import (
	"time"

	"github.com/glintlabs/glint/internal/shared/types"
)

// State is the detector state machine position.
type State int

const (
	StateIdle State = iota
	StateAnchored
	StateResolved
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAnchored:
		return "anchored"
	case StateResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// ResetReason identifies a hard reset condition.
type ResetReason string

const (
	ResetScroll       ResetReason = "scroll"
	ResetInputFocus   ResetReason = "input_focus"
	ResetOverlayHover ResetReason = "overlay_hover"
	ResetDisabled     ResetReason = "disabled"
)

// Anchor is the candidate stable point. It exists only while the detector
// is in the Anchored state.
type Anchor struct {
	X     float64
	Y     float64
	Start time.Time
}

// Event is emitted when a dwell resolves.
type Event struct {
	Point     types.Point
	DwellTime time.Duration
	Velocity  float64
	At        time.Time
}

// Config tunes the state machine.
type Config struct {
	// Radius is the maximum drift from the anchor, in CSS pixels.
	Radius float64
	// DwellTime is the minimum stable duration before a resolve.
	DwellTime time.Duration
	// RestVelocity is the velocity ceiling for a resolve, in px/s. Time
	// alone is not sufficient; the position must also be at rest.
	RestVelocity float64
}

// DefaultConfig returns the production detector settings.
func DefaultConfig() Config {
	return Config{
		Radius:       48,
		DwellTime:    1200 * time.Millisecond,
		RestVelocity: 12,
	}
}

// Detector runs the Idle -> Anchored -> Resolved state machine over fused
// positions. It is driven from a single goroutine and holds no locks.
type Detector struct {
	cfg     Config
	state   State
	anchor  Anchor
	enabled bool
}

// NewDetector creates a detector. Detection starts disabled.
func NewDetector(cfg Config) *Detector {
	def := DefaultConfig()
	if cfg.Radius <= 0 {
		cfg.Radius = def.Radius
	}
	if cfg.DwellTime <= 0 {
		cfg.DwellTime = def.DwellTime
	}
	if cfg.RestVelocity <= 0 {
		cfg.RestVelocity = def.RestVelocity
	}
	return &Detector{cfg: cfg, state: StateIdle}
}

// SetEnabled toggles detection. Disabling is a hard reset.
func (d *Detector) SetEnabled(on bool) {
	d.enabled = on
	if !on {
		d.Reset(ResetDisabled)
	}
}

// Enabled reports whether detection is active.
func (d *Detector) Enabled() bool {
	return d.enabled
}

// State returns the current state.
func (d *Detector) State() State {
	return d.state
}

// CurrentAnchor returns the anchor and whether one exists.
func (d *Detector) CurrentAnchor() (Anchor, bool) {
	if d.state != StateAnchored {
		return Anchor{}, false
	}
	return d.anchor, true
}

// Reset drops any anchor and returns to Idle regardless of radius.
func (d *Detector) Reset(_ ResetReason) {
	d.state = StateIdle
	d.anchor = Anchor{}
}

// Observe advances the state machine with one fused position. It returns a
// non-nil Event exactly when the anchor has been stable for the dwell time
// and the current velocity is below the rest threshold.
func (d *Detector) Observe(pos types.FusedPosition) *Event {
	if !d.enabled {
		return nil
	}

	now := pos.T
	switch d.state {
	case StateIdle:
		d.anchor = Anchor{X: pos.X, Y: pos.Y, Start: now}
		d.state = StateAnchored
		return nil

	case StateAnchored:
		dist := pos.Point().DistanceTo(types.Point{X: d.anchor.X, Y: d.anchor.Y})
		if dist > d.cfg.Radius {
			// Drift past the radius re-anchors at the current sample.
			d.anchor = Anchor{X: pos.X, Y: pos.Y, Start: now}
			return nil
		}

		held := now.Sub(d.anchor.Start)
		if held >= d.cfg.DwellTime && pos.Velocity < d.cfg.RestVelocity {
			d.state = StateResolved
			ev := &Event{
				Point:     types.Point{X: d.anchor.X, Y: d.anchor.Y},
				DwellTime: held,
				Velocity:  pos.Velocity,
				At:        now,
			}
			// Resolved is transient; the next observation starts a fresh
			// anchor from Idle.
			d.state = StateIdle
			d.anchor = Anchor{}
			return ev
		}
		return nil

	default:
		d.state = StateIdle
		return nil
	}
}
