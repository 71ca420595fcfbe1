package types

import "time"

// PositionSource identifies which input stream produced a fused position.
type PositionSource string

const (
	SourcePointer PositionSource = "pointer"
	SourceGaze    PositionSource = "gaze"
)

// PointerSample is a raw pointer event. Samples are folded into the fusion
// state as they arrive and never retained.
type PointerSample struct {
	X float64   `json:"x"`
	Y float64   `json:"y"`
	T time.Time `json:"t"`
}

// GazeFrame is one sample from the external gaze source. Only the most
// recent frame matters; frames are never buffered.
type GazeFrame struct {
	X          float64   `json:"x"`
	Y          float64   `json:"y"`
	Confidence float64   `json:"confidence"`
	T          time.Time `json:"t"`

	// Available is false when the frame is an outage marker rather than a
	// coordinate sample.
	Available bool `json:"available"`
}

// Valid reports whether the frame carries usable coordinates.
func (f GazeFrame) Valid() bool {
	return f.Available && Point{X: f.X, Y: f.Y}.Valid()
}

// FusedPosition is the smoothed output of position fusion, consumed once
// per detector tick.
type FusedPosition struct {
	X        float64        `json:"x"`
	Y        float64        `json:"y"`
	Velocity float64        `json:"velocity"` // px/s
	T        time.Time      `json:"t"`
	Source   PositionSource `json:"source"`
}

// Point returns the position as a Point.
func (f FusedPosition) Point() Point {
	return Point{X: f.X, Y: f.Y}
}
