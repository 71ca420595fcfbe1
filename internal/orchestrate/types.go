package orchestrate

import (
	"encoding/json"
	"time"

	"github.com/glintlabs/glint/internal/search"
	"github.com/glintlabs/glint/internal/shared/types"
)

// Stage is the position of one chain run.
type Stage int

const (
	StageCapturing Stage = iota
	StageReasoning
	StageDone
	StageFailed
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageCapturing:
		return "capturing"
	case StageReasoning:
		return "reasoning"
	case StageDone:
		return "done"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// CaptureRequest is the stage-one payload.
type CaptureRequest struct {
	URL               string      `json:"url"`
	Point             types.Point `json:"point"`
	Snapshot          []byte      `json:"snapshot,omitempty"` // PNG, base64 on the wire
	ExtractedText     string      `json:"extracted_text"`
	ContextWindowSize int         `json:"context_window_size"`
	DwellTimeMS       int64       `json:"dwell_time_ms"`
	UserID            string      `json:"user_id"`
	SessionID         string      `json:"session_id"`
}

// envelope is the transport wrapper both endpoints share. Success must be
// explicitly true; a populated-looking payload flagged failed is still a
// failure.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error,omitempty"`
}

// CaptureData is the normalized stage-one result. Raw preserves the full
// payload for the reasoning stage.
type CaptureData struct {
	ExtractedText string          `json:"extracted_text"`
	Raw           json.RawMessage `json:"-"`
}

// AgentsData is the stage-two reasoning output.
type AgentsData struct {
	Classification string `json:"classification"`
	Hypothesis     string `json:"hypothesis"`
	Explanation    string `json:"explanation"`
}

// Populated reports whether the reasoning payload carries usable output.
func (a AgentsData) Populated() bool {
	return a.Explanation != "" || a.Classification != "" || a.Hypothesis != ""
}

// ChainResult is the outcome of one two-stage run. Success requires both
// stages to explicitly report success.
type ChainResult struct {
	Stage   Stage
	Capture CaptureData
	Agents  AgentsData

	// Per-stage wall time, zero for stages that never ran.
	CaptureTook   time.Duration
	ReasoningTook time.Duration
}

// Success reports whether the chain completed both stages.
func (r *ChainResult) Success() bool {
	return r != nil && r.Stage == StageDone
}

// ResolveResult is the tabbed payload rendered to the session on success.
type ResolveResult struct {
	SessionID      string          `json:"session_id"`
	Classification string          `json:"classification"`
	Explanation    string          `json:"explanation"`
	Hypothesis     string          `json:"hypothesis,omitempty"`
	Query          string          `json:"query,omitempty"`
	Resources      []search.Result `json:"resources,omitempty"`
	At             time.Time       `json:"at"`
}

// Status is a human-readable status surfaced to the session. Remote-stage
// failures produce exactly one of these and are never auto-retried.
type Status struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Status codes surfaced to sessions.
const (
	StatusCaptureFailed   = "capture_failed"
	StatusReasoningFailed = "reasoning_failed"
	StatusNotebookFailed  = "notebook_failed"
)

// NotebookEntry is the fire-and-forget persistence side effect.
type NotebookEntry struct {
	SessionID string   `json:"session_id"`
	Title     string   `json:"title"`
	Snippet   string   `json:"snippet"`
	Content   string   `json:"content"`
	Tags      []string `json:"tags,omitempty"`
}
