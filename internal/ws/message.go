package ws

import "encoding/json"

// Message is the envelope both directions share. Data holds the
// type-specific payload.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Inbound message types.
const (
	TypePointerSample   = "pointer_sample"
	TypeHostEvent       = "host_event"
	TypeDocument        = "document_snapshot"
	TypeCaptureResponse = "capture_response"
	TypeControl         = "control"
	TypePing            = "ping"
)

// Outbound message types.
const (
	TypeSystem         = "system"
	TypeResolveResult  = "resolve_result"
	TypeStatus         = "status"
	TypeCaptureRequest = "capture_request"
	TypePong           = "pong"
	TypeError          = "error"
)
