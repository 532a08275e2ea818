package streaming

import (
	"encoding/json"

	"github.com/creaselab/overlay/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartSession     = "start_session"
	TypeEndSession       = "end_session"
	TypeAddAnnotation    = "add_annotation"
	TypeMoveAnnotation   = "move_annotation"
	TypeDeleteAnnotation = "delete_annotation"
	TypeTelemetry        = "telemetry"
	TypePerf             = "perf"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartSessionPayload carries the loaded video's session data.
type StartSessionPayload struct {
	Session *core.VideoSession `json:"session"`
}

// AddAnnotationPayload carries one finalized mark.
type AddAnnotationPayload struct {
	SessionID  string          `json:"sessionId"`
	Annotation core.Annotation `json:"annotation"`
}

// MoveAnnotationPayload carries a text mark reposition.
type MoveAnnotationPayload struct {
	SessionID string              `json:"sessionId"`
	Move      core.AnnotationMove `json:"move"`
}

// DeleteAnnotationPayload carries a host-confirmed removal.
type DeleteAnnotationPayload struct {
	SessionID string                 `json:"sessionId"`
	Removal   core.AnnotationRemoval `json:"removal"`
}

// TelemetryPayload carries one player health sample.
type TelemetryPayload struct {
	SessionID string              `json:"sessionId"`
	Event     core.TelemetryEvent `json:"event"`
}

// PerfPayload carries one recorder health snapshot.
type PerfPayload struct {
	SessionID string            `json:"sessionId"`
	Snapshot  core.PerfSnapshot `json:"snapshot"`
}
