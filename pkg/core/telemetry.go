package core

import "time"

// TelemetryEvent is a playback health sample reported by the host player.
type TelemetryEvent struct {
	Time          time.Time `json:"time"`
	PlaybackTime  float64   `json:"playbackTime"`
	PlayerFps     float32   `json:"playerFps"`
	DroppedFrames uint16    `json:"droppedFrames"`
	DecodeMs      float32   `json:"decodeMs"`
}

// QueueLengths snapshots the write-behind queue depths.
type QueueLengths struct {
	Annotations uint16 `json:"annotations"`
	Moves       uint16 `json:"moves"`
	Removals    uint16 `json:"removals"`
	Telemetry   uint16 `json:"telemetry"`
}

// PerfSnapshot is a periodic recorder health sample.
type PerfSnapshot struct {
	Time                time.Time    `json:"time"`
	Queues              QueueLengths `json:"queues"`
	LastWriteDurationMs float32      `json:"lastWriteDurationMs"`
	AnnotationCount     uint16       `json:"annotationCount"`
}
