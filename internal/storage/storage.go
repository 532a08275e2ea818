package storage

import "github.com/creaselab/overlay/pkg/core"

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management
	StartSession(session *core.VideoSession) error
	EndSession() error

	// Annotation recording
	AddAnnotation(a *core.Annotation) error
	MoveAnnotation(m *core.AnnotationMove) error
	DeleteAnnotation(r *core.AnnotationRemoval) error

	// Health recording
	RecordTelemetry(e *core.TelemetryEvent) error
	RecordPerf(p *core.PerfSnapshot) error
}

// Uploadable is an optional interface for storage backends that produce
// files suitable for upload to the review server.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() core.UploadMetadata
}
