// Package memory stores session data in memory and exports it to JSON when
// the session ends.
package memory

import (
	"sync"

	"github.com/creaselab/overlay/internal/config"
	"github.com/creaselab/overlay/pkg/core"
)

// AnnotationRecord groups a mark with its later history
type AnnotationRecord struct {
	Annotation core.Annotation
	Moves      []core.AnnotationMove
	Removal    *core.AnnotationRemoval
}

// Backend stores session data in memory and exports to JSON
type Backend struct {
	cfg     config.MemoryConfig
	session *core.VideoSession

	annotations map[uint]*AnnotationRecord // keyed by overlay id
	order       []uint                     // creation order of overlay ids

	telemetry []core.TelemetryEvent
	perf      []core.PerfSnapshot

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:         cfg,
		annotations: make(map[uint]*AnnotationRecord),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartSession begins recording for a newly loaded video
func (b *Backend) StartSession(session *core.VideoSession) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.session = session

	// Reset all collections
	b.annotations = make(map[uint]*AnnotationRecord)
	b.order = nil
	b.telemetry = nil
	b.perf = nil

	return nil
}

// EndSession finalizes and exports the session data
func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return nil
	}
	return b.exportJSON()
}

// AddAnnotation records a finalized mark
func (b *Backend) AddAnnotation(a *core.Annotation) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.annotations[a.ID] = &AnnotationRecord{
		Annotation: *a,
	}
	b.order = append(b.order, a.ID)
	return nil
}

// MoveAnnotation records a text mark reposition and updates the stored anchor
func (b *Backend) MoveAnnotation(m *core.AnnotationMove) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	record, ok := b.annotations[m.ID]
	if !ok {
		return nil // silently ignore unknown marks
	}
	record.Moves = append(record.Moves, *m)
	if len(record.Annotation.Points) > 0 {
		record.Annotation.Points[0] = m.Anchor
	}
	return nil
}

// DeleteAnnotation records a host-confirmed removal
func (b *Backend) DeleteAnnotation(r *core.AnnotationRemoval) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	record, ok := b.annotations[r.ID]
	if !ok {
		return nil
	}
	removal := *r
	record.Removal = &removal
	return nil
}

// RecordTelemetry records a player health sample
func (b *Backend) RecordTelemetry(e *core.TelemetryEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.telemetry = append(b.telemetry, *e)
	return nil
}

// RecordPerf records a recorder health snapshot
func (b *Backend) RecordPerf(p *core.PerfSnapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.perf = append(b.perf, *p)
	return nil
}

// GetAnnotation looks up a stored mark by its overlay id
func (b *Backend) GetAnnotation(id uint) (*core.Annotation, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if record, ok := b.annotations[id]; ok {
		a := record.Annotation
		return &a, true
	}
	return nil, false
}

// GetRecord returns the full stored record for a mark: the annotation, its
// move history, and any removal.
func (b *Backend) GetRecord(id uint) (AnnotationRecord, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if record, ok := b.annotations[id]; ok {
		return *record, true
	}
	return AnnotationRecord{}, false
}

// AnnotationCount returns the number of stored marks, removed ones included
func (b *Backend) AnnotationCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.annotations)
}

// TelemetryCount returns the number of stored playback health samples
func (b *Backend) TelemetryCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.telemetry)
}
