// Package worker connects the bridge command stream to the overlay state
// machine and the storage backend. Handlers parse the raw arguments, drive
// the overlay, and forward the results to storage.
package worker

import (
	"sync/atomic"
	"time"

	"github.com/creaselab/overlay/internal/api"
	"github.com/creaselab/overlay/internal/influx"
	"github.com/creaselab/overlay/internal/logging"
	"github.com/creaselab/overlay/internal/overlay"
	"github.com/creaselab/overlay/internal/parser"
	"github.com/creaselab/overlay/internal/session"
	"github.com/creaselab/overlay/internal/storage"
	"github.com/creaselab/overlay/pkg/core"
)

// HostNotify carries overlay requests back to the player UI. The overlay
// never removes a mark on its own; it asks the host, which confirms with
// an :ANNOTATION:REMOVE: command. Nil members are skipped.
type HostNotify struct {
	RemovalRequested func(id uint)
	TextPrompt       func(anchor core.Point2D)
}

// Dependencies holds all dependencies for the worker manager. The overlay id
// to database row mapping lives in the storage backend, not here.
type Dependencies struct {
	LogManager     *logging.SlogManager
	Parser         *parser.Parser
	SessionContext *session.Context
	Notify         HostNotify
	Influx         *influx.Manager // optional
	APIClient      *api.Client     // optional, uploads exports on video end
}

// Manager owns the overlay and routes bridge commands into it.
type Manager struct {
	deps    Dependencies
	backend storage.Backend
	overlay *overlay.Overlay

	// annotationCount mirrors the overlay's mark count. The overlay itself
	// is only touched from the dispatch path, so background samplers (the
	// status monitor) read this atomic instead.
	annotationCount atomic.Int64
}

// NewManager creates a worker manager and its overlay. The overlay's
// callbacks land back on the manager so finalized marks, moves, and removal
// requests flow to storage and the host.
func NewManager(deps Dependencies, backend storage.Backend, cfg overlay.Config) *Manager {
	m := &Manager{
		deps:    deps,
		backend: backend,
	}
	m.overlay = overlay.New(cfg, overlay.Callbacks{
		AnnotationFinalized: m.onAnnotationFinalized,
		AnnotationRemoved:   m.onRemovalRequested,
		AnnotationMoved:     m.onAnnotationMoved,
		TextPrompt:          m.onTextPrompt,
	})
	return m
}

// Overlay returns the overlay owned by this manager.
func (m *Manager) Overlay() *overlay.Overlay {
	return m.overlay
}

// AnnotationCount reports the overlay's current mark count. Safe to call
// from any goroutine.
func (m *Manager) AnnotationCount() int {
	return int(m.annotationCount.Load())
}

// publishCount refreshes the shared annotation counter. Must be called from
// the dispatch path after any mutation of the overlay's mark set.
func (m *Manager) publishCount() {
	m.annotationCount.Store(int64(m.overlay.Count()))
}

func (m *Manager) onAnnotationFinalized(a core.Annotation) {
	m.publishCount()
	if err := m.backend.AddAnnotation(&a); err != nil {
		m.deps.LogManager.Logger().Error("Failed to store annotation", "id", a.ID, "error", err)
	}
}

// onRemovalRequested forwards the overlay's removal request to the host.
// The mark stays until the host confirms.
func (m *Manager) onRemovalRequested(id uint) {
	if m.deps.Notify.RemovalRequested != nil {
		m.deps.Notify.RemovalRequested(id)
	}
}

func (m *Manager) onAnnotationMoved(a core.Annotation) {
	move := core.AnnotationMove{
		ID:           a.ID,
		Anchor:       a.Anchor(),
		Time:         time.Now(),
		PlaybackTime: m.overlay.Time(),
	}
	if err := m.backend.MoveAnnotation(&move); err != nil {
		m.deps.LogManager.Logger().Error("Failed to store annotation move", "id", a.ID, "error", err)
	}
}

func (m *Manager) onTextPrompt(anchor core.Point2D) {
	if m.deps.Notify.TextPrompt != nil {
		m.deps.Notify.TextPrompt(anchor)
	}
}

// DBWriteDurationProvider is an optional interface that backends can implement
// to expose their last DB write duration for monitoring.
type DBWriteDurationProvider interface {
	GetLastDBWriteDuration() time.Duration
}

// GetLastDBWriteDuration returns the duration of the last DB write cycle.
// Returns 0 if the backend doesn't support this metric.
func (m *Manager) GetLastDBWriteDuration() time.Duration {
	if p, ok := m.backend.(DBWriteDurationProvider); ok {
		return p.GetLastDBWriteDuration()
	}
	return 0
}
