package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/creaselab/overlay/internal/dispatcher"
	"github.com/creaselab/overlay/internal/influx"
	"github.com/creaselab/overlay/internal/overlay"
	"github.com/creaselab/overlay/internal/storage"
	"github.com/creaselab/overlay/pkg/core"
)

// RegisterHandlers registers all bridge command handlers with the dispatcher.
// Gesture, clock, and mode commands stay synchronous so input ordering is
// preserved; telemetry is high-volume and tolerates buffering.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Session lifecycle - sync
	d.Register(":VIDEO:LOAD:", m.handleVideoLoad, dispatcher.Logged())
	d.Register(":VIDEO:END:", m.handleVideoEnd, dispatcher.Logged())

	// Playback clock and input mode - sync (ordering matters)
	d.Register(":TIME:", m.handleTime)
	d.Register(":MODE:", m.handleMode, dispatcher.Logged())

	// Pointer gestures - sync (a buffered MOVE arriving after END corrupts drafts)
	d.Register(":GESTURE:START:", m.handleGestureStart)
	d.Register(":GESTURE:MOVE:", m.handleGestureMove)
	d.Register(":GESTURE:END:", m.handleGestureEnd)

	// Text placement - sync
	d.Register(":TEXT:SUBMIT:", m.handleTextSubmit, dispatcher.Logged())
	d.Register(":TEXT:CANCEL:", m.handleTextCancel)

	// Host-confirmed removal - sync
	d.Register(":ANNOTATION:REMOVE:", m.handleAnnotationRemove, dispatcher.Logged())

	// Scrub loop - sync
	d.Register(":LOOP:SET:", m.handleLoopSet, dispatcher.Logged())
	d.Register(":LOOP:CLEAR:", m.handleLoopClear)

	// Playback health samples - buffered
	d.Register(":TELEMETRY:", m.handleTelemetry, dispatcher.Buffered(1000), dispatcher.Logged())

	// Status query - sync
	d.Register(":STATUS:", m.handleStatus)
}

func (m *Manager) handleVideoLoad(e dispatcher.Event) (any, error) {
	s, err := m.deps.Parser.ParseVideoLoad(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to load video: %w", err)
	}

	m.deps.SessionContext.Set(&s)
	m.overlay.ResetForNewVideo()
	m.publishCount()

	if err := m.backend.StartSession(&s); err != nil {
		m.deps.LogManager.Logger().Error("Failed to start storage session", "error", err)
	}

	m.writeSessionPoint(&s, "load")
	return s.ID.String(), nil
}

func (m *Manager) handleVideoEnd(e dispatcher.Event) (any, error) {
	if !m.deps.SessionContext.Loaded() {
		return nil, nil
	}
	s := m.deps.SessionContext.Get()

	if err := m.backend.EndSession(); err != nil {
		return nil, fmt.Errorf("failed to end storage session: %w", err)
	}

	m.uploadExport()
	m.writeSessionPoint(s, "end")

	m.overlay.ResetForNewVideo()
	m.publishCount()
	m.deps.SessionContext.Set(&core.VideoSession{Title: "No video loaded"})
	return nil, nil
}

// uploadExport sends the exported session file to the review server when the
// backend produced one and an API client is configured.
func (m *Manager) uploadExport() {
	if m.deps.APIClient == nil {
		return
	}
	up, ok := m.backend.(storage.Uploadable)
	if !ok {
		return
	}
	path := up.GetExportedFilePath()
	if path == "" {
		return
	}

	logger := m.deps.LogManager.Logger()
	if err := m.deps.APIClient.Upload(path, up.GetExportMetadata()); err != nil {
		logger.Error("Failed to upload session export", "path", path, "error", err)
		return
	}
	logger.Info("Uploaded session export", "path", path)
}

func (m *Manager) handleTime(e dispatcher.Event) (any, error) {
	t, err := m.deps.Parser.ParseTime(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse playback time: %w", err)
	}

	t = m.deps.SessionContext.Loop().Clamp(t)
	m.overlay.SetTime(t)
	return nil, nil
}

func (m *Manager) handleMode(e dispatcher.Event) (any, error) {
	if len(e.Args) < 1 {
		return nil, fmt.Errorf("mode command needs an argument")
	}
	mode, err := overlay.ParseMode(e.Args[0])
	if err != nil {
		return nil, err
	}
	m.overlay.SetMode(mode)
	return nil, nil
}

func (m *Manager) handleGestureStart(e dispatcher.Event) (any, error) {
	pos, err := m.deps.Parser.ParseGesturePosition(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse gesture start: %w", err)
	}
	consumed := m.overlay.BeginGesture(pos)
	return consumed, nil
}

func (m *Manager) handleGestureMove(e dispatcher.Event) (any, error) {
	pos, err := m.deps.Parser.ParseGesturePosition(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse gesture move: %w", err)
	}
	m.overlay.ContinueGesture(pos)
	return nil, nil
}

func (m *Manager) handleGestureEnd(e dispatcher.Event) (any, error) {
	m.overlay.EndGesture()
	return nil, nil
}

func (m *Manager) handleTextSubmit(e dispatcher.Event) (any, error) {
	label, err := m.deps.Parser.ParseTextSubmit(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse text submit: %w", err)
	}
	// A blank label cancels the placement inside the overlay, silently.
	m.overlay.SubmitText(label)
	return nil, nil
}

func (m *Manager) handleTextCancel(e dispatcher.Event) (any, error) {
	m.overlay.CancelText()
	return nil, nil
}

func (m *Manager) handleAnnotationRemove(e dispatcher.Event) (any, error) {
	id, err := m.deps.Parser.ParseAnnotationRemove(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse annotation removal: %w", err)
	}

	m.overlay.RemoveAnnotation(id)
	m.publishCount()

	removal := core.AnnotationRemoval{
		ID:           id,
		Time:         time.Now(),
		PlaybackTime: m.overlay.Time(),
	}
	if err := m.backend.DeleteAnnotation(&removal); err != nil {
		m.deps.LogManager.Logger().Error("Failed to store annotation removal", "id", id, "error", err)
	}
	return nil, nil
}

func (m *Manager) handleLoopSet(e dispatcher.Event) (any, error) {
	loop, err := m.deps.Parser.ParseLoopRange(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse loop range: %w", err)
	}
	m.deps.SessionContext.SetLoop(loop)
	return nil, nil
}

func (m *Manager) handleLoopClear(e dispatcher.Event) (any, error) {
	m.deps.SessionContext.ClearLoop()
	return nil, nil
}

func (m *Manager) handleTelemetry(e dispatcher.Event) (any, error) {
	if !m.deps.SessionContext.Loaded() {
		return nil, nil
	}

	event, err := m.deps.Parser.ParseTelemetry(e.Args)
	if err != nil {
		return nil, fmt.Errorf("failed to parse telemetry: %w", err)
	}

	if err := m.backend.RecordTelemetry(&event); err != nil {
		return nil, fmt.Errorf("failed to store telemetry: %w", err)
	}

	if m.deps.Influx != nil {
		sessionID := m.deps.SessionContext.Get().ID.String()
		bucket, point := influx.TelemetryPoint(sessionID, &event)
		if err := m.deps.Influx.WritePoint(context.Background(), bucket, point); err != nil {
			m.deps.LogManager.Logger().Warn("Error writing telemetry to InfluxDB", "error", err)
		}
	}
	return nil, nil
}

func (m *Manager) handleStatus(e dispatcher.Event) (any, error) {
	status := map[string]any{
		"title":           m.deps.SessionContext.Get().Title,
		"mode":            m.overlay.Mode().String(),
		"playbackTime":    m.overlay.Time(),
		"annotationCount": m.overlay.Count(),
		"visibleCount":    len(m.overlay.Visible()),
	}
	raw, err := json.Marshal(status)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// writeSessionPoint records a session lifecycle event in InfluxDB.
func (m *Manager) writeSessionPoint(s *core.VideoSession, event string) {
	if m.deps.Influx == nil {
		return
	}
	bucket, point := influx.SessionPoint(s.ID.String(), event, s.Title, time.Now())
	if err := m.deps.Influx.WritePoint(context.Background(), bucket, point); err != nil {
		m.deps.LogManager.Logger().Warn("Error writing session point to InfluxDB", "error", err)
	}
}
