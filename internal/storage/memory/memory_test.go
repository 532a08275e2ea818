package memory

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creaselab/overlay/internal/config"
	"github.com/creaselab/overlay/pkg/core"
)

func newTestBackend(t *testing.T, compress bool) *Backend {
	t.Helper()
	return New(config.MemoryConfig{
		OutputDir:      t.TempDir(),
		CompressOutput: compress,
	})
}

func startSession(t *testing.T, b *Backend) *core.VideoSession {
	t.Helper()
	s := core.NewVideoSession("file:///clips/straight-drive.mp4", "Straight drive", 64.5, 1920, 1080)
	s.RecorderVersion = "1.0.0"
	require.NoError(t, b.StartSession(&s))
	return &s
}

func TestInitClose(t *testing.T) {
	b := newTestBackend(t, false)
	require.NoError(t, b.Init())
	require.NoError(t, b.Close())
}

func TestAddAnnotation_Stores(t *testing.T) {
	b := newTestBackend(t, false)
	startSession(t, b)

	mark, err := core.NewText(1, core.Point2D{X: 400, Y: 300}, "watch the gap", 10.5)
	require.NoError(t, err)
	require.NoError(t, b.AddAnnotation(&mark))

	got, found := b.GetAnnotation(1)
	require.True(t, found)
	assert.Equal(t, "watch the gap", got.Label)
	assert.Equal(t, 1, b.AnnotationCount())
}

func TestMoveAnnotation_UpdatesAnchor(t *testing.T) {
	b := newTestBackend(t, false)
	startSession(t, b)

	mark, _ := core.NewText(1, core.Point2D{X: 400, Y: 300}, "front elbow", 10.5)
	b.AddAnnotation(&mark)

	err := b.MoveAnnotation(&core.AnnotationMove{
		ID:           1,
		Anchor:       core.Point2D{X: 420, Y: 280},
		Time:         time.Now(),
		PlaybackTime: 11.0,
	})
	require.NoError(t, err)

	got, _ := b.GetAnnotation(1)
	assert.Equal(t, core.Point2D{X: 420, Y: 280}, got.Points[0])
}

func TestMoveAnnotation_UnknownID_NoOp(t *testing.T) {
	b := newTestBackend(t, false)
	startSession(t, b)

	err := b.MoveAnnotation(&core.AnnotationMove{ID: 99})
	require.NoError(t, err)
}

func TestDeleteAnnotation_MarksRemoved(t *testing.T) {
	b := newTestBackend(t, false)
	startSession(t, b)

	mark, _ := core.NewPoint(1, core.Point2D{X: 10, Y: 20}, 3.0)
	b.AddAnnotation(&mark)

	err := b.DeleteAnnotation(&core.AnnotationRemoval{ID: 1, Time: time.Now(), PlaybackTime: 3.5})
	require.NoError(t, err)

	// mark stays stored, flagged removed at export
	assert.Equal(t, 1, b.AnnotationCount())
	export := func() SessionExport {
		b.mu.RLock()
		defer b.mu.RUnlock()
		return b.buildExport()
	}()
	require.Len(t, export.Annotations, 1)
	assert.True(t, export.Annotations[0].Removed)
}

func TestStartSession_ResetsState(t *testing.T) {
	b := newTestBackend(t, false)
	startSession(t, b)

	mark, _ := core.NewPoint(1, core.Point2D{X: 1, Y: 2}, 0)
	b.AddAnnotation(&mark)
	b.RecordTelemetry(&core.TelemetryEvent{PlaybackTime: 1})
	require.Equal(t, 1, b.AnnotationCount())

	startSession(t, b)
	assert.Equal(t, 0, b.AnnotationCount())
	assert.Empty(t, b.telemetry)
}

func TestEndSession_NoSession_NoOp(t *testing.T) {
	b := newTestBackend(t, false)
	require.NoError(t, b.EndSession())
	assert.Empty(t, b.GetExportedFilePath())
}

func TestEndSession_ExportsJSON(t *testing.T) {
	b := newTestBackend(t, false)
	s := startSession(t, b)

	line, _ := core.NewLine(1, []core.Point2D{{X: 0, Y: 0}, {X: 50, Y: 50}}, 5.0)
	text, _ := core.NewText(2, core.Point2D{X: 300, Y: 200}, "check elbow", 5.0)
	b.AddAnnotation(&line)
	b.AddAnnotation(&text)
	b.RecordTelemetry(&core.TelemetryEvent{PlaybackTime: 5, PlayerFps: 60, DroppedFrames: 1, DecodeMs: 3})

	require.NoError(t, b.EndSession())

	path := b.GetExportedFilePath()
	require.NotEmpty(t, path)
	assert.Contains(t, path, "Straight_drive")

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var export SessionExport
	require.NoError(t, json.Unmarshal(data, &export))

	assert.Equal(t, s.ID.String(), export.SessionID)
	assert.Equal(t, "Straight drive", export.Title)
	assert.Equal(t, uint16(1920), export.FrameWidth)
	require.Len(t, export.Annotations, 2)

	// creation order is preserved
	assert.Equal(t, "line", export.Annotations[0].Kind)
	assert.Equal(t, [][2]float64{{0, 0}, {50, 50}}, export.Annotations[0].Points)
	assert.Equal(t, "text", export.Annotations[1].Kind)
	assert.Equal(t, "check elbow", export.Annotations[1].Label)

	require.Len(t, export.Telemetry, 1)
}

func TestEndSession_ExportsGzip(t *testing.T) {
	b := newTestBackend(t, true)
	startSession(t, b)

	mark, _ := core.NewPoint(1, core.Point2D{X: 9, Y: 9}, 1.0)
	b.AddAnnotation(&mark)

	require.NoError(t, b.EndSession())

	path := b.GetExportedFilePath()
	require.NotEmpty(t, path)
	assert.Contains(t, path, ".json.gz")

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gz.Close()

	var export SessionExport
	require.NoError(t, json.NewDecoder(gz).Decode(&export))
	require.Len(t, export.Annotations, 1)
	assert.Equal(t, "point", export.Annotations[0].Kind)
}

func TestExport_IncludesMoveHistory(t *testing.T) {
	b := newTestBackend(t, false)
	startSession(t, b)

	text, _ := core.NewText(1, core.Point2D{X: 100, Y: 100}, "gap", 2.0)
	b.AddAnnotation(&text)
	b.MoveAnnotation(&core.AnnotationMove{ID: 1, Anchor: core.Point2D{X: 140, Y: 90}, PlaybackTime: 2.5})

	require.NoError(t, b.EndSession())

	data, err := os.ReadFile(b.GetExportedFilePath())
	require.NoError(t, err)

	var export SessionExport
	require.NoError(t, json.Unmarshal(data, &export))
	require.Len(t, export.Annotations, 1)
	require.Len(t, export.Annotations[0].Moves, 1)
	assert.Equal(t, 2.5, export.Annotations[0].Moves[0][0])
	assert.Equal(t, 140.0, export.Annotations[0].Moves[0][1])
}

func TestGetExportMetadata(t *testing.T) {
	b := newTestBackend(t, false)

	// no session loaded yet
	assert.Equal(t, core.UploadMetadata{}, b.GetExportMetadata())

	s := startSession(t, b)
	mark, _ := core.NewPoint(1, core.Point2D{X: 1, Y: 1}, 0)
	b.AddAnnotation(&mark)

	meta := b.GetExportMetadata()
	assert.Equal(t, s.ID.String(), meta.SessionID)
	assert.Equal(t, "Straight drive", meta.Title)
	assert.Equal(t, 64.5, meta.DurationSeconds)
	assert.Equal(t, 1, meta.AnnotationCount)
	assert.Equal(t, "Net session", meta.Tag)
}
