package overlay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creaselab/overlay/pkg/core"
)

// recorder collects overlay callback output for assertions.
type recorder struct {
	finalized []core.Annotation
	removed   []uint
	moved     []core.Annotation
	prompts   []core.Point2D
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		AnnotationFinalized: func(a core.Annotation) { r.finalized = append(r.finalized, a) },
		AnnotationRemoved:   func(id uint) { r.removed = append(r.removed, id) },
		AnnotationMoved:     func(a core.Annotation) { r.moved = append(r.moved, a) },
		TextPrompt:          func(p core.Point2D) { r.prompts = append(r.prompts, p) },
	}
}

func newTestOverlay() (*Overlay, *recorder) {
	rec := &recorder{}
	return New(DefaultConfig(), rec.callbacks()), rec
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		input string
		want  Mode
	}{
		{"idle", ModeIdle},
		{"draw", ModeDraw},
		{"text", ModeText},
		{"erase", ModeErase},
		{" DRAW ", ModeDraw},
	}
	for _, tt := range tests {
		m, err := ParseMode(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, m)
	}

	_, err := ParseMode("scribble")
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestDragGestureProducesLine(t *testing.T) {
	o, rec := newTestOverlay()
	o.SetMode(ModeDraw)
	o.SetTime(5.0)

	require.True(t, o.BeginGesture(core.Point2D{X: 10, Y: 10}))
	o.ContinueGesture(core.Point2D{X: 20, Y: 10})
	o.ContinueGesture(core.Point2D{X: 30, Y: 10})
	o.EndGesture()

	require.Len(t, rec.finalized, 1)
	a := rec.finalized[0]
	assert.Equal(t, core.KindLine, a.Kind)
	assert.Equal(t, []core.Point2D{{X: 10, Y: 10}, {X: 20, Y: 10}, {X: 30, Y: 10}}, a.Points)
	assert.Equal(t, 5.0, a.Timestamp)
	assert.Equal(t, 1, o.Count())
}

func TestLinePointCountMatchesContinueCalls(t *testing.T) {
	o, rec := newTestOverlay()
	o.SetMode(ModeDraw)

	continues := 7
	o.BeginGesture(core.Point2D{X: 0, Y: 0})
	for i := 1; i <= continues; i++ {
		o.ContinueGesture(core.Point2D{X: float64(i), Y: 0})
	}
	o.EndGesture()

	require.Len(t, rec.finalized, 1)
	assert.Len(t, rec.finalized[0].Points, 1+continues)
}

func TestTapDegradesToPoint(t *testing.T) {
	o, rec := newTestOverlay()
	o.SetMode(ModeDraw)
	o.SetTime(1.0)

	o.BeginGesture(core.Point2D{X: 42, Y: 24})
	o.EndGesture()

	require.Len(t, rec.finalized, 1)
	a := rec.finalized[0]
	assert.Equal(t, core.KindPoint, a.Kind)
	assert.Equal(t, core.Point2D{X: 42, Y: 24}, a.Anchor())
	assert.Equal(t, 1.0, a.Timestamp)
}

func TestVisibilityWindowStrictBoundary(t *testing.T) {
	o, _ := newTestOverlay()
	o.SetMode(ModeDraw)
	o.SetTime(5.0)
	o.BeginGesture(core.Point2D{X: 10, Y: 10})
	o.ContinueGesture(core.Point2D{X: 20, Y: 10})
	o.EndGesture()

	assert.Len(t, o.VisibleAt(5.0), 1)
	assert.Len(t, o.VisibleAt(5.05), 1, "0.05 < 0.1 must be visible")
	assert.Len(t, o.VisibleAt(4.95), 1, "window is symmetric")
	assert.Empty(t, o.VisibleAt(5.1), "exactly 0.1 is excluded: strict inequality")
	assert.Empty(t, o.VisibleAt(4.9), "strict on the early side too")
	assert.Empty(t, o.VisibleAt(5.2))
}

func TestVisibleUsesLatestTime(t *testing.T) {
	o, _ := newTestOverlay()
	o.SetMode(ModeDraw)
	o.SetTime(5.0)
	o.BeginGesture(core.Point2D{X: 10, Y: 10})
	o.EndGesture()

	o.SetTime(5.05)
	assert.Len(t, o.Visible(), 1)

	o.SetTime(5.2)
	assert.Empty(t, o.Visible())
}

func TestEndToEndDrawScenario(t *testing.T) {
	o, rec := newTestOverlay()
	assert.Equal(t, ModeIdle, o.Mode())

	o.SetMode(ModeDraw)
	o.SetTime(5.0)
	o.BeginGesture(core.Point2D{X: 10, Y: 10})
	o.ContinueGesture(core.Point2D{X: 20, Y: 10})
	o.ContinueGesture(core.Point2D{X: 30, Y: 10})
	o.EndGesture()

	require.Len(t, rec.finalized, 1)
	a := rec.finalized[0]
	assert.Equal(t, []core.Point2D{{X: 10, Y: 10}, {X: 20, Y: 10}, {X: 30, Y: 10}}, a.Points)
	assert.Equal(t, 5.0, a.Timestamp)

	o.SetTime(5.05)
	assert.Len(t, o.Visible(), 1)

	o.SetTime(5.2)
	assert.Empty(t, o.Visible())
}

func TestTextPlacement(t *testing.T) {
	o, rec := newTestOverlay()
	o.SetMode(ModeText)
	o.SetTime(2.0)

	require.True(t, o.BeginGesture(core.Point2D{X: 50, Y: 50}))
	require.Len(t, rec.prompts, 1)
	assert.Equal(t, core.Point2D{X: 50, Y: 50}, rec.prompts[0])

	o.SubmitText("check elbow")

	require.Len(t, rec.finalized, 1)
	a := rec.finalized[0]
	assert.Equal(t, core.KindText, a.Kind)
	assert.Equal(t, "check elbow", a.Label)
	assert.Equal(t, core.Point2D{X: 50, Y: 50}, a.Anchor())
	assert.Equal(t, 2.0, a.Timestamp)
}

func TestTextPlacement_BlankSubmitIsCancel(t *testing.T) {
	for _, label := range []string{"", "   ", "\t"} {
		o, rec := newTestOverlay()
		o.SetMode(ModeText)
		o.BeginGesture(core.Point2D{X: 50, Y: 50})

		o.SubmitText(label)

		assert.Empty(t, rec.finalized, "label %q must not create an annotation", label)
		assert.Equal(t, 0, o.Count())
	}
}

func TestTextPlacement_Cancel(t *testing.T) {
	o, rec := newTestOverlay()
	o.SetMode(ModeText)
	o.BeginGesture(core.Point2D{X: 50, Y: 50})
	o.CancelText()
	o.SubmitText("too late")

	assert.Empty(t, rec.finalized)
}

func TestSubmitTextWithoutPrompt_NoOp(t *testing.T) {
	o, rec := newTestOverlay()
	o.SubmitText("orphan")
	assert.Empty(t, rec.finalized)
}

func TestEraseEmitsRemovalRequest(t *testing.T) {
	o, rec := newTestOverlay()
	o.SetMode(ModeDraw)
	o.SetTime(1.0)
	o.BeginGesture(core.Point2D{X: 5, Y: 5})
	o.EndGesture()
	require.Len(t, rec.finalized, 1)
	id := rec.finalized[0].ID

	o.SetMode(ModeErase)
	require.True(t, o.BeginGesture(core.Point2D{X: 6, Y: 6}))

	require.Len(t, rec.removed, 1)
	assert.Equal(t, id, rec.removed[0])
	// removal is a request: the mark stays until the host confirms
	assert.Equal(t, 1, o.Count())

	o.RemoveAnnotation(id)
	assert.Equal(t, 0, o.Count())
}

func TestEraseConsumesRestOfGesture(t *testing.T) {
	o, rec := newTestOverlay()
	o.SetMode(ModeDraw)
	o.SetTime(1.0)
	o.BeginGesture(core.Point2D{X: 5, Y: 5})
	o.EndGesture()

	o.SetMode(ModeErase)
	o.BeginGesture(core.Point2D{X: 5, Y: 5})
	o.ContinueGesture(core.Point2D{X: 100, Y: 100})
	o.EndGesture()

	assert.Len(t, rec.removed, 1, "continue/end after an erase-hit are no-ops")
}

func TestEraseMiss_NoOp(t *testing.T) {
	o, rec := newTestOverlay()
	o.SetMode(ModeDraw)
	o.SetTime(1.0)
	o.BeginGesture(core.Point2D{X: 5, Y: 5})
	o.EndGesture()

	o.SetMode(ModeErase)
	o.BeginGesture(core.Point2D{X: 500, Y: 500})
	assert.Empty(t, rec.removed)
}

func TestEraseRespectsVisibilityWindow(t *testing.T) {
	o, rec := newTestOverlay()
	o.SetMode(ModeDraw)
	o.SetTime(1.0)
	o.BeginGesture(core.Point2D{X: 5, Y: 5})
	o.EndGesture()

	// mark not visible at 2.0, so the erase must miss even at its position
	o.SetTime(2.0)
	o.SetMode(ModeErase)
	o.BeginGesture(core.Point2D{X: 5, Y: 5})
	assert.Empty(t, rec.removed)
}

func TestEraseTieBreak_CreationOrderWins(t *testing.T) {
	o, rec := newTestOverlay()
	o.SetTime(1.0)

	// point first, then a text at the same position
	o.SetMode(ModeDraw)
	o.BeginGesture(core.Point2D{X: 5, Y: 5})
	o.EndGesture()

	o.SetMode(ModeText)
	o.BeginGesture(core.Point2D{X: 5, Y: 5})
	o.SubmitText("second")
	require.Len(t, rec.finalized, 2)

	o.SetMode(ModeErase)
	o.BeginGesture(core.Point2D{X: 5, Y: 5})

	require.Len(t, rec.removed, 1)
	assert.Equal(t, rec.finalized[0].ID, rec.removed[0], "earlier-created mark wins")

	o.RemoveAnnotation(rec.removed[0])
	assert.Equal(t, 1, o.Count())
	assert.Equal(t, core.KindText, o.Annotations()[0].Kind)
}

func TestHitRadiiByKind(t *testing.T) {
	o, rec := newTestOverlay()
	o.SetTime(1.0)

	o.SetMode(ModeText)
	o.BeginGesture(core.Point2D{X: 100, Y: 100})
	o.SubmitText("wide target")

	o.SetMode(ModeErase)
	// 20 px away: inside the 30 px text radius
	o.BeginGesture(core.Point2D{X: 120, Y: 100})
	require.Len(t, rec.removed, 1)

	o2, rec2 := newTestOverlay()
	o2.SetTime(1.0)
	o2.SetMode(ModeDraw)
	o2.BeginGesture(core.Point2D{X: 100, Y: 100})
	o2.EndGesture()

	o2.SetMode(ModeErase)
	// 20 px away: outside the 10 px point radius
	o2.BeginGesture(core.Point2D{X: 120, Y: 100})
	assert.Empty(t, rec2.removed)
}

func TestLineHitIsVertexBased(t *testing.T) {
	o, rec := newTestOverlay()
	o.SetMode(ModeDraw)
	o.SetTime(1.0)
	o.BeginGesture(core.Point2D{X: 0, Y: 0})
	o.ContinueGesture(core.Point2D{X: 100, Y: 0})
	o.EndGesture()

	o.SetMode(ModeErase)
	// 50,2 is 2 px from the segment but ~50 px from both vertices
	o.BeginGesture(core.Point2D{X: 50, Y: 2})
	assert.Empty(t, rec.removed)

	o.BeginGesture(core.Point2D{X: 98, Y: 3})
	assert.Len(t, rec.removed, 1, "near a vertex must hit")
}

func TestIdleDragMovesTextOnly(t *testing.T) {
	o, rec := newTestOverlay()
	o.SetTime(1.0)

	o.SetMode(ModeText)
	o.BeginGesture(core.Point2D{X: 50, Y: 50})
	o.SubmitText("mark")
	require.Len(t, rec.finalized, 1)
	id := rec.finalized[0].ID

	o.SetMode(ModeIdle)
	// grab 10 px off the anchor, inside the 30 px text radius
	require.True(t, o.BeginGesture(core.Point2D{X: 60, Y: 50}))
	o.ContinueGesture(core.Point2D{X: 110, Y: 80})
	o.EndGesture()

	moved, found := o.find(id)
	require.True(t, found)
	// anchor = pointer minus recorded offset
	assert.Equal(t, core.Point2D{X: 100, Y: 80}, moved.Anchor())
	assert.Equal(t, 1.0, moved.Timestamp, "timestamp never changes on drag")
	assert.Equal(t, id, moved.ID)

	require.Len(t, rec.moved, 1)
	assert.Equal(t, core.Point2D{X: 100, Y: 80}, rec.moved[0].Anchor())
}

func TestIdleDragIgnoresNonText(t *testing.T) {
	o, _ := newTestOverlay()
	o.SetMode(ModeDraw)
	o.SetTime(1.0)
	o.BeginGesture(core.Point2D{X: 50, Y: 50})
	o.EndGesture()

	o.SetMode(ModeIdle)
	assert.False(t, o.BeginGesture(core.Point2D{X: 50, Y: 50}),
		"point marks are not draggable; the host may pan/zoom")
}

func TestIdleMiss_GestureNotConsumed(t *testing.T) {
	o, _ := newTestOverlay()
	assert.False(t, o.BeginGesture(core.Point2D{X: 5, Y: 5}))
}

func TestModeSwitchDiscardsDraft(t *testing.T) {
	o, rec := newTestOverlay()
	o.SetMode(ModeDraw)
	o.BeginGesture(core.Point2D{X: 10, Y: 10})
	o.ContinueGesture(core.Point2D{X: 20, Y: 20})

	o.SetMode(ModeErase)
	o.EndGesture()

	assert.Empty(t, rec.finalized, "draft discarded on mode switch")
	assert.Equal(t, 0, o.Count())
}

func TestModeSwitchDiscardsPendingPrompt(t *testing.T) {
	o, rec := newTestOverlay()
	o.SetMode(ModeText)
	o.BeginGesture(core.Point2D{X: 10, Y: 10})

	o.SetMode(ModeDraw)
	o.SubmitText("stale")

	assert.Empty(t, rec.finalized)
}

func TestRemoveUnknownID_NoOp(t *testing.T) {
	o, _ := newTestOverlay()
	o.SetMode(ModeDraw)
	o.SetTime(1.0)
	o.BeginGesture(core.Point2D{X: 5, Y: 5})
	o.EndGesture()

	o.RemoveAnnotation(9999)
	assert.Equal(t, 1, o.Count())
}

func TestResetForNewVideo(t *testing.T) {
	o, _ := newTestOverlay()
	o.SetMode(ModeDraw)
	o.SetTime(3.0)
	o.BeginGesture(core.Point2D{X: 1, Y: 1})
	o.ContinueGesture(core.Point2D{X: 2, Y: 2})
	o.EndGesture()
	o.BeginGesture(core.Point2D{X: 3, Y: 3}) // mid-flight draft

	o.ResetForNewVideo()

	assert.Equal(t, 0, o.Count())
	assert.Equal(t, ModeIdle, o.Mode())
	assert.False(t, o.Drafting())
	assert.Equal(t, 0.0, o.Time())

	// usable again after reset
	o.SetMode(ModeDraw)
	o.BeginGesture(core.Point2D{X: 1, Y: 1})
	o.EndGesture()
	assert.Equal(t, 1, o.Count())
}

func TestIDsUniqueAndOrdered(t *testing.T) {
	o, rec := newTestOverlay()
	o.SetMode(ModeDraw)
	for i := 0; i < 5; i++ {
		o.BeginGesture(core.Point2D{X: float64(i), Y: 0})
		o.EndGesture()
	}

	require.Len(t, rec.finalized, 5)
	seen := make(map[uint]bool)
	var last uint
	for _, a := range rec.finalized {
		assert.False(t, seen[a.ID], "duplicate id %d", a.ID)
		assert.Greater(t, a.ID, last)
		seen[a.ID] = true
		last = a.ID
	}
}

func TestNilCallbacksAreSafe(t *testing.T) {
	o := New(DefaultConfig(), Callbacks{})
	o.SetMode(ModeDraw)
	o.SetTime(1.0)
	o.BeginGesture(core.Point2D{X: 1, Y: 1})
	o.EndGesture()

	o.SetMode(ModeText)
	o.BeginGesture(core.Point2D{X: 2, Y: 2})
	o.SubmitText("ok")

	o.SetMode(ModeErase)
	o.BeginGesture(core.Point2D{X: 1, Y: 1})

	assert.Equal(t, 2, o.Count())
}

func TestSegmentHitTestOption(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SegmentHitTest = true
	rec := &recorder{}
	o := New(cfg, rec.callbacks())

	o.SetMode(ModeDraw)
	o.SetTime(1.0)
	o.BeginGesture(core.Point2D{X: 0, Y: 0})
	o.ContinueGesture(core.Point2D{X: 100, Y: 0})
	o.EndGesture()

	o.SetMode(ModeErase)
	o.BeginGesture(core.Point2D{X: 50, Y: 2})
	assert.Len(t, rec.removed, 1, "segment mode hits between vertices")
}

func TestNegativeTimeClampedToZero(t *testing.T) {
	o, _ := newTestOverlay()
	o.SetTime(-5)
	assert.Equal(t, 0.0, o.Time())
}
