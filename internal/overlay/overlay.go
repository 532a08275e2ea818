// Package overlay implements the annotation overlay state machine: finalized
// marks keyed to playback time, the in-progress draft polyline, the input
// mode, and hit-testing for erase and drag.
//
// The overlay is single-threaded by contract. It reacts synchronously to
// playback-time updates, pointer gestures, and host commands; every operation
// runs to completion before the next event is processed, and the host never
// delivers a new gesture-start while a gesture is mid-flight. All operations
// are total: hit-test misses, empty drafts, and unknown ids are no-ops.
package overlay

import (
	"errors"
	"strings"

	"github.com/creaselab/overlay/internal/geo"
	"github.com/creaselab/overlay/pkg/core"
)

// Mode is the overlay's exclusive input mode. Switching modes cancels any
// pending draft and any pending text-placement prompt.
type Mode uint8

const (
	ModeIdle Mode = iota
	ModeDraw
	ModeText
	ModeErase
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeDraw:
		return "draw"
	case ModeText:
		return "text"
	case ModeErase:
		return "erase"
	default:
		return "unknown"
	}
}

// ErrUnknownMode is returned when a mode command names no known mode.
var ErrUnknownMode = errors.New("unknown overlay mode")

// ParseMode maps a bridge mode argument to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "idle":
		return ModeIdle, nil
	case "draw":
		return ModeDraw, nil
	case "text":
		return ModeText, nil
	case "erase":
		return ModeErase, nil
	default:
		return ModeIdle, ErrUnknownMode
	}
}

// Config holds the overlay's tuning knobs. Defaults preserve the reference
// behavior: a symmetric 0.1 s visibility window, a 30 px hit radius for text
// (glyphs are visually larger than strokes) and 10 px for points and line
// vertices, and vertex-based line hit-testing.
type Config struct {
	VisibilityWindow float64
	TextHitRadius    float64
	StrokeHitRadius  float64
	SegmentHitTest   bool
}

// DefaultConfig returns the reference tuning.
func DefaultConfig() Config {
	return Config{
		VisibilityWindow: 0.1,
		TextHitRadius:    30,
		StrokeHitRadius:  10,
		SegmentHitTest:   false,
	}
}

// Callbacks are the overlay's outputs to its host. Nil members are skipped.
//
// AnnotationRemoved is a removal request: the overlay does not delete the
// mark itself; the host confirms by calling RemoveAnnotation.
type Callbacks struct {
	AnnotationFinalized func(core.Annotation)
	AnnotationRemoved   func(id uint)
	AnnotationMoved     func(core.Annotation)
	TextPrompt          func(anchor core.Point2D)
}

type dragState struct {
	id     uint
	offset core.Point2D
	moved  bool
}

// Overlay owns the annotation set for the currently loaded video.
type Overlay struct {
	cfg Config
	cb  Callbacks

	annotations []core.Annotation // creation order
	draft       []core.Point2D
	drafting    bool
	mode        Mode
	drag        *dragState
	pendingText *core.Point2D
	consumed    bool // erase-hit consumed the rest of this gesture

	currentTime float64
	nextID      uint
}

// New creates an overlay with the given tuning and host callbacks.
func New(cfg Config, cb Callbacks) *Overlay {
	if cfg.VisibilityWindow <= 0 {
		cfg.VisibilityWindow = DefaultConfig().VisibilityWindow
	}
	if cfg.TextHitRadius <= 0 {
		cfg.TextHitRadius = DefaultConfig().TextHitRadius
	}
	if cfg.StrokeHitRadius <= 0 {
		cfg.StrokeHitRadius = DefaultConfig().StrokeHitRadius
	}
	return &Overlay{cfg: cfg, cb: cb, mode: ModeIdle}
}

// SetTime records the most recent playback position. Visibility is always
// evaluated against this value, never a cached one.
func (o *Overlay) SetTime(t float64) {
	if t < 0 {
		t = 0
	}
	o.currentTime = t
}

// Time returns the most recently received playback position.
func (o *Overlay) Time() float64 {
	return o.currentTime
}

// Mode returns the active input mode.
func (o *Overlay) Mode() Mode {
	return o.mode
}

// SetMode switches the input mode. Transitions are all-to-all and discard
// any pending draft, text prompt, and drag.
func (o *Overlay) SetMode(m Mode) {
	o.mode = m
	o.clearTransient()
}

func (o *Overlay) clearTransient() {
	o.draft = nil
	o.drafting = false
	o.drag = nil
	o.pendingText = nil
	o.consumed = false
}

// BeginGesture starts a pointer gesture at pos. The return value reports
// whether the overlay consumed the gesture; when false (Idle with no text
// mark under the pointer) the host may interpret it as a pan/zoom instead.
func (o *Overlay) BeginGesture(pos core.Point2D) bool {
	switch o.mode {
	case ModeDraw:
		o.draft = []core.Point2D{pos}
		o.drafting = true
		return true

	case ModeText:
		p := pos
		o.pendingText = &p
		if o.cb.TextPrompt != nil {
			o.cb.TextPrompt(pos)
		}
		return true

	case ModeErase:
		if hit, ok := o.hitTest(pos); ok {
			if o.cb.AnnotationRemoved != nil {
				o.cb.AnnotationRemoved(hit.ID)
			}
		}
		o.consumed = true
		return true

	case ModeIdle:
		if hit, ok := o.hitTestText(pos); ok {
			anchor := hit.Anchor()
			o.drag = &dragState{
				id:     hit.ID,
				offset: core.Point2D{X: pos.X - anchor.X, Y: pos.Y - anchor.Y},
			}
			return true
		}
		return false
	}
	return false
}

// ContinueGesture extends the gesture to pos: appends to the draft (every
// reported point is kept, no decimation) or repositions the drag target.
func (o *Overlay) ContinueGesture(pos core.Point2D) {
	if o.consumed {
		return
	}
	if o.drafting {
		o.draft = append(o.draft, pos)
		return
	}
	if o.drag != nil {
		for i := range o.annotations {
			if o.annotations[i].ID == o.drag.id {
				o.annotations[i].Points[0] = core.Point2D{
					X: pos.X - o.drag.offset.X,
					Y: pos.Y - o.drag.offset.Y,
				}
				o.drag.moved = true
				return
			}
		}
	}
}

// EndGesture finalizes the gesture. A draft with at least two points becomes
// a Line; a single-point draft (a tap with no movement) degrades to a Point
// rather than being dropped. The drag target is cleared unconditionally.
func (o *Overlay) EndGesture() {
	if o.drafting {
		o.finalizeDraft()
	}
	if o.drag != nil && o.drag.moved {
		if a, ok := o.find(o.drag.id); ok && o.cb.AnnotationMoved != nil {
			o.cb.AnnotationMoved(a)
		}
	}
	o.drag = nil
	o.consumed = false
}

func (o *Overlay) finalizeDraft() {
	defer func() {
		o.draft = nil
		o.drafting = false
	}()

	var (
		a   core.Annotation
		err error
	)
	switch {
	case len(o.draft) >= 2:
		a, err = core.NewLine(o.allocID(), o.draft, o.currentTime)
	case len(o.draft) == 1:
		a, err = core.NewPoint(o.allocID(), o.draft[0], o.currentTime)
	default:
		return
	}
	if err != nil {
		return
	}
	o.annotations = append(o.annotations, a)
	if o.cb.AnnotationFinalized != nil {
		o.cb.AnnotationFinalized(a)
	}
}

// SubmitText completes a pending text placement. A blank or whitespace-only
// label is a cancelled placement: nothing is created, nothing is raised.
func (o *Overlay) SubmitText(label string) {
	anchor := o.pendingText
	o.pendingText = nil
	if anchor == nil {
		return
	}
	a, err := core.NewText(o.allocID(), *anchor, label, o.currentTime)
	if err != nil {
		return
	}
	o.annotations = append(o.annotations, a)
	if o.cb.AnnotationFinalized != nil {
		o.cb.AnnotationFinalized(a)
	}
}

// CancelText abandons a pending text placement.
func (o *Overlay) CancelText() {
	o.pendingText = nil
}

// boundarySlack absorbs float representation error when a playback time sits
// exactly on the visibility boundary: 5.1 - 5.0 computes to just under 0.1,
// which would leak a mark through the strict comparison.
const boundarySlack = 1e-9

// VisibleAt returns the annotations whose timestamp lies strictly within the
// visibility window of t: |timestamp - t| < epsilon, in creation order. The
// window is symmetric; a mark exactly epsilon away is not visible.
func (o *Overlay) VisibleAt(t float64) []core.Annotation {
	var visible []core.Annotation
	for _, a := range o.annotations {
		d := a.Timestamp - t
		if d < 0 {
			d = -d
		}
		if d < o.cfg.VisibilityWindow-boundarySlack {
			visible = append(visible, a)
		}
	}
	return visible
}

// Visible returns the annotations visible at the most recent playback time.
func (o *Overlay) Visible() []core.Annotation {
	return o.VisibleAt(o.currentTime)
}

// RemoveAnnotation deletes the matching mark. Unknown ids are a no-op.
func (o *Overlay) RemoveAnnotation(id uint) {
	for i, a := range o.annotations {
		if a.ID == id {
			o.annotations = append(o.annotations[:i], o.annotations[i+1:]...)
			return
		}
	}
}

// ResetForNewVideo clears all state when a new video replaces the current
// one: annotations, draft, drag, pending prompt, playback time, and mode.
func (o *Overlay) ResetForNewVideo() {
	o.annotations = nil
	o.clearTransient()
	o.mode = ModeIdle
	o.currentTime = 0
	o.nextID = 0
}

// Annotations returns a copy of the finalized set in creation order.
func (o *Overlay) Annotations() []core.Annotation {
	out := make([]core.Annotation, len(o.annotations))
	copy(out, o.annotations)
	return out
}

// Count returns the number of finalized annotations.
func (o *Overlay) Count() int {
	return len(o.annotations)
}

// Drafting reports whether a draw gesture is mid-flight.
func (o *Overlay) Drafting() bool {
	return o.drafting
}

func (o *Overlay) allocID() uint {
	o.nextID++
	return o.nextID
}

func (o *Overlay) find(id uint) (core.Annotation, bool) {
	for _, a := range o.annotations {
		if a.ID == id {
			return a, true
		}
	}
	return core.Annotation{}, false
}

// hitTest matches pos against annotations visible at the current playback
// time. When several qualify the first in creation order wins; there is no
// z-order beyond insertion order.
func (o *Overlay) hitTest(pos core.Point2D) (core.Annotation, bool) {
	for _, a := range o.VisibleAt(o.currentTime) {
		if o.hits(pos, a) {
			return a, true
		}
	}
	return core.Annotation{}, false
}

// hitTestText matches pos against visible text annotations only (drag-start).
func (o *Overlay) hitTestText(pos core.Point2D) (core.Annotation, bool) {
	for _, a := range o.VisibleAt(o.currentTime) {
		if a.Kind != core.KindText {
			continue
		}
		if geo.HitPoint(pos, a.Anchor(), o.cfg.TextHitRadius) {
			return a, true
		}
	}
	return core.Annotation{}, false
}

func (o *Overlay) hits(pos core.Point2D, a core.Annotation) bool {
	switch a.Kind {
	case core.KindText:
		return geo.HitPoint(pos, a.Anchor(), o.cfg.TextHitRadius)
	case core.KindPoint:
		return geo.HitPoint(pos, a.Anchor(), o.cfg.StrokeHitRadius)
	case core.KindLine:
		return geo.HitPolyline(pos, a.Points, o.cfg.StrokeHitRadius, o.cfg.SegmentHitTest)
	default:
		return false
	}
}
