package core

import (
	"errors"
	"strings"
	"time"
)

// Kind identifies the shape of an annotation. The set is closed: freehand
// polylines, single point markers, and anchored text labels.
type Kind uint8

const (
	KindLine Kind = iota + 1
	KindPoint
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindLine:
		return "line"
	case KindPoint:
		return "point"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// KindFromString parses a kind name as stored in exports and the database.
func KindFromString(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "line":
		return KindLine, nil
	case "point":
		return KindPoint, nil
	case "text":
		return KindText, nil
	default:
		return 0, ErrUnknownKind
	}
}

var (
	ErrUnknownKind      = errors.New("unknown annotation kind")
	ErrTooFewPoints     = errors.New("line annotation needs at least 2 points")
	ErrWrongPointCount  = errors.New("point and text annotations hold exactly 1 point")
	ErrBlankLabel       = errors.New("text annotation label is blank")
	ErrUnexpectedLabel  = errors.New("only text annotations carry a label")
	ErrNegativeTimestamp = errors.New("annotation timestamp must be >= 0")
)

// Point2D is a coordinate in the overlay's local space: pixels relative to
// the video frame's rendered rectangle.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Annotation is a single finalized user mark tied to a video timestamp.
// Construct through NewLine/NewPoint/NewText so kind invariants hold:
// a line can never carry a label, point and text always hold one point.
//
// Timestamp is the playback position in seconds captured when the mark was
// finalized. It is immutable for the mark's lifetime; only the points may
// change (text drag-to-move).
type Annotation struct {
	ID        uint      `json:"id"`
	Kind      Kind      `json:"kind"`
	Points    []Point2D `json:"points"`
	Label     string    `json:"label,omitempty"`
	Timestamp float64   `json:"timestamp"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewLine builds a freehand polyline annotation.
func NewLine(id uint, points []Point2D, timestamp float64) (Annotation, error) {
	if len(points) < 2 {
		return Annotation{}, ErrTooFewPoints
	}
	if timestamp < 0 {
		return Annotation{}, ErrNegativeTimestamp
	}
	pts := make([]Point2D, len(points))
	copy(pts, points)
	return Annotation{
		ID:        id,
		Kind:      KindLine,
		Points:    pts,
		Timestamp: timestamp,
		CreatedAt: time.Now(),
	}, nil
}

// NewPoint builds a single tap marker.
func NewPoint(id uint, p Point2D, timestamp float64) (Annotation, error) {
	if timestamp < 0 {
		return Annotation{}, ErrNegativeTimestamp
	}
	return Annotation{
		ID:        id,
		Kind:      KindPoint,
		Points:    []Point2D{p},
		Timestamp: timestamp,
		CreatedAt: time.Now(),
	}, nil
}

// NewText builds a text label anchored at p. A blank label is rejected;
// callers treat that as a cancelled placement, not an error surface.
func NewText(id uint, p Point2D, label string, timestamp float64) (Annotation, error) {
	if strings.TrimSpace(label) == "" {
		return Annotation{}, ErrBlankLabel
	}
	if timestamp < 0 {
		return Annotation{}, ErrNegativeTimestamp
	}
	return Annotation{
		ID:        id,
		Kind:      KindText,
		Points:    []Point2D{p},
		Label:     label,
		Timestamp: timestamp,
		CreatedAt: time.Now(),
	}, nil
}

// Anchor returns the annotation's reference position: the single point for
// point/text marks, the first vertex for lines.
func (a Annotation) Anchor() Point2D {
	if len(a.Points) == 0 {
		return Point2D{}
	}
	return a.Points[0]
}

// Validate checks the kind invariants on an annotation assembled outside the
// constructors (database loads, wire decodes).
func (a Annotation) Validate() error {
	switch a.Kind {
	case KindLine:
		if len(a.Points) < 2 {
			return ErrTooFewPoints
		}
		if a.Label != "" {
			return ErrUnexpectedLabel
		}
	case KindPoint:
		if len(a.Points) != 1 {
			return ErrWrongPointCount
		}
		if a.Label != "" {
			return ErrUnexpectedLabel
		}
	case KindText:
		if len(a.Points) != 1 {
			return ErrWrongPointCount
		}
		if strings.TrimSpace(a.Label) == "" {
			return ErrBlankLabel
		}
	default:
		return ErrUnknownKind
	}
	if a.Timestamp < 0 {
		return ErrNegativeTimestamp
	}
	return nil
}

// AnnotationMove is a drag-to-move update for a text annotation. The
// annotation's id and visibility timestamp never change; only the anchor
// does. PlaybackTime is the clock position when the drag ended.
type AnnotationMove struct {
	ID           uint      `json:"id"`
	Anchor       Point2D   `json:"anchor"`
	Time         time.Time `json:"time"`
	PlaybackTime float64   `json:"playbackTime"`
}

// AnnotationRemoval records a host-confirmed removal. PlaybackTime is the
// clock position when the removal landed.
type AnnotationRemoval struct {
	ID           uint      `json:"id"`
	Time         time.Time `json:"time"`
	PlaybackTime float64   `json:"playbackTime"`
}
