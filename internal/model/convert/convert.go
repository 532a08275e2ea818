package convert

import (
	"github.com/google/uuid"

	"github.com/creaselab/overlay/internal/geo"
	"github.com/creaselab/overlay/internal/model"
	"github.com/creaselab/overlay/pkg/core"
)

// SessionToCore converts a GORM Session back to a core.VideoSession.
// A malformed stored UID yields the zero uuid rather than an error.
func SessionToCore(s model.Session) core.VideoSession {
	uid, err := uuid.Parse(s.SessionUID)
	if err != nil {
		uid = uuid.UUID{}
	}

	return core.VideoSession{
		ID:              uid,
		SourceURI:       s.SourceURI,
		Title:           s.Title,
		DurationSeconds: s.DurationSeconds,
		FrameWidth:      s.FrameWidth,
		FrameHeight:     s.FrameHeight,
		LoadedAt:        s.StartTime,
		Tag:             s.Tag,
		RecorderVersion: s.RecorderVersion,
	}
}

// AnnotationToCore converts a GORM Annotation back to a core.Annotation.
// GORM Annotation.OverlayID maps to core Annotation.ID.
func AnnotationToCore(a model.Annotation) (core.Annotation, error) {
	kind, err := core.KindFromString(a.Kind)
	if err != nil {
		return core.Annotation{}, err
	}

	out := core.Annotation{
		ID:        a.OverlayID,
		Kind:      kind,
		Label:     a.Label,
		Timestamp: a.Timestamp,
		CreatedAt: a.Time,
	}

	if kind == core.KindLine {
		out.Points = geo.PolylineFromGeom(a.Polyline)
	} else {
		out.Points = []core.Point2D{geo.PointFromGeom(a.Position)}
	}

	if err := out.Validate(); err != nil {
		return core.Annotation{}, err
	}
	return out, nil
}
