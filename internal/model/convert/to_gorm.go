// Package convert provides functions to convert between GORM models and core models
package convert

import (
	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/creaselab/overlay/internal/geo"
	"github.com/creaselab/overlay/internal/model"
	"github.com/creaselab/overlay/pkg/core"
)

// anchorToPoint converts a mark anchor to a geom.Point for DB storage.
func anchorToPoint(p core.Point2D) geom.Point {
	return geo.PointToGeom(p)
}

// pointsToLineString converts a stroke's vertices to a geom.LineString.
// Marks with fewer than two points store an empty linestring.
func pointsToLineString(points []core.Point2D) geom.LineString {
	ls, err := geo.PolylineToGeom(points)
	if err != nil {
		return geom.LineString{}
	}
	return ls
}

// CoreToSession converts a core.VideoSession to a GORM model.Session.
func CoreToSession(s core.VideoSession) model.Session {
	return model.Session{
		SessionUID:      s.ID.String(),
		SourceURI:       s.SourceURI,
		Title:           s.Title,
		DurationSeconds: s.DurationSeconds,
		FrameWidth:      s.FrameWidth,
		FrameHeight:     s.FrameHeight,
		StartTime:       s.LoadedAt,
		Tag:             s.Tag,
		RecorderVersion: s.RecorderVersion,
	}
}

// CoreToAnnotation converts a core.Annotation to a GORM model.Annotation.
// core.Annotation.ID maps to GORM Annotation.OverlayID; the database assigns
// its own row id.
func CoreToAnnotation(a core.Annotation, sessionID uint) model.Annotation {
	out := model.Annotation{
		Time:      a.CreatedAt,
		SessionID: sessionID,
		OverlayID: a.ID,
		Kind:      a.Kind.String(),
		Label:     a.Label,
		Timestamp: a.Timestamp,
	}

	if a.Kind == core.KindLine {
		out.Polyline = pointsToLineString(a.Points)
	} else {
		out.Position = anchorToPoint(a.Anchor())
	}

	return out
}

// CoreToMove converts a core.AnnotationMove to a GORM model.AnnotationMove.
// annotationRowID is the database id of the moved annotation, resolved
// through the row-id cache.
func CoreToMove(m core.AnnotationMove, sessionID, annotationRowID uint) model.AnnotationMove {
	return model.AnnotationMove{
		Time:         m.Time,
		SessionID:    sessionID,
		AnnotationID: annotationRowID,
		Position:     anchorToPoint(m.Anchor),
		Timestamp:    m.PlaybackTime,
	}
}

// CoreToRemoval converts a core.AnnotationRemoval to a GORM model.RemovalEvent.
func CoreToRemoval(r core.AnnotationRemoval, sessionID, annotationRowID uint) model.RemovalEvent {
	return model.RemovalEvent{
		Time:         r.Time,
		SessionID:    sessionID,
		AnnotationID: annotationRowID,
		Timestamp:    r.PlaybackTime,
	}
}

// CoreToTelemetry converts a core.TelemetryEvent to a GORM model.TelemetryEvent.
func CoreToTelemetry(ev core.TelemetryEvent, sessionID uint) model.TelemetryEvent {
	return model.TelemetryEvent{
		Time:          ev.Time,
		SessionID:     sessionID,
		PlaybackTime:  ev.PlaybackTime,
		PlayerFps:     ev.PlayerFps,
		DroppedFrames: uint(ev.DroppedFrames),
		DecodeMs:      ev.DecodeMs,
	}
}

// CoreToPerf converts a core.PerfSnapshot to a GORM model.OverlayPerformance.
func CoreToPerf(p core.PerfSnapshot, sessionID uint) model.OverlayPerformance {
	return model.OverlayPerformance{
		Time:      p.Time,
		SessionID: sessionID,
		WriteQueueLengths: model.WriteQueueLengths{
			Annotations: p.Queues.Annotations,
			Moves:       p.Queues.Moves,
			Removals:    p.Queues.Removals,
			Telemetry:   p.Queues.Telemetry,
		},
		LastWriteDurationMs: p.LastWriteDurationMs,
		AnnotationCount:     uint(p.AnnotationCount),
	}
}
