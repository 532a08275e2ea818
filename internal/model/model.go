package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&RecorderInfo{},
	&Session{},
	&Annotation{},
	&AnnotationMove{},
	&RemovalEvent{},
	&TelemetryEvent{},
	&OverlayPerformance{},
}

// DatabaseModelsSQLite mirrors DatabaseModels for the embedded store.
var DatabaseModelsSQLite = []interface{}{
	&RecorderInfo{},
	&Session{},
	&Annotation{},
	&AnnotationMove{},
	&RemovalEvent{},
	&TelemetryEvent{},
	&OverlayPerformance{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// RecorderInfo contains information about the recorder installation
type RecorderInfo struct {
	gorm.Model
	ClubName        string `json:"clubName" gorm:"size:127"`
	ClubDescription string `json:"clubDescription" gorm:"size:255"`
	ClubWebsite     string `json:"clubURL" gorm:"size:255"`
	RecorderVersion string `json:"recorderVersion" gorm:"size:64"`
}

func (*RecorderInfo) TableName() string {
	return "recorder_infos"
}

// OverlayPerformance is the model for recorder performance metrics
type OverlayPerformance struct {
	Time                time.Time         `json:"time" gorm:"type:timestamptz;index:idx_time"`
	SessionID           uint              `json:"sessionId" gorm:"index:idx_overlayperformance_session_id"`
	Session             Session           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	WriteQueueLengths   WriteQueueLengths `json:"writeQueueLengths" gorm:"embedded;embeddedPrefix:writequeue_"`
	LastWriteDurationMs float32           `json:"lastWriteDurationMs"`
	AnnotationCount     uint              `json:"annotationCount"`
}

func (*OverlayPerformance) TableName() string {
	return "overlay_performances"
}

// WriteQueueLengths is the model for the write queue lengths
type WriteQueueLengths struct {
	Annotations uint16 `json:"annotations"`
	Moves       uint16 `json:"moves"`
	Removals    uint16 `json:"removals"`
	Telemetry   uint16 `json:"telemetry"`
}

////////////////////////
// RECORDING MODELS
////////////////////////

// Session is the main model for a recording session bound to one video
type Session struct {
	gorm.Model
	SessionUID      string         `json:"sessionUid" gorm:"size:36;index:idx_session_uid"`
	SourceURI       string         `json:"sourceUri" gorm:"size:512"`
	Title           string         `json:"title" gorm:"size:200"`
	DurationSeconds float64        `json:"durationSeconds"`
	FrameWidth      uint16         `json:"frameWidth"`
	FrameHeight     uint16         `json:"frameHeight"`
	StartTime       time.Time      `json:"sessionStart" gorm:"type:timestamptz;index:idx_session_start"`
	Tag             string         `json:"tag" gorm:"size:127"`
	RecorderVersion string         `json:"recorderVersion" gorm:"size:64;default:1.0.0"`
	Extra           datatypes.JSON `json:"extra"`

	Annotations     []Annotation
	AnnotationMoves []AnnotationMove
	RemovalEvents   []RemovalEvent
	TelemetryEvents []TelemetryEvent
}

func (*Session) TableName() string {
	return "sessions"
}

// GetOrInsert looks up a session by its UID, inserting it when absent.
func (s *Session) GetOrInsert(db *gorm.DB) (
	created bool,
	err error,
) {
	var existing Session
	err = db.Where("session_uid = ?", s.SessionUID).First(&existing).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			// insert
			err = db.Create(s).Error
			return true, err
		}
		return false, err
	}
	// overwrite with db record if found
	*s = existing
	return false, nil
}

// Annotation represents a finalized overlay mark
type Annotation struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time `json:"time" gorm:"type:timestamptz;"` // Wall clock when the mark was finalized
	SessionID uint      `json:"sessionId" gorm:"index:idx_annotation_session_id"`
	Session   Session   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`

	OverlayID uint            `json:"overlayId" gorm:"index:idx_annotation_overlay_id"` // Overlay-assigned id, unique within a session
	Kind      string          `json:"kind" gorm:"size:16"`                              // line, point or text
	Position  geom.Point      `json:"position"`                                         // Anchor (for point and text marks)
	Polyline  geom.LineString `json:"polyline"`                                         // Stroke vertices (for line marks)
	Label     string          `json:"label" gorm:"size:256"`                            // Text content (text marks only)
	Timestamp float64         `json:"timestamp" gorm:"index:idx_annotation_timestamp"`  // Video playback seconds the mark is keyed to
	IsDeleted bool            `json:"isDeleted" gorm:"default:false"`                   // Whether the host confirmed removal
}

func (*Annotation) TableName() string {
	return "annotations"
}

// AnnotationMove tracks text mark repositioning over time
type AnnotationMove struct {
	ID           uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	Time         time.Time  `json:"time" gorm:"type:timestamptz;"`
	SessionID    uint       `json:"sessionId" gorm:"index:idx_annotationmove_session_id"`
	Session      Session    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	AnnotationID uint       `json:"annotationId" gorm:"index:idx_annotationmove_annotation_id"`
	Annotation   Annotation `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:AnnotationID;"`

	Position  geom.Point `json:"position"`  // Anchor after the drag
	Timestamp float64    `json:"timestamp"` // Playback seconds when the drag ended
}

func (*AnnotationMove) TableName() string {
	return "annotation_moves"
}

// RemovalEvent records a host-confirmed annotation removal
type RemovalEvent struct {
	ID           uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	Time         time.Time  `json:"time" gorm:"type:timestamptz;"`
	SessionID    uint       `json:"sessionId" gorm:"index:idx_removalevent_session_id"`
	Session      Session    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	AnnotationID uint       `json:"annotationId" gorm:"index:idx_removalevent_annotation_id"`
	Annotation   Annotation `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:AnnotationID;"`

	Timestamp float64 `json:"timestamp"` // Playback seconds when the removal was confirmed
}

func (*RemovalEvent) TableName() string {
	return "removal_events"
}

// TelemetryEvent records one player performance sample
type TelemetryEvent struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time `json:"time" gorm:"type:timestamptz;index:idx_telemetry_time"`
	SessionID uint      `json:"sessionId" gorm:"index:idx_telemetry_session_id"`
	Session   Session   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`

	PlaybackTime  float64 `json:"playbackTime"`
	PlayerFps     float32 `json:"playerFps"`
	DroppedFrames uint    `json:"droppedFrames"`
	DecodeMs      float32 `json:"decodeMs"`
}

func (*TelemetryEvent) TableName() string {
	return "telemetry_events"
}
