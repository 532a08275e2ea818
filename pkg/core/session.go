package core

import (
	"time"

	"github.com/google/uuid"
)

// VideoSession describes one loaded video and the recording session bound to
// it. Loading a new video replaces the session and clears all overlay state.
type VideoSession struct {
	ID              uuid.UUID
	SourceURI       string
	Title           string
	DurationSeconds float64
	FrameWidth      uint16 // rendered frame rectangle, pixels
	FrameHeight     uint16
	LoadedAt        time.Time
	Tag             string
	RecorderVersion string
}

// NewVideoSession creates a session with a fresh id and load time.
func NewVideoSession(sourceURI, title string, duration float64, width, height uint16) VideoSession {
	return VideoSession{
		ID:              uuid.New(),
		SourceURI:       sourceURI,
		Title:           title,
		DurationSeconds: duration,
		FrameWidth:      width,
		FrameHeight:     height,
		LoadedAt:        time.Now(),
		Tag:             "Net session",
	}
}

// LoopRange is a scrub loop over a section of the video. Zero value means
// no loop is active.
type LoopRange struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// IsActive reports whether the loop bounds describe a playable range.
func (l LoopRange) IsActive() bool {
	return l.End > l.Start
}

// Clamp folds t back into the loop range when a loop is active.
func (l LoopRange) Clamp(t float64) float64 {
	if !l.IsActive() {
		return t
	}
	if t < l.Start || t >= l.End {
		return l.Start
	}
	return t
}

// UploadMetadata accompanies an exported session file sent to the review
// server.
type UploadMetadata struct {
	SessionID       string
	Title           string
	SourceURI       string
	DurationSeconds float64
	AnnotationCount int
	Tag             string
}
