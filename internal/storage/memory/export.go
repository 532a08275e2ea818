package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/creaselab/overlay/pkg/core"
)

// SessionExport is the root JSON structure consumed by the review frontend.
type SessionExport struct {
	RecorderVersion string           `json:"recorderVersion"`
	SessionID       string           `json:"sessionId"`
	SourceURI       string           `json:"sourceUri"`
	Title           string           `json:"title"`
	DurationSeconds float64          `json:"durationSeconds"`
	FrameWidth      uint16           `json:"frameWidth"`
	FrameHeight     uint16           `json:"frameHeight"`
	Tag             string           `json:"tag"`
	Annotations     []AnnotationJSON `json:"annotations"`
	Telemetry       [][]any          `json:"telemetry"`
}

// AnnotationJSON represents one mark with its movement history.
type AnnotationJSON struct {
	ID        uint         `json:"id"`
	Kind      string       `json:"kind"`
	Points    [][2]float64 `json:"points"`
	Label     string       `json:"label,omitempty"`
	Timestamp float64      `json:"timestamp"`
	Removed   bool         `json:"removed"`
	Moves     [][]any      `json:"moves,omitempty"` // [playbackTime, x, y]
}

// exportJSON writes the session data to a (optionally gzipped) JSON file.
// Caller holds the lock.
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	// Build filename
	title := strings.ReplaceAll(b.session.Title, " ", "_")
	title = strings.ReplaceAll(title, ":", "_")
	timestamp := b.session.LoadedAt.Format("20060102_150405")

	var filename string
	if b.cfg.CompressOutput {
		filename = fmt.Sprintf("%s_%s.json.gz", title, timestamp)
	} else {
		filename = fmt.Sprintf("%s_%s.json", title, timestamp)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Write file
	if b.cfg.CompressOutput {
		if err := b.writeGzipJSON(outputPath, export); err != nil {
			return err
		}
	} else {
		if err := b.writeJSON(outputPath, export); err != nil {
			return err
		}
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() SessionExport {
	export := SessionExport{
		RecorderVersion: b.session.RecorderVersion,
		SessionID:       b.session.ID.String(),
		SourceURI:       b.session.SourceURI,
		Title:           b.session.Title,
		DurationSeconds: b.session.DurationSeconds,
		FrameWidth:      b.session.FrameWidth,
		FrameHeight:     b.session.FrameHeight,
		Tag:             b.session.Tag,
		Annotations:     make([]AnnotationJSON, 0, len(b.order)),
		Telemetry:       make([][]any, 0, len(b.telemetry)),
	}

	// Convert annotations in creation order
	for _, id := range b.order {
		record, ok := b.annotations[id]
		if !ok {
			continue
		}

		a := record.Annotation
		mark := AnnotationJSON{
			ID:        a.ID,
			Kind:      a.Kind.String(),
			Points:    make([][2]float64, 0, len(a.Points)),
			Label:     a.Label,
			Timestamp: a.Timestamp,
			Removed:   record.Removal != nil,
		}
		for _, p := range a.Points {
			mark.Points = append(mark.Points, [2]float64{p.X, p.Y})
		}

		// Movement history: [playbackTime, x, y]
		for _, mv := range record.Moves {
			mark.Moves = append(mark.Moves, []any{
				mv.PlaybackTime,
				mv.Anchor.X,
				mv.Anchor.Y,
			})
		}

		export.Annotations = append(export.Annotations, mark)
	}

	// Convert telemetry
	// Format: [playbackTime, fps, droppedFrames, decodeMs]
	for _, ev := range b.telemetry {
		export.Telemetry = append(export.Telemetry, []any{
			ev.PlaybackTime,
			ev.PlayerFps,
			ev.DroppedFrames,
			ev.DecodeMs,
		})
	}

	return export
}

func (b *Backend) writeJSON(path string, data SessionExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(data)
}

func (b *Backend) writeGzipJSON(path string, data SessionExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	defer gzWriter.Close()

	encoder := json.NewEncoder(gzWriter)
	return encoder.Encode(data)
}

// GetExportedFilePath returns the path of the last exported session file.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata returns upload metadata for the last ended session.
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.session == nil {
		return core.UploadMetadata{}
	}
	return core.UploadMetadata{
		SessionID:       b.session.ID.String(),
		Title:           b.session.Title,
		SourceURI:       b.session.SourceURI,
		DurationSeconds: b.session.DurationSeconds,
		AnnotationCount: len(b.annotations),
		Tag:             b.session.Tag,
	}
}
