package parser

import (
	"fmt"
	"strconv"
	"time"

	"github.com/creaselab/overlay/pkg/core"
)

// ParseTelemetry parses a player telemetry sample.
// Expected args: playbackTime, fps, droppedFrames, decodeMs
func (p *Parser) ParseTelemetry(data []string) (core.TelemetryEvent, error) {
	var ev core.TelemetryEvent

	if len(data) < 4 {
		return ev, fmt.Errorf("expected 4 args for telemetry, got %d", len(data))
	}
	cleanData(data)

	playbackTime, err := strconv.ParseFloat(data[0], 64)
	if err != nil {
		return ev, fmt.Errorf("error parsing playback time: %w", err)
	}

	fps, err := strconv.ParseFloat(data[1], 32)
	if err != nil {
		p.logger.Warn("Error parsing player fps", "error", err)
		fps = 0
	}

	dropped, err := parseUintFromFloat(data[2])
	if err != nil {
		p.logger.Warn("Error parsing dropped frames", "error", err)
		dropped = 0
	}

	decodeMs, err := strconv.ParseFloat(data[3], 32)
	if err != nil {
		p.logger.Warn("Error parsing decode time", "error", err)
		decodeMs = 0
	}

	ev.Time = time.Now()
	ev.PlaybackTime = playbackTime
	ev.PlayerFps = float32(fps)
	ev.DroppedFrames = uint16(dropped)
	ev.DecodeMs = float32(decodeMs)

	return ev, nil
}
