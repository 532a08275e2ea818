package parser

import (
	"fmt"
	"strconv"

	"github.com/creaselab/overlay/pkg/core"
)

// ParseVideoLoad parses video load data and returns a core VideoSession.
// Expected args: sourceURI, title, durationSeconds, frameWidth, frameHeight, tag
func (p *Parser) ParseVideoLoad(data []string) (core.VideoSession, error) {
	var session core.VideoSession

	if len(data) < 5 {
		return session, fmt.Errorf("expected at least 5 args for video load, got %d", len(data))
	}
	cleanData(data)

	// sourceURI
	sourceURI := data[0]

	// title
	title := data[1]

	// durationSeconds
	duration, err := strconv.ParseFloat(data[2], 64)
	if err != nil {
		return session, fmt.Errorf("error parsing duration: %w", err)
	}

	// frameWidth
	width, err := parseUintFromFloat(data[3])
	if err != nil {
		return session, fmt.Errorf("error parsing frame width: %w", err)
	}

	// frameHeight
	height, err := parseUintFromFloat(data[4])
	if err != nil {
		return session, fmt.Errorf("error parsing frame height: %w", err)
	}

	session = core.NewVideoSession(sourceURI, title, duration, uint16(width), uint16(height))
	session.RecorderVersion = p.recorderVersion

	// tag is optional
	if len(data) > 5 && data[5] != "" {
		session.Tag = data[5]
	}

	return session, nil
}

// ParseTime parses a playback clock update. The host reports seconds as a float.
func (p *Parser) ParseTime(data []string) (float64, error) {
	if len(data) < 1 {
		return 0, fmt.Errorf("expected 1 arg for time update, got %d", len(data))
	}
	cleanData(data)

	t, err := strconv.ParseFloat(data[0], 64)
	if err != nil {
		return 0, fmt.Errorf("error parsing playback time: %w", err)
	}
	return t, nil
}

// ParseLoopRange parses a loop range set request. Expected args: start, end.
func (p *Parser) ParseLoopRange(data []string) (core.LoopRange, error) {
	var lr core.LoopRange

	if len(data) < 2 {
		return lr, fmt.Errorf("expected 2 args for loop range, got %d", len(data))
	}
	cleanData(data)

	start, err := strconv.ParseFloat(data[0], 64)
	if err != nil {
		return lr, fmt.Errorf("error parsing loop start: %w", err)
	}
	end, err := strconv.ParseFloat(data[1], 64)
	if err != nil {
		return lr, fmt.Errorf("error parsing loop end: %w", err)
	}
	if end < start {
		return lr, fmt.Errorf("loop end %f precedes start %f", end, start)
	}

	lr.Start = start
	lr.End = end
	return lr, nil
}
