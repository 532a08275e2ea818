package parser

import (
	"fmt"

	"github.com/creaselab/overlay/internal/geo"
	"github.com/creaselab/overlay/pkg/core"
)

// ParseGesturePosition parses a pointer position from gesture data.
// Expected args: "[x,y]" in video pixel space.
func (p *Parser) ParseGesturePosition(data []string) (core.Point2D, error) {
	var pos core.Point2D

	if len(data) < 1 {
		return pos, fmt.Errorf("expected 1 arg for gesture position, got %d", len(data))
	}
	cleanData(data)

	pos, err := geo.Point2DFromString(data[0])
	if err != nil {
		return pos, fmt.Errorf("error parsing gesture position: %w", err)
	}
	return pos, nil
}

// ParseTextSubmit parses a text prompt submission. A blank label is not an
// error here; the overlay treats it as a cancellation.
func (p *Parser) ParseTextSubmit(data []string) (string, error) {
	if len(data) < 1 {
		return "", fmt.Errorf("expected 1 arg for text submit, got %d", len(data))
	}
	cleanData(data)
	return data[0], nil
}

// ParseAnnotationRemove parses a removal confirmation. Expected args: id.
func (p *Parser) ParseAnnotationRemove(data []string) (uint, error) {
	if len(data) < 1 {
		return 0, fmt.Errorf("expected 1 arg for annotation remove, got %d", len(data))
	}
	cleanData(data)

	id, err := parseUintFromFloat(data[0])
	if err != nil {
		return 0, fmt.Errorf("error parsing annotation id: %w", err)
	}
	return uint(id), nil
}
