package parser

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/creaselab/overlay/internal/util"
)

// parseUintFromFloat parses a string that may be an integer ("32") or float ("32.00") into uint64.
// The JS bridge has no integer type, so the host may serialize numbers as floats.
func parseUintFromFloat(s string) (uint64, error) {
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 || f != float64(uint64(f)) {
		return 0, fmt.Errorf("parseUintFromFloat: %q is not a valid uint64", s)
	}
	return uint64(f), nil
}

// Parser provides pure []string -> core struct conversion.
// It has zero external dependencies beyond a logger.
type Parser struct {
	logger *slog.Logger

	// Static config set at creation time
	playerVersion   string
	recorderVersion string
}

// NewParser creates a new parser with only a logger dependency
func NewParser(logger *slog.Logger, playerVersion, recorderVersion string) *Parser {
	return &Parser{
		logger:          logger,
		playerVersion:   playerVersion,
		recorderVersion: recorderVersion,
	}
}

// cleanData trims quotes and fixes escaped quotes in place.
func cleanData(data []string) {
	for i, v := range data {
		data[i] = util.FixEscapeQuotes(util.TrimQuotes(v))
	}
}
