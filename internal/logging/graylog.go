package logging

import (
	"io"

	"github.com/Graylog2/go-gelf/gelf"
)

// NewGraylogWriter connects a GELF UDP writer to the given Graylog address.
// The returned writer chunks large records per the GELF spec.
func NewGraylogWriter(address, recorderName string) (io.Writer, error) {
	w, err := gelf.NewWriter(address)
	if err != nil {
		return nil, err
	}
	w.Facility = recorderName
	return w, nil
}
