package parser

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creaselab/overlay/pkg/core"
)

func newTestParser() *Parser {
	return NewParser(slog.Default(), "1.0.0", "2.0.0")
}

func TestNewParser(t *testing.T) {
	p := newTestParser()
	require.NotNil(t, p)
}

func TestParseUintFromFloat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    uint64
		wantErr bool
	}{
		{"integer", "32", 32, false},
		{"zero", "0", 0, false},
		{"float with decimals", "32.00", 32, false},
		{"float with trailing zero", "30.0", 30, false},
		{"large integer", "65535", 65535, false},
		{"fractional rejects", "10.99", 0, true},
		{"empty string", "", 0, true},
		{"non-numeric", "abc", 0, true},
		{"negative", "-1", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseUintFromFloat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseVideoLoad(t *testing.T) {
	p := newTestParser()

	tests := []struct {
		name    string
		input   []string
		check   func(t *testing.T, s core.VideoSession)
		wantErr bool
	}{
		{
			name: "full session",
			input: []string{
				`"file:///videos/nets_2026_03_01.mp4"`, // 0: sourceURI
				`"Thursday nets"`,                      // 1: title
				"184.52",                               // 2: durationSeconds
				"1920",                                 // 3: frameWidth
				"1080.00",                              // 4: frameHeight
				`"Front foot drive"`,                   // 5: tag
			},
			check: func(t *testing.T, s core.VideoSession) {
				assert.Equal(t, "file:///videos/nets_2026_03_01.mp4", s.SourceURI)
				assert.Equal(t, "Thursday nets", s.Title)
				assert.Equal(t, 184.52, s.DurationSeconds)
				assert.Equal(t, uint16(1920), s.FrameWidth)
				assert.Equal(t, uint16(1080), s.FrameHeight)
				assert.Equal(t, "Front foot drive", s.Tag)
				assert.Equal(t, "2.0.0", s.RecorderVersion)
				assert.NotEqual(t, "", s.ID.String())
			},
		},
		{
			name: "tag omitted keeps default",
			input: []string{
				"rtsp://cam1/stream", "Side-on cam", "60", "1280", "720",
			},
			check: func(t *testing.T, s core.VideoSession) {
				assert.Equal(t, "Net session", s.Tag)
			},
		},
		{
			name:    "too few args",
			input:   []string{"uri", "title", "60"},
			wantErr: true,
		},
		{
			name:    "bad duration",
			input:   []string{"uri", "title", "abc", "1920", "1080"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.ParseVideoLoad(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, got)
		})
	}
}

func TestParseTime(t *testing.T) {
	p := newTestParser()

	got, err := p.ParseTime([]string{"12.48"})
	require.NoError(t, err)
	assert.Equal(t, 12.48, got)

	_, err = p.ParseTime([]string{"not-a-number"})
	assert.Error(t, err)

	_, err = p.ParseTime(nil)
	assert.Error(t, err)
}

func TestParseGesturePosition(t *testing.T) {
	p := newTestParser()

	got, err := p.ParseGesturePosition([]string{"[412.5,118]"})
	require.NoError(t, err)
	assert.Equal(t, core.Point2D{X: 412.5, Y: 118}, got)

	got, err = p.ParseGesturePosition([]string{`"300,200.25"`})
	require.NoError(t, err)
	assert.Equal(t, core.Point2D{X: 300, Y: 200.25}, got)

	_, err = p.ParseGesturePosition([]string{"[1,2,3]"})
	assert.Error(t, err)
}

func TestParseTextSubmit(t *testing.T) {
	p := newTestParser()

	// Embedded quotes arrive doubled and collapse to single quotes.
	got, err := p.ParseTextSubmit([]string{`"watch the ""elbow"""`})
	require.NoError(t, err)
	assert.Equal(t, `watch the "elbow"`, got)

	// blank is valid input, the overlay turns it into a cancel
	got, err = p.ParseTextSubmit([]string{`""`})
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestParseAnnotationRemove(t *testing.T) {
	p := newTestParser()

	got, err := p.ParseAnnotationRemove([]string{"7.00"})
	require.NoError(t, err)
	assert.Equal(t, uint(7), got)

	_, err = p.ParseAnnotationRemove([]string{"-2"})
	assert.Error(t, err)
}

func TestParseLoopRange(t *testing.T) {
	p := newTestParser()

	got, err := p.ParseLoopRange([]string{"4.5", "9.25"})
	require.NoError(t, err)
	assert.Equal(t, core.LoopRange{Start: 4.5, End: 9.25}, got)

	_, err = p.ParseLoopRange([]string{"9", "4"})
	assert.Error(t, err)
}

func TestParseTelemetry(t *testing.T) {
	p := newTestParser()

	ev, err := p.ParseTelemetry([]string{"33.2", "59.94", "3", "8.5"})
	require.NoError(t, err)
	assert.Equal(t, 33.2, ev.PlaybackTime)
	assert.Equal(t, float32(59.94), ev.PlayerFps)
	assert.Equal(t, uint16(3), ev.DroppedFrames)
	assert.Equal(t, float32(8.5), ev.DecodeMs)
	assert.False(t, ev.Time.IsZero())

	// unparseable secondary fields degrade to zero rather than failing
	ev, err = p.ParseTelemetry([]string{"10", "x", "y", "z"})
	require.NoError(t, err)
	assert.Equal(t, float32(0), ev.PlayerFps)
	assert.Equal(t, uint16(0), ev.DroppedFrames)

	_, err = p.ParseTelemetry([]string{"10"})
	assert.Error(t, err)
}
