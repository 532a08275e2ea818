// Package websocket streams recording data over a WebSocket to the review
// server as it happens, instead of persisting it locally.
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/creaselab/overlay/pkg/core"
	"github.com/creaselab/overlay/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string
}

// Backend streams session data over WebSocket to the review server.
// It implements storage.Backend but not storage.Uploadable.
type Backend struct {
	conn *connection
	cfg  Config

	mu        sync.RWMutex
	sessionID string
}

// New creates a new WebSocket storage backend.
func New(cfg Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		conn: newConnection(logger),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

func (b *Backend) currentSessionID() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sessionID
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope marshals the payload into an Envelope and pushes it
// to the write loop (fire-and-forget).
func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// sendEnvelopeAndWait marshals the payload and waits for a server ack.
func (b *Backend) sendEnvelopeAndWait(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	return b.conn.sendAndWait(data, msgType, ackTimeout)
}

// StartSession sends the loaded video's session data and waits for a server
// ack so nothing streams against an unknown session.
func (b *Backend) StartSession(s *core.VideoSession) error {
	data, err := marshalEnvelope(streaming.TypeStartSession, streaming.StartSessionPayload{Session: s})
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.sessionID = s.ID.String()
	b.mu.Unlock()

	// Cache for reconnect replay.
	b.conn.mu.Lock()
	b.conn.cachedStartMsg = data
	b.conn.mu.Unlock()

	return b.conn.sendAndWait(data, streaming.TypeStartSession, ackTimeout)
}

// Pending reports how many messages are queued toward the server.
func (b *Backend) Pending() int {
	return b.conn.pending()
}

// EndSession sends end_session and waits for server ack.
func (b *Backend) EndSession() error {
	err := b.sendEnvelopeAndWait(streaming.TypeEndSession, nil)

	// Clear cached state regardless of error.
	b.conn.mu.Lock()
	b.conn.cachedStartMsg = nil
	b.conn.mu.Unlock()

	b.mu.Lock()
	b.sessionID = ""
	b.mu.Unlock()

	return err
}

func (b *Backend) AddAnnotation(a *core.Annotation) error {
	return b.sendEnvelope(streaming.TypeAddAnnotation, streaming.AddAnnotationPayload{
		SessionID:  b.currentSessionID(),
		Annotation: *a,
	})
}

func (b *Backend) MoveAnnotation(m *core.AnnotationMove) error {
	return b.sendEnvelope(streaming.TypeMoveAnnotation, streaming.MoveAnnotationPayload{
		SessionID: b.currentSessionID(),
		Move:      *m,
	})
}

func (b *Backend) DeleteAnnotation(r *core.AnnotationRemoval) error {
	return b.sendEnvelope(streaming.TypeDeleteAnnotation, streaming.DeleteAnnotationPayload{
		SessionID: b.currentSessionID(),
		Removal:   *r,
	})
}

func (b *Backend) RecordTelemetry(e *core.TelemetryEvent) error {
	return b.sendEnvelope(streaming.TypeTelemetry, streaming.TelemetryPayload{
		SessionID: b.currentSessionID(),
		Event:     *e,
	})
}

func (b *Backend) RecordPerf(p *core.PerfSnapshot) error {
	return b.sendEnvelope(streaming.TypePerf, streaming.PerfPayload{
		SessionID: b.currentSessionID(),
		Snapshot:  *p,
	})
}
