package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creaselab/overlay/pkg/core"
	"github.com/creaselab/overlay/pkg/streaming"
)

// testServer creates an httptest server that upgrades to WebSocket,
// records received messages, and sends acks for start_session/end_session.
func testServer(t *testing.T) (*httptest.Server, *messageLog) {
	t.Helper()
	ml := &messageLog{}

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer c.Close()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}

			var env streaming.Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			ml.add(env)

			// Ack start_session and end_session.
			if env.Type == streaming.TypeStartSession || env.Type == streaming.TypeEndSession {
				ack := streaming.AckMessage{Type: "ack", For: env.Type}
				data, _ := json.Marshal(ack)
				if err := c.WriteMessage(ws.TextMessage, data); err != nil {
					return
				}
			}
		}
	}))

	return srv, ml
}

type messageLog struct {
	mu       sync.Mutex
	messages []streaming.Envelope
}

func (m *messageLog) add(env streaming.Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, env)
}

func (m *messageLog) all() []streaming.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]streaming.Envelope, len(m.messages))
	copy(cp, m.messages)
	return cp
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestStartAndEndSession(t *testing.T) {
	srv, ml := testServer(t)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv), Secret: "test"}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	session := core.NewVideoSession("file:///clips/nets.mp4", "Tuesday nets", 180, 1920, 1080)
	require.NoError(t, b.StartSession(&session))

	require.NoError(t, b.EndSession())

	msgs := ml.all()
	require.GreaterOrEqual(t, len(msgs), 2)
	assert.Equal(t, streaming.TypeStartSession, msgs[0].Type)
	assert.Equal(t, streaming.TypeEndSession, msgs[len(msgs)-1].Type)
}

func TestFireAndForgetMessages(t *testing.T) {
	srv, ml := testServer(t)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv), Secret: "s"}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	session := core.NewVideoSession("file:///clips/nets.mp4", "Nets", 180, 1280, 720)
	require.NoError(t, b.StartSession(&session))

	line, err := core.NewLine(1, []core.Point2D{{X: 10, Y: 10}, {X: 40, Y: 60}}, 12.3)
	require.NoError(t, err)
	text, err := core.NewText(2, core.Point2D{X: 200, Y: 90}, "head still", 12.3)
	require.NoError(t, err)

	require.NoError(t, b.AddAnnotation(&line))
	require.NoError(t, b.AddAnnotation(&text))
	require.NoError(t, b.MoveAnnotation(&core.AnnotationMove{ID: 2, Anchor: core.Point2D{X: 220, Y: 95}, Time: time.Now(), PlaybackTime: 13.0}))
	require.NoError(t, b.DeleteAnnotation(&core.AnnotationRemoval{ID: 1, Time: time.Now(), PlaybackTime: 14.2}))
	require.NoError(t, b.RecordTelemetry(&core.TelemetryEvent{PlaybackTime: 12.3, PlayerFps: 60}))
	require.NoError(t, b.RecordPerf(&core.PerfSnapshot{AnnotationCount: 2}))

	require.NoError(t, b.EndSession())

	// Give a moment for all messages to arrive at server.
	time.Sleep(50 * time.Millisecond)

	msgs := ml.all()

	types := make(map[string]int)
	for _, m := range msgs {
		types[m.Type]++
	}

	assert.Equal(t, 1, types[streaming.TypeStartSession])
	assert.Equal(t, 1, types[streaming.TypeEndSession])
	assert.Equal(t, 2, types[streaming.TypeAddAnnotation])
	assert.Equal(t, 1, types[streaming.TypeMoveAnnotation])
	assert.Equal(t, 1, types[streaming.TypeDeleteAnnotation])
	assert.Equal(t, 1, types[streaming.TypeTelemetry])
	assert.Equal(t, 1, types[streaming.TypePerf])
}

func TestPayloadsCarrySessionID(t *testing.T) {
	srv, ml := testServer(t)
	defer srv.Close()

	b := New(Config{URL: wsURL(srv), Secret: "s"}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	session := core.NewVideoSession("file:///clips/nets.mp4", "Nets", 60, 1280, 720)
	require.NoError(t, b.StartSession(&session))

	point, err := core.NewPoint(1, core.Point2D{X: 5, Y: 5}, 1.0)
	require.NoError(t, err)
	require.NoError(t, b.AddAnnotation(&point))

	time.Sleep(50 * time.Millisecond)

	var found bool
	for _, m := range ml.all() {
		if m.Type != streaming.TypeAddAnnotation {
			continue
		}
		var p streaming.AddAnnotationPayload
		require.NoError(t, json.Unmarshal(m.Payload, &p))
		assert.Equal(t, session.ID.String(), p.SessionID)
		assert.Equal(t, core.KindPoint, p.Annotation.Kind)
		found = true
	}
	assert.True(t, found, "add_annotation envelope not received")
}

func TestEnvelopeSerialization(t *testing.T) {
	payload := streaming.DeleteAnnotationPayload{
		SessionID: "abc",
		Removal:   core.AnnotationRemoval{ID: 7, PlaybackTime: 42.5},
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	env := streaming.Envelope{Type: streaming.TypeDeleteAnnotation, Payload: raw}
	data, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded streaming.Envelope
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, streaming.TypeDeleteAnnotation, decoded.Type)

	var dp streaming.DeleteAnnotationPayload
	require.NoError(t, json.Unmarshal(decoded.Payload, &dp))
	assert.Equal(t, uint(7), dp.Removal.ID)
	assert.Equal(t, 42.5, dp.Removal.PlaybackTime)
}
