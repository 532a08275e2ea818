// Package monitor periodically samples recorder health: dispatcher buffer
// depths, storage write queues, and the last DB write duration. Samples go
// to a status file and to the storage backend as perf snapshots.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/creaselab/overlay/internal/influx"
	"github.com/creaselab/overlay/internal/logging"
	"github.com/creaselab/overlay/internal/session"
	"github.com/creaselab/overlay/internal/storage"
	"github.com/creaselab/overlay/pkg/core"
)

// QueueStats is implemented by backends that batch writes behind queues.
type QueueStats interface {
	QueueLengths() core.QueueLengths
	GetLastDBWriteDuration() time.Duration
}

// BufferStats reports dispatcher buffer depths by command.
type BufferStats interface {
	BufferLengths() map[string]int
}

// StreamStats is implemented by backends that queue messages toward a
// remote server.
type StreamStats interface {
	Pending() int
}

// Dependencies holds all dependencies for the monitor service.
type Dependencies struct {
	LogManager     *logging.SlogManager
	SessionContext *session.Context
	// AnnotationCount reports the current mark count. The overlay itself is
	// single-mutator and must not be read from the monitor goroutine, so the
	// worker hands us a goroutine-safe sampler instead.
	AnnotationCount func() int
	Backend         storage.Backend
	Dispatcher      BufferStats
	Influx          *influx.Manager // optional
	StatusDir       string
}

// Service manages status monitoring.
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
}

// NewService creates a new monitor service.
func NewService(deps Dependencies) *Service {
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Snapshot builds the current perf snapshot. Queue depths and write duration
// are zero for backends that do not batch writes.
func (s *Service) Snapshot() core.PerfSnapshot {
	snap := core.PerfSnapshot{Time: time.Now()}
	if s.deps.AnnotationCount != nil {
		snap.AnnotationCount = uint16(s.deps.AnnotationCount())
	}
	if qs, ok := s.deps.Backend.(QueueStats); ok {
		snap.Queues = qs.QueueLengths()
		snap.LastWriteDurationMs = float32(qs.GetLastDBWriteDuration().Milliseconds())
	}
	return snap
}

// GetProgramStatus returns printable status sections and the perf snapshot.
func (s *Service) GetProgramStatus(rawBuffers, writeQueues, lastWrite bool) (output []string, snap core.PerfSnapshot) {
	snap = s.Snapshot()

	if rawBuffers && s.deps.Dispatcher != nil {
		raw, err := json.MarshalIndent(s.deps.Dispatcher.BufferLengths(), "", "  ")
		if err != nil {
			raw = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
		}
		output = append(output, string(raw))
	}
	if writeQueues {
		raw, err := json.MarshalIndent(snap.Queues, "", "  ")
		if err != nil {
			raw = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
		}
		output = append(output, string(raw))
	}
	if lastWrite {
		output = append(output, fmt.Sprintf("%g", snap.LastWriteDurationMs))
	}
	if ss, ok := s.deps.Backend.(StreamStats); ok {
		output = append(output, fmt.Sprintf(`{"pendingStream": %d}`, ss.Pending()))
	}

	return output, snap
}

// Start starts the status monitor goroutine.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.LogManager.Logger()
		logger.Debug("Starting status monitor goroutine")

		statusFile, err := os.Create(s.deps.StatusDir + "/status.txt")
		if err != nil {
			logger.Error("Error creating status file", "error", err)
		}
		defer statusFile.Close()

		for {
			select {
			case <-s.stopChan:
				return
			default:
				time.Sleep(1000 * time.Millisecond)

				if !s.deps.SessionContext.Loaded() {
					continue
				}

				statusStr, snap := s.GetProgramStatus(true, true, true)

				if statusFile != nil {
					statusFile.Truncate(0)
					statusFile.Seek(0, 0)
					for _, line := range statusStr {
						statusFile.WriteString(line + "\n")
					}
				}

				if err := s.deps.Backend.RecordPerf(&snap); err != nil {
					logger.Error("Error recording perf snapshot", "error", err)
				}

				if s.deps.Influx != nil {
					sessionID := s.deps.SessionContext.Get().ID.String()
					bucket, point := influx.PerfPoint(sessionID, &snap)
					if err := s.deps.Influx.WritePoint(context.Background(), bucket, point); err != nil {
						logger.Warn("Error writing perf point to InfluxDB", "error", err)
					}
				}
			}
		}
	}()

	return nil
}

// Stop stops the status monitor.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		close(s.stopChan)
	}
}
