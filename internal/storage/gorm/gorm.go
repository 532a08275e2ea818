// Package gormstorage implements the storage backend over a gorm.DB,
// batching writes behind in-memory queues flushed on a timer.
package gormstorage

import (
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/creaselab/overlay/internal/cache"
	"github.com/creaselab/overlay/internal/logging"
	"github.com/creaselab/overlay/internal/model"
	"github.com/creaselab/overlay/internal/model/convert"
	"github.com/creaselab/overlay/internal/queue"
	"github.com/creaselab/overlay/internal/session"
	"github.com/creaselab/overlay/pkg/core"
)

// flushInterval is how often queued rows are written to the database.
const flushInterval = 1 * time.Second

// Queues holds the write-behind queues pending DB insert. Entries stay in
// core form until flush so annotation row ids can be resolved after the
// marks themselves have been inserted.
type Queues struct {
	Annotations *queue.Queue[core.Annotation]
	Moves       *queue.Queue[core.AnnotationMove]
	Removals    *queue.Queue[core.AnnotationRemoval]
	Telemetry   *queue.Queue[core.TelemetryEvent]
	Perf        *queue.Queue[core.PerfSnapshot]
}

func newQueues() *Queues {
	return &Queues{
		Annotations: queue.New[core.Annotation](),
		Moves:       queue.New[core.AnnotationMove](),
		Removals:    queue.New[core.AnnotationRemoval](),
		Telemetry:   queue.New[core.TelemetryEvent](),
		Perf:        queue.New[core.PerfSnapshot](),
	}
}

// Dependencies wires the backend to its collaborators.
type Dependencies struct {
	DB              *gorm.DB
	AnnotationCache *cache.AnnotationCache
	LogManager      *logging.SlogManager
	SessionContext  *session.Context
	IsDatabaseValid func() bool
	DBInsertsPaused func() bool
}

// Backend buffers recording data and periodically flushes it to gorm.
type Backend struct {
	deps   Dependencies
	queues *Queues

	stopChan chan struct{}
	wg       sync.WaitGroup

	mu                  sync.RWMutex
	sessionRowID        uint
	lastDBWriteDuration time.Duration
}

// New creates a gorm storage backend.
func New(deps Dependencies) *Backend {
	return &Backend{deps: deps}
}

// Init creates the queues and starts the flush loop.
func (b *Backend) Init() error {
	b.queues = newQueues()
	b.stopChan = make(chan struct{})

	b.wg.Add(1)
	go b.flushLoop()

	return nil
}

// Close stops the flush loop after a final flush.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		b.wg.Wait()
		b.stopChan = nil
	}
	b.flush()
	return nil
}

func (b *Backend) flushLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			b.flush()
		case <-b.stopChan:
			return
		}
	}
}

// StartSession inserts the session row and resets per-session state.
func (b *Backend) StartSession(s *core.VideoSession) error {
	b.flush()
	b.deps.AnnotationCache.Reset()

	b.mu.Lock()
	b.sessionRowID = 0
	b.mu.Unlock()

	if !b.canWrite() {
		return nil
	}

	row := convert.CoreToSession(*s)
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return err
	}

	b.mu.Lock()
	b.sessionRowID = row.ID
	b.mu.Unlock()

	return nil
}

// EndSession flushes everything still queued.
func (b *Backend) EndSession() error {
	b.flush()
	return nil
}

// AddAnnotation queues a finalized mark for insert.
func (b *Backend) AddAnnotation(a *core.Annotation) error {
	b.queues.Annotations.Push(*a)
	return nil
}

// MoveAnnotation queues a text mark reposition. The mark's row id is
// resolved at flush time through the annotation cache.
func (b *Backend) MoveAnnotation(m *core.AnnotationMove) error {
	b.queues.Moves.Push(*m)
	return nil
}

// DeleteAnnotation queues a removal event; the flush also marks the
// annotation row deleted.
func (b *Backend) DeleteAnnotation(r *core.AnnotationRemoval) error {
	b.queues.Removals.Push(*r)
	return nil
}

// RecordTelemetry queues a player health sample.
func (b *Backend) RecordTelemetry(e *core.TelemetryEvent) error {
	b.queues.Telemetry.Push(*e)
	return nil
}

// RecordPerf queues a recorder health snapshot.
func (b *Backend) RecordPerf(p *core.PerfSnapshot) error {
	b.queues.Perf.Push(*p)
	return nil
}

// QueueLengths reports the pending queue depths.
func (b *Backend) QueueLengths() core.QueueLengths {
	return core.QueueLengths{
		Annotations: uint16(b.queues.Annotations.Len()),
		Moves:       uint16(b.queues.Moves.Len()),
		Removals:    uint16(b.queues.Removals.Len()),
		Telemetry:   uint16(b.queues.Telemetry.Len()),
	}
}

// GetLastDBWriteDuration returns the duration of the last flush.
func (b *Backend) GetLastDBWriteDuration() time.Duration {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastDBWriteDuration
}

func (b *Backend) currentSessionRowID() uint {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sessionRowID
}

func (b *Backend) canWrite() bool {
	if b.deps.DB == nil {
		return false
	}
	if b.deps.IsDatabaseValid != nil && !b.deps.IsDatabaseValid() {
		return false
	}
	if b.deps.DBInsertsPaused != nil && b.deps.DBInsertsPaused() {
		return false
	}
	return true
}

// flush writes all queued rows to the database. Annotations go first so
// move and removal rows can resolve their annotation row ids through the
// cache populated by the insert.
func (b *Backend) flush() {
	if b.queues == nil {
		return
	}
	if !b.canWrite() {
		// Drop the batches, the overlay keeps the live marks in memory.
		b.queues.Annotations.Clear()
		b.queues.Moves.Clear()
		b.queues.Removals.Clear()
		b.queues.Telemetry.Clear()
		b.queues.Perf.Clear()
		return
	}

	logger := b.deps.LogManager.Logger()
	sessionRowID := b.currentSessionRowID()
	start := time.Now()

	annotations := b.queues.Annotations.GetAndEmpty()
	if len(annotations) > 0 {
		rows := make([]model.Annotation, 0, len(annotations))
		for _, a := range annotations {
			rows = append(rows, convert.CoreToAnnotation(a, sessionRowID))
		}
		if err := b.deps.DB.Create(&rows).Error; err != nil {
			logger.Error("Failed to write annotations", "error", err, "count", len(rows))
		} else {
			for _, row := range rows {
				b.deps.AnnotationCache.Set(row.OverlayID, row.ID)
			}
		}
	}

	moves := b.queues.Moves.GetAndEmpty()
	if len(moves) > 0 {
		rows := make([]model.AnnotationMove, 0, len(moves))
		for _, m := range moves {
			rowID, ok := b.deps.AnnotationCache.Get(m.ID)
			if !ok {
				logger.Warn("Dropping move for unknown annotation", "overlayId", m.ID)
				continue
			}
			rows = append(rows, convert.CoreToMove(m, sessionRowID, rowID))
		}
		if len(rows) > 0 {
			if err := b.deps.DB.Create(&rows).Error; err != nil {
				logger.Error("Failed to write annotation moves", "error", err, "count", len(rows))
			}
		}
	}

	removals := b.queues.Removals.GetAndEmpty()
	if len(removals) > 0 {
		rows := make([]model.RemovalEvent, 0, len(removals))
		for _, r := range removals {
			rowID, ok := b.deps.AnnotationCache.Get(r.ID)
			if !ok {
				logger.Warn("Dropping removal for unknown annotation", "overlayId", r.ID)
				continue
			}
			rows = append(rows, convert.CoreToRemoval(r, sessionRowID, rowID))
		}
		if len(rows) > 0 {
			if err := b.deps.DB.Create(&rows).Error; err != nil {
				logger.Error("Failed to write removal events", "error", err, "count", len(rows))
			}
			for _, row := range rows {
				err := b.deps.DB.Model(&model.Annotation{}).
					Where("id = ?", row.AnnotationID).
					Update("is_deleted", true).Error
				if err != nil {
					logger.Error("Failed to mark annotation deleted", "error", err, "rowId", row.AnnotationID)
				}
			}
		}
	}

	telemetry := b.queues.Telemetry.GetAndEmpty()
	if len(telemetry) > 0 {
		rows := make([]model.TelemetryEvent, 0, len(telemetry))
		for _, ev := range telemetry {
			rows = append(rows, convert.CoreToTelemetry(ev, sessionRowID))
		}
		if err := b.deps.DB.Create(&rows).Error; err != nil {
			logger.Error("Failed to write telemetry", "error", err, "count", len(rows))
		}
	}

	perf := b.queues.Perf.GetAndEmpty()
	if len(perf) > 0 {
		rows := make([]model.OverlayPerformance, 0, len(perf))
		for _, p := range perf {
			rows = append(rows, convert.CoreToPerf(p, sessionRowID))
		}
		if err := b.deps.DB.Create(&rows).Error; err != nil {
			logger.Error("Failed to write perf snapshots", "error", err, "count", len(rows))
		}
	}

	b.mu.Lock()
	b.lastDBWriteDuration = time.Since(start)
	b.mu.Unlock()
}
