// Package sqlitestorage implements the storage.Backend interface using an
// in-memory SQLite database with periodic disk dumps via VACUUM INTO.
// It wraps the GORM backend via composition — the only SQLite-specific
// concerns are (a) creating the in-memory DB, (b) the periodic disk dump,
// and (c) schema migration without the PostGIS extension, all handled by
// the database manager.
package sqlitestorage

import (
	"fmt"
	"time"

	"github.com/creaselab/overlay/internal/cache"
	"github.com/creaselab/overlay/internal/database"
	"github.com/creaselab/overlay/internal/logging"
	"github.com/creaselab/overlay/internal/session"
	gormstorage "github.com/creaselab/overlay/internal/storage/gorm"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	DumpInterval time.Duration
	DumpPath     string // Path for periodic VACUUM INTO dumps
}

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	mgr             *database.Manager
	cfg             Config
	log             *logging.SlogManager
	recorderVersion string
	stopChan        chan struct{}
}

// New creates a new SQLite storage backend.
func New(cfg Config, mgr *database.Manager, annotationCache *cache.AnnotationCache, logManager *logging.SlogManager, sessionCtx *session.Context, recorderVersion string) (*Backend, error) {
	if err := mgr.ConnectSqlite(""); err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}
	mgr.SqliteFilePath = cfg.DumpPath

	gormBackend := gormstorage.New(gormstorage.Dependencies{
		DB:              mgr.DB,
		AnnotationCache: annotationCache,
		LogManager:      logManager,
		SessionContext:  sessionCtx,
	})

	return &Backend{
		Backend:         gormBackend,
		mgr:             mgr,
		cfg:             cfg,
		log:             logManager,
		recorderVersion: recorderVersion,
		stopChan:        make(chan struct{}),
	}, nil
}

// Init migrates the schema, initializes the embedded GORM backend, and
// starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.mgr.Migrate(b.recorderVersion); err != nil {
		return fmt.Errorf("failed to migrate SQLite schema: %w", err)
	}

	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		go b.dumpLoop()
	}

	return nil
}

// Close stops the dump goroutine and closes the embedded GORM backend.
func (b *Backend) Close() error {
	close(b.stopChan)
	if err := b.Backend.Close(); err != nil {
		return err
	}
	return b.mgr.Close()
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via
// VACUUM INTO. VACUUM INTO creates a point-in-time snapshot, so no pause
// mechanism is needed.
func (b *Backend) dumpLoop() {
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.mgr.DumpMemoryToDisk(); err != nil {
				b.log.Logger().Error("Error dumping overlay DB to disk", "error", err)
			}
		}
	}
}
