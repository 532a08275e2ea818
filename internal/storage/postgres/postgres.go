// Package postgres implements the storage.Backend interface over a
// PostgreSQL connection. It wraps the GORM backend via composition — the
// postgres-specific concerns are connecting, enabling PostGIS for the
// geometry columns, and schema migration, all handled by the database
// manager.
package postgres

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/creaselab/overlay/internal/cache"
	"github.com/creaselab/overlay/internal/database"
	"github.com/creaselab/overlay/internal/logging"
	"github.com/creaselab/overlay/internal/session"
	gormstorage "github.com/creaselab/overlay/internal/storage/gorm"
)

// Backend wraps the GORM backend for PostgreSQL-specific behavior.
type Backend struct {
	*gormstorage.Backend
	mgr             *database.Manager
	log             *logging.SlogManager
	recorderVersion string
}

// New creates a new PostgreSQL storage backend. If db is nil a connection
// is opened from the db.* configuration keys.
func New(db *gorm.DB, mgr *database.Manager, annotationCache *cache.AnnotationCache, logManager *logging.SlogManager, sessionCtx *session.Context, recorderVersion string) (*Backend, error) {
	if db == nil {
		if err := mgr.ConnectPostgres(); err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
	} else {
		mgr.DB = db
		mgr.IsValid = true
	}

	gormBackend := gormstorage.New(gormstorage.Dependencies{
		DB:              mgr.DB,
		AnnotationCache: annotationCache,
		LogManager:      logManager,
		SessionContext:  sessionCtx,
	})

	return &Backend{
		Backend:         gormBackend,
		mgr:             mgr,
		log:             logManager,
		recorderVersion: recorderVersion,
	}, nil
}

// Init migrates the schema, including the PostGIS extension, and starts the
// embedded GORM backend's flush loop.
func (b *Backend) Init() error {
	if err := b.mgr.Migrate(b.recorderVersion); err != nil {
		return err
	}
	b.log.Logger().Info("Postgres schema migrated")

	return b.Backend.Init()
}

// Close stops the embedded GORM backend and releases the connection.
func (b *Backend) Close() error {
	if err := b.Backend.Close(); err != nil {
		return err
	}
	return b.mgr.Close()
}
