package storage

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/creaselab/overlay/internal/cache"
	"github.com/creaselab/overlay/internal/config"
	"github.com/creaselab/overlay/internal/database"
	"github.com/creaselab/overlay/internal/logging"
	"github.com/creaselab/overlay/internal/session"
	"github.com/creaselab/overlay/internal/storage/memory"
	"github.com/creaselab/overlay/internal/storage/postgres"
	sqlitestorage "github.com/creaselab/overlay/internal/storage/sqlite"
	"github.com/creaselab/overlay/internal/storage/websocket"
)

// Conformance checks for the concrete backends. The memory backend is the
// only one that exports a session file for upload.
var (
	_ Backend    = (*memory.Backend)(nil)
	_ Backend    = (*websocket.Backend)(nil)
	_ Backend    = (*postgres.Backend)(nil)
	_ Backend    = (*sqlitestorage.Backend)(nil)
	_ Uploadable = (*memory.Backend)(nil)
)

// Dependencies carries the collaborators the database-backed backends need.
// The memory and websocket backends ignore most of them.
type Dependencies struct {
	AnnotationCache *cache.AnnotationCache
	LogManager      *logging.SlogManager
	SessionContext  *session.Context
	DBLog           zerolog.Logger
	RecorderVersion string
}

// NewBackend creates a storage backend based on configuration.
func NewBackend(cfg config.StorageConfig, deps Dependencies) (Backend, error) {
	switch cfg.Type {
	case "postgres":
		return postgres.New(nil, database.NewManager(deps.DBLog), deps.AnnotationCache, deps.LogManager, deps.SessionContext, deps.RecorderVersion)
	case "sqlite":
		return sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: time.Duration(cfg.Sqlite.DumpIntervalSec) * time.Second,
			DumpPath:     cfg.Sqlite.DumpPath,
		}, database.NewManager(deps.DBLog), deps.AnnotationCache, deps.LogManager, deps.SessionContext, deps.RecorderVersion)
	case "websocket":
		return websocket.New(websocket.Config{
			URL:    cfg.Websocket.URL,
			Secret: cfg.Websocket.Secret,
		}, deps.LogManager.Logger()), nil
	case "memory":
		return memory.New(cfg.Memory), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
