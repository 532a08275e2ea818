package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creaselab/overlay/internal/cache"
	"github.com/creaselab/overlay/internal/config"
	"github.com/creaselab/overlay/internal/logging"
	"github.com/creaselab/overlay/internal/session"
	"github.com/creaselab/overlay/internal/storage"
	"github.com/creaselab/overlay/internal/storage/memory"
)

func testDeps() storage.Dependencies {
	return storage.Dependencies{
		AnnotationCache: cache.NewAnnotationCache(),
		LogManager:      logging.NewSlogManager(),
		SessionContext:  session.NewContext(),
	}
}

func TestNewBackendMemory(t *testing.T) {
	b, err := storage.NewBackend(config.StorageConfig{
		Type:   "memory",
		Memory: config.MemoryConfig{OutputDir: t.TempDir()},
	}, testDeps())
	require.NoError(t, err)

	_, ok := b.(*memory.Backend)
	assert.True(t, ok)
	_, ok = b.(storage.Uploadable)
	assert.True(t, ok, "memory backend should support upload")
}

func TestNewBackendUnknownType(t *testing.T) {
	_, err := storage.NewBackend(config.StorageConfig{Type: "carrier-pigeon"}, testDeps())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage type")
}
