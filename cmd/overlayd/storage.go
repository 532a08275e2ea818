package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/creaselab/overlay/internal/api"
	"github.com/creaselab/overlay/internal/config"
	"github.com/creaselab/overlay/internal/influx"
	"github.com/creaselab/overlay/internal/monitor"
	"github.com/creaselab/overlay/internal/overlay"
	"github.com/creaselab/overlay/internal/parser"
	"github.com/creaselab/overlay/internal/storage"
	"github.com/creaselab/overlay/internal/worker"
	"github.com/creaselab/overlay/pkg/bridge"
	"github.com/creaselab/overlay/pkg/core"

	"github.com/spf13/viper"
)

// initStorage creates the storage backend and wires the worker manager and
// monitor on top of it. Safe to call from the :INIT: handler goroutine.
func initStorage() error {
	storageCfg := config.Storage()

	backend, err := storage.NewBackend(storageCfg, storage.Dependencies{
		AnnotationCache: annotationCache,
		LogManager:      SlogManager,
		SessionContext:  sessionCtx,
		DBLog:           zlog,
		RecorderVersion: CurrentRecorderVersion,
	})
	if err != nil {
		Logger.Error("Failed to create storage backend", "error", err)
		return err
	}
	storageBackend = backend
	if err := storageBackend.Init(); err != nil {
		Logger.Error("Failed to initialize storage backend", "error", err)
		return fmt.Errorf("failed to initialize %s backend: %w", storageCfg.Type, err)
	}
	Logger.Info("Storage backend initialized", "type", storageCfg.Type)

	apiClient = api.New(viper.GetString("api.serverUrl"), viper.GetString("api.apiKey"))

	var influxManager *influx.Manager
	if viper.GetBool("influx.enabled") {
		influxManager = influx.NewManager(zlog, filepath.Join(WorkDir, "influx_backup.lp.gz"))
		if err := influxManager.Connect(); err != nil {
			Logger.Warn("InfluxDB unavailable, falling back to backup writer", "error", err)
		}
		influxManager.CreateWriters()
	}

	parserService := parser.NewParser(SlogManager.Logger(), playerVersion, CurrentRecorderVersion)

	workerManager = worker.NewManager(worker.Dependencies{
		LogManager:     SlogManager,
		Parser:         parserService,
		SessionContext: sessionCtx,
		Notify: worker.HostNotify{
			RemovalRequested: notifyRemovalRequested,
			TextPrompt:       notifyTextPrompt,
		},
		Influx:    influxManager,
		APIClient: apiClient,
	}, storageBackend, overlayConfig())

	Logger.Debug("Registering worker handlers with dispatcher")
	workerManager.RegisterHandlers(eventDispatcher)
	Logger.Info("Worker handlers registered with dispatcher")

	monitorService = monitor.NewService(monitor.Dependencies{
		LogManager:      SlogManager,
		SessionContext:  sessionCtx,
		AnnotationCount: workerManager.AnnotationCount,
		Backend:         storageBackend,
		Dispatcher:      eventDispatcher,
		Influx:          influxManager,
		StatusDir:       WorkDir,
	})
	if !monitorService.IsRunning() {
		monitorService.Start()
	}

	if err := bridge.WriteHostCallback(RecorderName, ":STORAGE:OK:", storageCfg.Type); err != nil {
		Logger.Debug("No host callback registered for storage ready signal")
	}
	return nil
}

func overlayConfig() overlay.Config {
	cfg := config.Overlay()
	return overlay.Config{
		VisibilityWindow: cfg.VisibilityWindow,
		TextHitRadius:    cfg.TextHitRadius,
		StrokeHitRadius:  cfg.StrokeHitRadius,
		SegmentHitTest:   cfg.SegmentHitTest,
	}
}

// notifyRemovalRequested asks the host to confirm an erase hit. The mark
// stays in the overlay until the host answers with :ANNOTATION:REMOVE:.
func notifyRemovalRequested(id uint) {
	if err := bridge.WriteHostCallback(RecorderName, ":ANNOTATION:REMOVE:REQUEST:", strconv.FormatUint(uint64(id), 10)); err != nil {
		Logger.Warn("Removal request dropped, no host callback", "id", id)
	}
}

// notifyTextPrompt tells the host to open its text entry box at the anchor.
func notifyTextPrompt(anchor core.Point2D) {
	pos := fmt.Sprintf("[%f,%f]", anchor.X, anchor.Y)
	if err := bridge.WriteHostCallback(RecorderName, ":TEXT:PROMPT:", pos); err != nil {
		Logger.Warn("Text prompt dropped, no host callback", "anchor", pos)
	}
}
