package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/creaselab/overlay/internal/api"
	"github.com/creaselab/overlay/internal/cache"
	"github.com/creaselab/overlay/internal/config"
	"github.com/creaselab/overlay/internal/dispatcher"
	"github.com/creaselab/overlay/internal/logging"
	"github.com/creaselab/overlay/internal/monitor"
	intOtel "github.com/creaselab/overlay/internal/otel"
	"github.com/creaselab/overlay/internal/session"
	"github.com/creaselab/overlay/internal/storage"
	"github.com/creaselab/overlay/internal/worker"
	"github.com/creaselab/overlay/pkg/bridge"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// recorder defs - BuildDate can be set at build time via ldflags
var (
	CurrentRecorderVersion string = "0.1.0"
	BuildDate              string = "unknown"

	RecorderName string = "overlay_recorder"
)

// file paths
var (
	// WorkDir is where the config file and outputs live. Defaults to the
	// current directory, overridable with OVERLAY_HOME.
	WorkDir string

	LogFilePath string
	LogFile     *os.File
)

// global state
var (
	SessionStartTime time.Time = time.Now()

	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	// playerVersion is reported by the host via :PLAYER:VERSION:
	playerVersion string = "unknown"

	// Services
	eventDispatcher *dispatcher.Dispatcher
	workerManager   *worker.Manager
	monitorService  *monitor.Service
	apiClient       *api.Client

	sessionCtx      *session.Context
	annotationCache *cache.AnnotationCache

	// zlog feeds the zerolog-based adapters (dispatcher, database, influx)
	zlog zerolog.Logger

	// Storage backend
	storageBackend storage.Backend
)

// setup wires logging, config, and the early dispatcher so lifecycle
// commands work before storage is initialized.
func setup() error {
	var err error

	WorkDir = os.Getenv("OVERLAY_HOME")
	if WorkDir == "" {
		WorkDir, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to resolve working directory: %w", err)
		}
	}

	// Initial logging to stderr until the log file is open
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(os.Stderr, nil, "info", nil)
	Logger = SlogManager.Logger()

	if err = config.Load(WorkDir); err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config")
	}

	logsDir := viper.GetString("logsDir")
	if _, err := os.Stat(logsDir); os.IsNotExist(err) {
		os.MkdirAll(logsDir, 0755)
	}

	LogFilePath = logging.LogFilePath(logsDir, RecorderName, SessionStartTime)
	if _, err := os.Stat(LogFilePath); err == nil {
		os.Rename(LogFilePath, LogFilePath+".old")
	}
	LogFile, err = os.OpenFile(LogFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", LogFilePath)
	}

	// Optional Graylog GELF sink
	var graylogWriter io.Writer
	if viper.GetBool("graylog.enabled") {
		graylogWriter, err = logging.NewGraylogWriter(viper.GetString("graylog.address"), RecorderName)
		if err != nil {
			Logger.Error("Failed to connect Graylog writer", "error", err)
			graylogWriter = nil
		}
	}

	// Optional OTel provider (needs the log file as a sink)
	if viper.GetBool("otel.enabled") {
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:      true,
			ServiceName:  "overlay-recorder",
			BatchTimeout: 5 * time.Second,
			LogWriter:    LogFile,
			Endpoint:     viper.GetString("otel.endpoint"),
			Insecure:     viper.GetBool("otel.insecure"),
		})
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
		}
	}

	sessionCtx = session.NewContext()
	annotationCache = cache.NewAnnotationCache()

	// Dynamic state attrs stamped on every record
	SlogManager.Context = func() []slog.Attr {
		attrs := []slog.Attr{}
		if s := sessionCtx.Get(); s != nil {
			attrs = append(attrs, slog.String("sessionTitle", s.Title))
		}
		if monitorService != nil {
			attrs = append(attrs, slog.Bool("statusRunning", monitorService.IsRunning()))
		}
		return attrs
	}

	// Re-setup logging with file output and optional sinks
	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}
	SlogManager.Setup(LogFile, graylogWriter, viper.GetString("logLevel"), otelLogProvider)
	Logger = SlogManager.Logger()
	Logger.Info("Logging to file", "path", LogFilePath)

	zlog = zerolog.New(LogFile).With().Timestamp().Logger()

	// Early dispatcher so lifecycle commands work before storage is up
	bridge.SetVersion(CurrentRecorderVersion)
	eventDispatcher, err = dispatcher.New(logging.NewDispatcherLogger(zlog))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}
	registerLifecycleHandlers(eventDispatcher)
	bridge.SetDispatcher(eventDispatcher)

	return nil
}

// registerLifecycleHandlers registers system command handlers with the dispatcher
func registerLifecycleHandlers(d *dispatcher.Dispatcher) {
	d.Register(":INIT:", func(e dispatcher.Event) (any, error) {
		go func() {
			if err := initStorage(); err != nil {
				Logger.Error("Storage initialization failed", "error", err)
			}
		}()
		return "ok", nil
	})

	d.Register(":VERSION:", func(e dispatcher.Event) (any, error) {
		return []string{CurrentRecorderVersion, BuildDate}, nil
	})

	d.Register(":GETDIR:LOG:", func(e dispatcher.Event) (any, error) {
		return LogFilePath, nil
	})

	d.Register(":PLAYER:VERSION:", func(e dispatcher.Event) (any, error) {
		if len(e.Args) > 0 {
			playerVersion = e.Args[0]
			Logger.Info("Player version", "version", playerVersion)
		}
		return "ok", nil
	})

	d.Register(":FLUSH:", func(e dispatcher.Event) (any, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := SlogManager.Flush(ctx); err != nil {
			Logger.Warn("Failed to flush logs", "error", err)
		}
		if OTelProvider != nil {
			if err := OTelProvider.Flush(ctx); err != nil {
				Logger.Warn("Failed to flush OTel data", "error", err)
			}
		}
		return "ok", nil
	})
}

func checkServerStatus() {
	if apiClient == nil {
		return
	}
	if err := apiClient.Healthcheck(); err != nil {
		Logger.Info("Review server is offline")
	} else {
		Logger.Info("Review server is online")
	}
}

func shutdown() {
	if monitorService != nil {
		monitorService.Stop()
	}
	if storageBackend != nil {
		if err := storageBackend.Close(); err != nil {
			Logger.Error("Failed to close storage backend", "error", err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			Logger.Warn("Failed to shut down OTel provider", "error", err)
		}
	}
	if LogFile != nil {
		LogFile.Close()
	}
}

func usage() {
	fmt.Println("usage: overlayd <command>")
	fmt.Println()
	fmt.Println("commands:")
	fmt.Println("  replay [file]      replay a command log (stdin when no file given)")
	fmt.Println("  getjson <ids...>   export stored sessions from postgres as JSON")
	fmt.Println("  reduce <ids...>    thin telemetry samples for stored sessions")
	fmt.Println("  migratebackups     load backup .db files into postgres")
}

func main() {
	if err := setup(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer shutdown()

	args := os.Args[1:]
	if len(args) == 0 {
		usage()
		return
	}

	switch strings.ToLower(args[0]) {
	case "replay":
		if err := initStorage(); err != nil {
			Logger.Error("Storage initialization failed", "error", err)
			os.Exit(1)
		}
		checkServerStatus()

		in := os.Stdin
		if len(args) > 1 {
			f, err := os.Open(args[1])
			if err != nil {
				Logger.Error("Failed to open command log", "path", args[1], "error", err)
				os.Exit(1)
			}
			defer f.Close()
			in = f
		}
		if err := replayCommandLog(in); err != nil {
			Logger.Error("Replay failed", "error", err)
			os.Exit(1)
		}

	case "getjson":
		if len(args) < 2 {
			fmt.Println("No session IDs provided.")
			return
		}
		if err := getSessionExport(args[1:]); err != nil {
			Logger.Error("Export failed", "error", err)
			os.Exit(1)
		}

	case "reduce":
		if len(args) < 2 {
			fmt.Println("No session IDs provided.")
			return
		}
		if err := reduceTelemetry(args[1:]); err != nil {
			Logger.Error("Reduce failed", "error", err)
			os.Exit(1)
		}

	case "migratebackups":
		if err := migrateBackups(); err != nil {
			Logger.Error("Backup migration failed", "error", err)
			os.Exit(1)
		}

	default:
		usage()
	}
}
