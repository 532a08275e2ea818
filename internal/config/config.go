package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SqliteConfig holds the in-memory SQLite backend's dump settings
type SqliteConfig struct {
	DumpIntervalSec int    `json:"dumpIntervalSec" mapstructure:"dumpIntervalSec"`
	DumpPath        string `json:"dumpPath" mapstructure:"dumpPath"`
}

// WebsocketConfig holds the streaming backend's connection settings
type WebsocketConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// StorageConfig selects and configures the storage backend
type StorageConfig struct {
	Type      string          `json:"type" mapstructure:"type"`
	Memory    MemoryConfig    `json:"memory" mapstructure:"memory"`
	Sqlite    SqliteConfig    `json:"sqlite" mapstructure:"sqlite"`
	Websocket WebsocketConfig `json:"websocket" mapstructure:"websocket"`
}

// OverlayConfig holds the annotation overlay tuning knobs
type OverlayConfig struct {
	VisibilityWindow float64 `json:"visibilityWindow" mapstructure:"visibilityWindow"`
	TextHitRadius    float64 `json:"textHitRadius" mapstructure:"textHitRadius"`
	StrokeHitRadius  float64 `json:"strokeHitRadius" mapstructure:"strokeHitRadius"`
	SegmentHitTest   bool    `json:"segmentHitTest" mapstructure:"segmentHitTest"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	// Set default values
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./overlaylogs")
	viper.SetDefault("defaultTag", "Net session")

	viper.SetDefault("overlay.visibilityWindow", 0.1)
	viper.SetDefault("overlay.textHitRadius", 30.0)
	viper.SetDefault("overlay.strokeHitRadius", 10.0)
	viper.SetDefault("overlay.segmentHitTest", false)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./sessions")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.dumpIntervalSec", 60)
	viper.SetDefault("storage.sqlite.dumpPath", "./sessions/overlay.db")
	viper.SetDefault("storage.websocket.url", "ws://localhost:5001/recorder")
	viper.SetDefault("storage.websocket.secret", "")

	viper.SetDefault("api.serverUrl", "http://localhost:5000")
	viper.SetDefault("api.apiKey", "")

	viper.SetDefault("club.name", "Crease Lab")
	viper.SetDefault("club.description", "Cricket training sessions")
	viper.SetDefault("club.website", "")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "overlay")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "overlay-metrics")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetConfigName("overlay_recorder.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// Overlay returns the overlay tuning from config.
func Overlay() OverlayConfig {
	return OverlayConfig{
		VisibilityWindow: viper.GetFloat64("overlay.visibilityWindow"),
		TextHitRadius:    viper.GetFloat64("overlay.textHitRadius"),
		StrokeHitRadius:  viper.GetFloat64("overlay.strokeHitRadius"),
		SegmentHitTest:   viper.GetBool("overlay.segmentHitTest"),
	}
}

// Storage returns the storage backend selection from config.
func Storage() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		Sqlite: SqliteConfig{
			DumpIntervalSec: viper.GetInt("storage.sqlite.dumpIntervalSec"),
			DumpPath:        viper.GetString("storage.sqlite.dumpPath"),
		},
		Websocket: WebsocketConfig{
			URL:    viper.GetString("storage.websocket.url"),
			Secret: viper.GetString("storage.websocket.secret"),
		},
	}
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}
