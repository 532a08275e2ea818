package bridge

import (
	"errors"
	"sync"

	"github.com/creaselab/overlay/internal/dispatcher"
)

// Callback receives asynchronous notifications pushed from the engine to the
// host player: removal confirmations to apply, text entry prompts to open.
type Callback func(name string, command string, data ...string)

// Config is the central configuration used by this package
var Config configStruct

type configStruct struct {
	// version is the value returned for :VERSION: before any handler runs
	version string

	// dispatcher handles command routing
	dispatcher *dispatcher.Dispatcher

	mu       sync.RWMutex
	callback Callback
}

// SetVersion sets the version string reported to the host
func SetVersion(version string) {
	Config.version = version
}

// Version returns the version string reported to the host
func Version() string {
	return Config.version
}

// SetDispatcher sets the event dispatcher for handling commands
func SetDispatcher(d *dispatcher.Dispatcher) {
	Config.dispatcher = d
}

// GetDispatcher returns the configured dispatcher, or nil if not set
func GetDispatcher() *dispatcher.Dispatcher {
	return Config.dispatcher
}

// SetCallback registers the host's notification sink. Passing nil detaches it.
func SetCallback(cb Callback) {
	Config.mu.Lock()
	defer Config.mu.Unlock()
	Config.callback = cb
}

// WriteHostCallback pushes a notification to the host player. Returns an
// error if no callback has been registered.
func WriteHostCallback(name string, command string, data ...string) error {
	Config.mu.RLock()
	cb := Config.callback
	Config.mu.RUnlock()
	if cb == nil {
		return errors.New("no host callback registered")
	}
	cb(name, command, data...)
	return nil
}
