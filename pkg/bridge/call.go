// Package bridge is the string-command surface the host player runtime
// calls into. Commands arrive as ":VERB:NOUN:" strings with string-slice
// arguments; responses are compact JSON status arrays, ["ok", ...] or
// ["error", message].
package bridge

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/creaselab/overlay/internal/dispatcher"
)

// Call routes a host command through the dispatcher and returns the
// formatted response. Unknown commands return an error response rather
// than failing the host call.
func Call(command string, args []string) string {
	// Built-in timestamp command, available before any wiring
	if command == ":TIMESTAMP:" {
		return getTimestamp()
	}

	d := Config.dispatcher
	if d == nil || !d.HasHandler(command) {
		return fmt.Sprintf(`["error", %s]`, quote("no handler registered for "+command))
	}

	result, err := d.Dispatch(dispatcher.Event{
		Command:   command,
		Args:      args,
		Timestamp: time.Now(),
	})
	return formatResponse(result, err)
}

// formatResponse formats a dispatcher result for the host. All payloads are
// JSON-encoded; error messages routinely carry quotes (strconv wraps the
// offending input in them) and must not break the bracket framing.
func formatResponse(result any, err error) string {
	if err != nil {
		return fmt.Sprintf(`["error", %s]`, quote(err.Error()))
	}
	if result == nil {
		return `["ok"]`
	}
	if s, ok := result.(string); ok {
		return fmt.Sprintf(`["ok", %s]`, quote(s))
	}
	encoded, jsonErr := json.Marshal(result)
	if jsonErr != nil {
		return fmt.Sprintf(`["ok", %s]`, quote(fmt.Sprintf("%v", result)))
	}
	return fmt.Sprintf(`["ok", %s]`, encoded)
}

// quote JSON-encodes a string, including the surrounding double quotes.
func quote(s string) string {
	encoded, _ := json.Marshal(s)
	return string(encoded)
}

func getTimestamp() string {
	return fmt.Sprintf("%d", time.Now().UTC().UnixNano())
}
