package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/creaselab/overlay/pkg/bridge"
)

// replayCommandLog feeds a newline-delimited command log through the bridge.
// Each line is `:COMMAND:|arg1|arg2|...`; blank lines and lines starting
// with # are skipped. Error responses are logged but do not stop the replay.
func replayCommandLog(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	start := time.Now()
	lineNo := 0
	errCount := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, "|")
		command := parts[0]
		var args []string
		if len(parts) > 1 {
			args = parts[1:]
		}

		response := bridge.Call(command, args)
		if strings.HasPrefix(response, `["error"`) {
			errCount++
			Logger.Warn("Command failed during replay", "line", lineNo, "command", command, "response", response)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading command log: %w", err)
	}

	// Let buffered handlers (telemetry) drain before reporting
	time.Sleep(500 * time.Millisecond)

	Logger.Info("Replay complete",
		"lines", lineNo,
		"errors", errCount,
		"duration", time.Since(start))
	return nil
}
