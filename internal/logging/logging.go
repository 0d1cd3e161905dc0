// Package logging configures the process-wide leveled logger and keeps a
// bounded in-memory ring of recent records for the dashboard log view.
package logging

import (
	"fmt"
	"os"
	"strings"

	"github.com/op/go-logging"
)

const memorySize = 200

var format = logging.MustStringFormatter(
	`%{time:15:04:05.000} %{level:.4s} %{module} %{message}`,
)

var memory *logging.MemoryBackend

// Setup installs a stderr backend plus the memory ring at the given level.
// Call once from main before anything logs.
func Setup(level string) error {
	lvl, err := logging.LogLevel(strings.ToUpper(strings.TrimSpace(level)))
	if err != nil {
		lvl = logging.INFO
	}

	console := logging.NewBackendFormatter(logging.NewLogBackend(os.Stderr, "", 0), format)
	memory = logging.NewMemoryBackend(memorySize)

	leveled := logging.SetBackend(console, memory)
	leveled.SetLevel(lvl, "")
	return nil
}

// Recent returns up to n of the latest buffered log lines, oldest first.
func Recent(n int) []string {
	if memory == nil || n <= 0 {
		return nil
	}
	lines := make([]string, 0, memorySize)
	for node := memory.Head(); node != nil; node = node.Next() {
		r := node.Record
		lines = append(lines, fmt.Sprintf("%s [%s] %s",
			r.Time.Format("15:04:05"), r.Level, r.Message()))
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
