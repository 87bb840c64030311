// ABOUTME: Structured logger construction on charmbracelet/log.
// ABOUTME: Logs go to stderr so stdout stays clean for CLI output and MCP stdio.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// ParseLevel converts a config level name into a log.Level.
func ParseLevel(name string) (log.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return log.DebugLevel, nil
	case "", "info":
		return log.InfoLevel, nil
	case "warn", "warning":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	case "fatal":
		return log.FatalLevel, nil
	}
	return log.InfoLevel, fmt.Errorf("unknown log level: %q", name)
}

// New builds a logger writing to w at the named level. An unknown level falls
// back to info and is reported on the returned logger.
func New(w io.Writer, level string) *log.Logger {
	lvl, err := ParseLevel(level)
	logger := log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Prefix:          "runlog",
		ReportTimestamp: true,
	})
	if err != nil {
		logger.Warn("falling back to info", "err", err)
	}
	return logger
}

// Default builds a stderr logger at the named level.
func Default(level string) *log.Logger {
	return New(os.Stderr, level)
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}
