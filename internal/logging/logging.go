// Package logging builds the leveled loggers every command shares.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// New returns a logger writing to w at the named level. Unknown levels
// fall back to info.
func New(level string, w io.Writer) *log.Logger {
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Prefix:          "gtfo",
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
	})
}

// Open returns a logger for path, creating its directory, or a stderr
// logger when path is empty. The returned closer releases the file.
func Open(level, path string) (*log.Logger, io.Closer, error) {
	if path == "" {
		return New(level, os.Stderr), io.NopCloser(nil), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, err
	}
	return New(level, f), f, nil
}
