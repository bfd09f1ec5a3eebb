// Package log configures the process-wide structured logger.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

type Options struct {
	JSON    bool
	Verbose bool
	Quiet   bool
}

// New builds the logger the CLI hands to every component. Verbose wins
// over Quiet when both are set.
func New(opts Options) *slog.Logger {
	level := slog.LevelInfo
	if opts.Quiet {
		level = slog.LevelWarn
	}
	if opts.Verbose {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// NewFileLogger returns a logger appending text records to path. The
// returned closer releases the underlying file.
func NewFileLogger(path string) (*slog.Logger, io.Closer, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	return logger, f, nil
}
