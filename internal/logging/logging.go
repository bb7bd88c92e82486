// ABOUTME: Process-wide structured logger setup
// ABOUTME: Console output, optional log file, file-only while the TUI owns the screen
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// Options controls logger setup
type Options struct {
	Level   string
	File    string
	Console io.Writer // defaults to os.Stderr
	Quiet   bool      // log to File only
}

// Setup builds a logger, installs it as the default and returns it with a
// closer for the log file.
func Setup(opts Options) (*log.Logger, func() error, error) {
	level, err := log.ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	closer := func() error { return nil }
	var w io.Writer = console

	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		closer = f.Close
		if opts.Quiet {
			w = f
		} else {
			w = io.MultiWriter(console, f)
		}
	} else if opts.Quiet {
		w = io.Discard
	}

	logger := log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
	})
	log.SetDefault(logger)

	return logger, closer, nil
}
