package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New creates a *slog.Logger writing to stderr and optionally to logFile.
// format selects "text" or "json" (the default). It also sets the logger as
// the slog default so package-level slog calls work. The returned cleanup
// func closes the log file if one was opened; callers must defer it.
func New(level, format, logFile string) (*slog.Logger, func(), error) {
	return build(level, format, logFile, true)
}

// NewFileOnly is like New but never writes to stderr. Programs that own the
// terminal use it; with an empty logFile all output is discarded.
func NewFileOnly(level, format, logFile string) (*slog.Logger, func(), error) {
	return build(level, format, logFile, false)
}

func build(level, format, logFile string, stderr bool) (*slog.Logger, func(), error) {
	var writers []io.Writer
	if stderr {
		writers = append(writers, os.Stderr)
	}
	cleanup := func() {}

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return nil, nil, err
		}
		writers = append(writers, f)
		cleanup = func() { _ = f.Close() }
	}

	w := io.Discard
	if len(writers) > 0 {
		w = io.MultiWriter(writers...)
	}
	logger := slog.New(newHandler(w, level, format))
	slog.SetDefault(logger)
	return logger, cleanup, nil
}

func newHandler(w io.Writer, level, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
