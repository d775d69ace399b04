package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	slogmulti "github.com/samber/slog-multi"
)

// LogFile is written to the base directory of every sweep.
const LogFile = "sweepgrid.log"

// newHandler builds the console handler for the given level and format
// (text or json).
func newHandler(levelStr, formatStr string, outW io.Writer) slog.Handler {
	handlerOpts := &slog.HandlerOptions{Level: parseLevel(levelStr)}
	if formatStr == "json" {
		return slog.NewJSONHandler(outW, handlerOpts)
	}
	return slog.NewTextHandler(outW, handlerOpts)
}

func parseLevel(levelStr string) slog.Level {
	switch levelStr {
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

// withLogFile returns a logger that writes to the console handler and to a
// JSON log file in dir. The returned closer releases the file.
func withLogFile(console slog.Handler, dir string) (*slog.Logger, io.Closer, error) {
	f, err := os.OpenFile(filepath.Join(dir, LogFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	file := slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(slogmulti.Fanout(console, file)), f, nil
}
