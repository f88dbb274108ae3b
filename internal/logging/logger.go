// Package logging builds the process-wide slog.Logger: text records on stdout
// and, optionally, a size-rotated log file.
package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"sixtylens/internal/config"
)

const bytesPerMB = 1 << 20

// New returns the root logger and a closer for the underlying file, if any.
func New(cfg config.LogConfig) (*slog.Logger, io.Closer, error) {
	out := io.Writer(os.Stdout)
	var closer io.Closer = nopCloser{}

	if cfg.File != "" {
		fw, err := NewRotatingFileWriter(cfg.File, int64(cfg.MaxSizeMB)*bytesPerMB, cfg.MaxBackups)
		if err != nil {
			return nil, nil, err
		}
		out = io.MultiWriter(os.Stdout, fw)
		closer = fw
	}

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: ParseLevel(cfg.Level)})
	return slog.New(handler), closer, nil
}

// StdLogger adapts logger for APIs that expect a *log.Logger, such as chi's
// request logger.
func StdLogger(logger *slog.Logger) *log.Logger {
	return slog.NewLogLogger(logger.Handler(), slog.LevelInfo)
}

func ParseLevel(val string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(val)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
