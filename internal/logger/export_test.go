package logger

import (
	"io"
	"log/slog"
	"time"
)

// NewJSONLogger returns a standalone logger emitting the file output JSON format to w.
func NewJSONLogger(w io.Writer, level LogLevel, tz *time.Location) Logger {
	slogLevel := parseSlogLevel(level)
	return &moduleLogger{
		logger:   slog.New(newJSONHandler(w, slogLevel, tz)),
		level:    slogLevel,
		timezone: tz,
	}
}
