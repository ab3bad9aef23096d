// Package logging builds the structured loggers used by trainers and
// the command line
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/JelinR/habitat-lab/config"
)

// Log formats
const (
	FormatText = "text"
	FormatJSON = "json"
)

// New returns a logger writing to w at the level and in the format
// given by c
func New(w io.Writer, c config.LoggingConfig) (*slog.Logger, error) {
	level, err := ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(c.Format) {
	case FormatText, "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("new: unknown log format %q", c.Format)
	}
}

// ParseLevel parses a level name such as "debug" or "warn"
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("parseLevel: %w", err)
	}
	return level, nil
}

// Discard returns a logger that drops all records
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
