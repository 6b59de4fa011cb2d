// Package logging builds the zerolog logger shared by cuitarget commands and services.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	FormatJSON = "json"
	FormatText = "text"
)

// New returns a logger writing to stderr. Stdout is reserved for command output.
func New(level, format string) zerolog.Logger {
	return NewWithWriter(level, format, os.Stderr)
}

// NewWithWriter returns a logger at the given level writing JSON or console text to w.
// Unknown levels fall back to info; any format other than json is rendered as text.
func NewWithWriter(level, format string, w io.Writer) zerolog.Logger {
	var out io.Writer = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	if strings.EqualFold(format, FormatJSON) {
		out = w
	}

	return zerolog.New(out).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Logger()
}

// ParseLevel parses a zerolog level name. Empty or unknown names give info.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.TrimSpace(level))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
