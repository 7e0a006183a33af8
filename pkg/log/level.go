package log

import (
	"errors"
	"strings"

	"github.com/rs/zerolog"
)

// Level represents the severity of a log entry.
type Level int8

const (
	Trace = Level(zerolog.TraceLevel)
	Debug = Level(zerolog.DebugLevel)
	Info  = Level(zerolog.InfoLevel)
	Warn  = Level(zerolog.WarnLevel)
	Error = Level(zerolog.ErrorLevel)
)

// String returns the upper-case name of the level.
func (l Level) String() string {
	if l < Trace || l > Error {
		return "UNKNOWN"
	}
	return strings.ToUpper(zerolog.Level(l).String())
}

// ErrInvalidLevel is returned when parsing an unknown level string.
var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel parses a level name, case-insensitively. "warning" is accepted
// as an alias of warn.
func ParseLevel(s string) (Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "warning" {
		name = "warn"
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil || name == "" || lvl < zerolog.TraceLevel || lvl > zerolog.ErrorLevel {
		return Info, ErrInvalidLevel
	}
	return Level(lvl), nil
}
