// Package logging builds the zerolog logger shared by every component.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	FormatText  = "text"
	FormatPlain = "plain"
	FormatJSON  = "json"
)

// Config selects the level and output format.
type Config struct {
	Level  string `yaml:"level" json:"level" validate:"omitempty,oneof=trace debug info warn error disabled"`
	Format string `yaml:"format" json:"format" validate:"omitempty,oneof=text plain json"`
}

// DefaultConfig logs info and above as text.
func DefaultConfig() Config {
	return Config{Level: "info", Format: FormatText}
}

// NewConsoleWriter parses the log format and creates an appropriate writer.
func NewConsoleWriter(w io.Writer, format string) (io.Writer, error) {
	switch strings.ToLower(format) {
	case "", FormatText, FormatPlain:
		return &zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
			FormatLevel: func(i interface{}) string {
				if ll, ok := i.(string); ok {
					return strings.ToUpper(ll)
				}
				return "????"
			},
		}, nil

	case FormatJSON:
		return w, nil

	default:
		return nil, fmt.Errorf("unsupported log format: %s", format)
	}
}

// New builds a logger writing to stderr.
func New(cfg Config) (zerolog.Logger, error) {
	return NewWith(os.Stderr, cfg)
}

// NewWith builds a logger writing to w.
func NewWith(w io.Writer, cfg Config) (zerolog.Logger, error) {
	out, err := NewConsoleWriter(w, cfg.Format)
	if err != nil {
		return zerolog.Nop(), err
	}

	level := zerolog.InfoLevel
	if cfg.Level != "" {
		level, err = zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}
