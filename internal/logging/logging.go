// Package logging builds the zerolog loggers used by the TUI and the CLI.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ParseLevel maps a config level name to a zerolog level. Unknown names
// mean info.
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Console returns a human-readable logger for CLI commands. Colour is only
// used when writing to a file such as stderr.
func Console(w io.Writer, level string) zerolog.Logger {
	_, isFile := w.(*os.File)
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen, NoColor: !isFile}
	return zerolog.New(out).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// File returns a JSON logger appending to path. The TUI owns the terminal,
// so it logs here instead of stderr. The returned closer releases the file.
func File(path, level string) (zerolog.Logger, io.Closer, error) {
	if path == "" {
		return zerolog.Nop(), nopCloser{}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return zerolog.Nop(), nil, errors.Wrap(err, "create log directory")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return zerolog.Nop(), nil, errors.Wrapf(err, "open log file %s", path)
	}
	l := zerolog.New(f).Level(ParseLevel(level)).With().Timestamp().Logger()
	return l, f, nil
}

// Component tags l with the name of the part of the program logging.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
