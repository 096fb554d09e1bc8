// Package logger configures the global zerolog logger.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Config represents logger configuration.
type Config struct {
	Output string // "stdout", "stderr" or "file"
	Level  string // "debug", "info", "warn", "error"
	File   string // Log file path when Output is "file"
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Init initializes the global zerolog logger. Consoles get colored output,
// files get JSON. The returned closer releases the log file.
func Init(cfg Config) (io.Closer, error) {
	level := ParseLevel(cfg.Level)

	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.TimeOnly
	zerolog.CallerMarshalFunc = shortCaller

	var (
		logger zerolog.Logger
		closer io.Closer = nopCloser{}
	)
	switch out := strings.ToLower(cfg.Output); out {
	case "stdout", "", "stderr":
		w := os.Stdout
		if out == "stderr" {
			w = os.Stderr
		}
		logger = consoleLogger(w, level)
	default:
		if cfg.File == "" {
			return nil, errors.New("log file path is required for file output")
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, errors.Wrapf(err, "open log file %s", cfg.File)
		}
		logger = fileLogger(f, level)
		closer = f
	}

	zerolog.DefaultContextLogger = &logger
	zlog.Logger = logger
	return closer, nil
}

func consoleLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	if level > zerolog.DebugLevel {
		return zerolog.New(cw).With().Timestamp().Logger()
	}
	// Caller only at debug
	cw.PartsOrder = []string{"time", "level", "message", "caller"}
	cw.FormatCaller = func(i any) string {
		s, _ := i.(string)
		return "(" + s + ")"
	}
	return zerolog.New(cw).With().Timestamp().Caller().Logger()
}

func fileLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	ctx := zerolog.New(w).With().Timestamp()
	if level <= zerolog.DebugLevel {
		ctx = ctx.Caller()
	}
	return ctx.Logger()
}

// shortCaller keeps the parent directory and file name.
func shortCaller(_ uintptr, file string, line int) string {
	parts := strings.Split(file, string(filepath.Separator))
	if len(parts) > 1 {
		return filepath.Join(parts[len(parts)-2:]...) + ":" + strconv.Itoa(line)
	}
	return filepath.Base(file) + ":" + strconv.Itoa(line)
}

// ParseLevel parses a level name. Unknown names yield info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
