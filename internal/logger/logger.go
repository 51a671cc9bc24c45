package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the key/value logging interface used across the module.
// Components should accept a Logger in their constructor; NewNop() is the
// default when none is provided.
type Logger interface {
	Debug(msg string, kv ...any)
	Info(msg string, kv ...any)
	Warn(msg string, kv ...any)
	Error(msg string, kv ...any)
	Err(err error, msg string, kv ...any)
}

// Config controls logger construction.
type Config struct {
	Level   string   // debug, info, warn, error
	Writers []string // console, file
	File    string   // path for the file writer
}

type zl struct {
	l zerolog.Logger
}

// New builds a zerolog-backed Logger. The file writer rotates via lumberjack.
func New(cfg Config) Logger {
	var outs []io.Writer
	for _, w := range cfg.Writers {
		switch w {
		case "file":
			path := cfg.File
			if path == "" {
				path = "mockwire.log"
			}
			outs = append(outs, &lumberjack.Logger{
				Filename:   path,
				MaxSize:    50, // MB
				MaxBackups: 3,
			})
		case "console":
			outs = append(outs, zerolog.ConsoleWriter{Out: os.Stderr})
		}
	}
	if len(outs) == 0 {
		outs = append(outs, zerolog.ConsoleWriter{Out: os.Stderr})
	}
	lvl := parseLevel(cfg.Level)
	base := zerolog.New(zerolog.MultiLevelWriter(outs...)).Level(lvl).With().Timestamp().Logger()
	return &zl{l: base}
}

// NewNop returns a Logger that discards everything.
func NewNop() Logger {
	return &zl{l: zerolog.Nop()}
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (z *zl) Debug(msg string, kv ...any) { z.l.Debug().Fields(kv).Msg(msg) }
func (z *zl) Info(msg string, kv ...any)  { z.l.Info().Fields(kv).Msg(msg) }
func (z *zl) Warn(msg string, kv ...any)  { z.l.Warn().Fields(kv).Msg(msg) }
func (z *zl) Error(msg string, kv ...any) { z.l.Error().Fields(kv).Msg(msg) }

func (z *zl) Err(err error, msg string, kv ...any) {
	z.l.Error().Err(err).Fields(kv).Msg(msg)
}
