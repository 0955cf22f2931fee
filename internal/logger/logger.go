// Package logger configures the process-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup points the global logger at stderr and, when file is set, a rotating log file.
// It returns a closer for the file sink.
func Setup(level, file string) io.Closer {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339

	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}

	if file == "" {
		log.Logger = zerolog.New(console).With().Timestamp().Logger()
		return nopCloser{}
	}

	_ = os.MkdirAll(filepath.Dir(file), 0755)
	rotating := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}

	log.Logger = zerolog.New(zerolog.MultiLevelWriter(console, rotating)).With().Timestamp().Logger()
	return rotating
}

// For returns a child logger tagged with a component name.
func For(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
