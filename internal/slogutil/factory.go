package slogutil

import (
	"io"
	"log/slog"

	"zettel/internal/config"
)

// LoggerFactory builds loggers from the logging config.
// Precedence for the level: CLI flag > config > default (info).
type LoggerFactory struct {
	config   config.LoggingConfig
	cliLevel *slog.Level
	closers  []io.Closer
}

// NewLoggerFactory creates a new logger factory. cliLevel is nil when no
// verbosity flag was given.
func NewLoggerFactory(cfg config.LoggingConfig, cliLevel *slog.Level) *LoggerFactory {
	return &LoggerFactory{
		config:   cfg,
		cliLevel: cliLevel,
	}
}

// ServerLogger writes to console and, when logging.file is set, also to that
// file with size-based rotation. A file that cannot be opened is an error:
// the operator asked for it explicitly.
func (f *LoggerFactory) ServerLogger(console io.Writer) (*slog.Logger, error) {
	level := f.EffectiveLevel()
	consoleHandler := NewHandler(console, &slog.HandlerOptions{Level: level})
	if f.config.File == "" {
		return slog.New(consoleHandler), nil
	}

	fileLogger, closer, err := f.createFileLogger(f.config.File, level)
	if err != nil {
		return nil, err
	}
	f.closers = append(f.closers, closer)
	return slog.New(NewTeeHandler(consoleHandler, fileLogger.Handler())), nil
}

// CLILogger is used by one-shot commands. It never writes to the log file.
func (f *LoggerFactory) CLILogger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if f.cliLevel != nil {
		level = *f.cliLevel
	}
	return NewLogger(w, level)
}

// createFileLogger creates a file logger with optional rotation based on config
func (f *LoggerFactory) createFileLogger(path string, level slog.Level) (*slog.Logger, io.Closer, error) {
	if f.config.MaxSize != "" {
		return NewFileLoggerWithRotation(path, level, f.config.MaxSize, f.config.MaxBackups)
	}
	return NewFileLogger(path, level)
}

// EffectiveLevel returns the level loggers from this factory use.
func (f *LoggerFactory) EffectiveLevel() slog.Level {
	if f.cliLevel != nil {
		return *f.cliLevel
	}
	if f.config.Level != "" {
		return LevelFromString(f.config.Level)
	}
	return slog.LevelInfo
}

// Close closes all open log files.
func (f *LoggerFactory) Close() error {
	var firstErr error
	for _, c := range f.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.closers = nil
	return firstErr
}
