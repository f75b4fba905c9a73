package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// SlogLogger writes sanitized records through log/slog
type SlogLogger struct {
	logger    *slog.Logger
	level     *slog.LevelVar
	sanitizer *Sanitizer
	writers   []io.WriteCloser
}

// NewSlogLogger builds a logger for the configured outputs.
// With no outputs it writes to stderr.
func NewSlogLogger(config Config) (*SlogLogger, error) {
	var (
		writers   []io.Writer
		closeable []io.WriteCloser
	)

	for _, output := range config.Outputs {
		switch output.Type {
		case OutputStdout, OutputStderr:
			w := output.Writer
			if w == nil {
				if output.Type == OutputStdout {
					w = os.Stdout
				} else {
					w = os.Stderr
				}
			}
			writers = append(writers, w)
			if wc, ok := w.(io.WriteCloser); ok && wc != os.Stdout && wc != os.Stderr {
				closeable = append(closeable, wc)
			}
		case OutputFile:
			if !config.File.Enabled {
				continue
			}
			fw, err := createFileWriter(config.File)
			if err != nil {
				return nil, fmt.Errorf("failed to create file writer: %w", err)
			}
			writers = append(writers, fw)
			closeable = append(closeable, fw)
		}
	}

	if len(writers) == 0 {
		writers = append(writers, os.Stderr)
	}

	level := new(slog.LevelVar)
	level.Set(convertLevel(config.Level))
	opts := &slog.HandlerOptions{Level: level}

	out := io.MultiWriter(writers...)
	var handler slog.Handler
	if config.Format == FormatJSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return &SlogLogger{
		logger:    slog.New(handler),
		level:     level,
		sanitizer: NewSanitizer(),
		writers:   closeable,
	}, nil
}

// createFileWriter returns a size-rotated log file
func createFileWriter(config FileConfig) (io.WriteCloser, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("log file path cannot be empty")
	}

	if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	return &lumberjack.Logger{
		Filename:   config.Path,
		MaxSize:    config.MaxSizeMB,
		MaxAge:     config.MaxAgeDays,
		MaxBackups: config.MaxBackups,
		Compress:   config.Compress,
	}, nil
}

func convertLevel(level Level) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetLevel changes the minimum level; children follow
func (l *SlogLogger) SetLevel(level Level) {
	l.level.Set(convertLevel(level))
}

func (l *SlogLogger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args) }
func (l *SlogLogger) Info(msg string, args ...any)  { l.log(slog.LevelInfo, msg, args) }
func (l *SlogLogger) Warn(msg string, args ...any)  { l.log(slog.LevelWarn, msg, args) }
func (l *SlogLogger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args) }

func (l *SlogLogger) log(level slog.Level, msg string, args []any) {
	ctx := context.Background()
	if !l.logger.Enabled(ctx, level) {
		return
	}
	l.logger.Log(ctx, level, l.sanitizer.Sanitize(msg), l.sanitizer.SanitizeArgs(args)...)
}

// With returns a child sharing the level and outputs.
// Children do not own the writers, so Shutdown on a child is a no-op.
func (l *SlogLogger) With(args ...any) Logger {
	return &childLogger{parent: l, logger: l.logger.With(l.sanitizer.SanitizeArgs(args)...)}
}

// Sync is a no-op: slog handlers write through and lumberjack does not buffer
func (l *SlogLogger) Sync() error {
	return nil
}

// Shutdown closes every owned writer and returns the last close error
func (l *SlogLogger) Shutdown() error {
	var lastErr error
	for _, w := range l.writers {
		if err := w.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

type childLogger struct {
	parent *SlogLogger
	logger *slog.Logger
}

func (c *childLogger) Debug(msg string, args ...any) { c.log(slog.LevelDebug, msg, args) }
func (c *childLogger) Info(msg string, args ...any)  { c.log(slog.LevelInfo, msg, args) }
func (c *childLogger) Warn(msg string, args ...any)  { c.log(slog.LevelWarn, msg, args) }
func (c *childLogger) Error(msg string, args ...any) { c.log(slog.LevelError, msg, args) }

func (c *childLogger) log(level slog.Level, msg string, args []any) {
	ctx := context.Background()
	if !c.logger.Enabled(ctx, level) {
		return
	}
	s := c.parent.sanitizer
	c.logger.Log(ctx, level, s.Sanitize(msg), s.SanitizeArgs(args)...)
}

func (c *childLogger) With(args ...any) Logger {
	return &childLogger{parent: c.parent, logger: c.logger.With(c.parent.sanitizer.SanitizeArgs(args)...)}
}

func (c *childLogger) Sync() error     { return nil }
func (c *childLogger) Shutdown() error { return nil }
