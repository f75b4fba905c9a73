package logger

import (
	"fmt"
	"sync"
)

var (
	defaultLogger *SlogLogger
	mu            sync.RWMutex
)

// Init installs the global logger.
// It fails if a logger is already installed; call Shutdown first.
func Init(config Config) error {
	mu.Lock()
	defer mu.Unlock()

	if defaultLogger != nil {
		return fmt.Errorf("logger already initialized; call Shutdown() before re-initializing")
	}

	logger, err := NewSlogLogger(config)
	if err != nil {
		return fmt.Errorf("failed to create slog logger: %w", err)
	}

	defaultLogger = logger
	return nil
}

// Get returns the global logger, or a NullLogger before Init
func Get() Logger {
	mu.RLock()
	defer mu.RUnlock()

	if defaultLogger == nil {
		return &NullLogger{}
	}
	return defaultLogger
}

// With returns a child of the global logger carrying args
func With(args ...any) Logger {
	return Get().With(args...)
}

// Sync flushes the global logger
func Sync() error {
	return Get().Sync()
}

// SetLevel changes the minimum level of the global logger and its children
func SetLevel(level Level) {
	mu.RLock()
	defer mu.RUnlock()

	if defaultLogger != nil {
		defaultLogger.SetLevel(level)
	}
}

// Shutdown closes the global logger's files and uninstalls it
func Shutdown() error {
	mu.Lock()
	logger := defaultLogger
	defaultLogger = nil
	mu.Unlock()

	if logger == nil {
		return nil
	}
	return logger.Shutdown()
}

// NullLogger discards everything
type NullLogger struct{}

func (n *NullLogger) Debug(msg string, args ...any) {}
func (n *NullLogger) Info(msg string, args ...any)  {}
func (n *NullLogger) Warn(msg string, args ...any)  {}
func (n *NullLogger) Error(msg string, args ...any) {}
func (n *NullLogger) With(args ...any) Logger       { return n }
func (n *NullLogger) Sync() error                   { return nil }
func (n *NullLogger) Shutdown() error               { return nil }
