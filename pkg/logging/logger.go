// Copyright (C) 2025 Karmadev AB (platform@karmadev.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging provides structured logging for karma-workflows components.
//
// The logger is built on Go's standard library slog package with two
// destinations:
//
//   - Default: stderr output for CLI compatibility (follows Unix conventions)
//   - Optional: JSON file logging with automatic directory creation
//
// User-facing output never goes through this package; that is pkg/ux's job.
// The log is for operators debugging a deployment after the fact.
//
// Basic usage:
//
//	logger := logging.Default()
//	logger.Info("pushing tag", "tag", tagName, "commit", sha)
//	logger.Error("push rejected", "error", err)
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level represents a log severity level.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) toSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel converts a string to a Level, defaulting to Info.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Config controls logger construction.
type Config struct {
	// Level is the minimum severity to emit.
	Level Level

	// LogDir enables file logging when non-empty. Supports ~ expansion.
	// Files are named {service}_{date}.log and written as JSON lines.
	LogDir string

	// Service names the component writing the log (e.g. "cli").
	Service string

	// Stderr overrides the default stderr destination, mainly for tests.
	Stderr io.Writer
}

// Logger wraps slog with optional file output.
type Logger struct {
	slogger *slog.Logger
	file    *os.File
	mu      sync.Mutex
}

// New creates a Logger from the given config.
//
// When cfg.LogDir is set, the directory is created if missing and a JSON
// handler is attached alongside the stderr text handler. File open failures
// degrade to stderr-only logging rather than failing the invocation.
func New(cfg Config) *Logger {
	stderr := cfg.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level.toSlogLevel()}
	handlers := []slog.Handler{slog.NewTextHandler(stderr, opts)}

	var file *os.File
	if cfg.LogDir != "" {
		dir := expandPath(cfg.LogDir)
		if err := os.MkdirAll(dir, 0755); err == nil {
			service := cfg.Service
			if service == "" {
				service = "karma"
			}
			name := fmt.Sprintf("%s_%s.log", service, time.Now().Format("2006-01-02"))
			f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
			if err == nil {
				file = f
				handlers = append(handlers, slog.NewJSONHandler(f, opts))
			}
		}
	}

	var handler slog.Handler
	if len(handlers) == 1 {
		handler = handlers[0]
	} else {
		handler = &multiHandler{handlers: handlers}
	}

	l := &Logger{slogger: slog.New(handler), file: file}
	if cfg.Service != "" {
		l.slogger = l.slogger.With("service", cfg.Service)
	}
	return l
}

var (
	defaultLogger *Logger
	defaultOnce   sync.Once
)

// Default returns the shared stderr logger, honoring KARMA_LOG_LEVEL and,
// when KARMA_LOG_DIR is set, mirroring records to a JSON file there.
func Default() *Logger {
	defaultOnce.Do(func() {
		defaultLogger = New(Config{
			Level:   ParseLevel(os.Getenv("KARMA_LOG_LEVEL")),
			LogDir:  os.Getenv("KARMA_LOG_DIR"),
			Service: "cli",
		})
	})
	return defaultLogger
}

// Debug logs at debug level with key/value pairs.
func (l *Logger) Debug(msg string, args ...any) { l.slogger.Debug(msg, args...) }

// Info logs at info level with key/value pairs.
func (l *Logger) Info(msg string, args ...any) { l.slogger.Info(msg, args...) }

// Warn logs at warn level with key/value pairs.
func (l *Logger) Warn(msg string, args ...any) { l.slogger.Warn(msg, args...) }

// Error logs at error level with key/value pairs.
func (l *Logger) Error(msg string, args ...any) { l.slogger.Error(msg, args...) }

// With returns a Logger carrying additional context attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{slogger: l.slogger.With(args...), file: nil}
}

// Slog exposes the underlying slog.Logger for libraries that want one.
func (l *Logger) Slog() *slog.Logger { return l.slogger }

// Close flushes and closes the log file, if any.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// multiHandler fans a record out to every destination handler.
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, hh := range h.handlers {
		if hh.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, hh := range h.handlers {
		if hh.Enabled(ctx, r.Level) {
			if err := hh.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, hh := range h.handlers {
		next[i] = hh.WithAttrs(attrs)
	}
	return &multiHandler{handlers: next}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, hh := range h.handlers {
		next[i] = hh.WithGroup(name)
	}
	return &multiHandler{handlers: next}
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
