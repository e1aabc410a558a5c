// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging wraps log/slog for the clide binaries and libraries.
//
// A Logger writes each record to up to three sinks at once: a console
// writer (stderr unless Config.Output says otherwise), a daily JSON file
// under Config.LogDir, and a LogExporter that receives entries off the
// calling goroutine.
//
// Libraries in this module accept a *Logger and substitute Nop() for nil,
// so a host application embedding the catalog stays silent until it
// passes a logger in. The clide command builds its logger from the
// "logging" section of clide.yaml:
//
//	logger := logging.New(logging.Config{Level: logging.LevelDebug, LogDir: "~/.clide/logs"})
//	defer logger.Close()
//	logger.Info("catalog loaded", "parts", n)
//
// A Logger and every child made with With may be used from many goroutines.
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

// Level is a record severity, ordered Debug < Info < Warn < Error.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[Level]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

var slogLevels = map[Level]slog.Level{
	LevelDebug: slog.LevelDebug,
	LevelInfo:  slog.LevelInfo,
	LevelWarn:  slog.LevelWarn,
	LevelError: slog.LevelError,
}

// String returns the upper-case level name, or "UNKNOWN".
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseLevel maps a config string such as "debug" or "Warning" to a Level.
// An empty string means LevelInfo. The bool is false for names it does not
// recognise, in which case LevelInfo is returned.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, true
	case "info", "":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	default:
		return LevelInfo, false
	}
}

func (l Level) toSlogLevel() slog.Level {
	if lvl, ok := slogLevels[l]; ok {
		return lvl
	}
	return slog.LevelInfo
}

// Config selects the sinks of a Logger. The zero value logs Info and above
// as text on stderr.
type Config struct {
	Level Level

	// LogDir, when set, adds a JSON sink at LogDir/<Service>_<YYYY-MM-DD>.log.
	// A leading ~ is the home directory. An unusable directory is skipped.
	LogDir string

	// Service is added to every record as the "service" attribute and
	// names the log file ("clide" when empty).
	Service string

	// JSON switches the console sink from text to JSON.
	JSON bool

	// Quiet drops the console sink.
	Quiet bool

	// Output is the console sink's writer; nil means stderr.
	Output io.Writer

	// Exporter gets a copy of each enabled entry. Its errors are dropped.
	Exporter LogExporter
}

// LogExporter forwards entries to a collector outside the process.
//
// Export runs on its own goroutine for each entry with a one second
// deadline, so implementations must tolerate concurrent calls. Close on the
// owning Logger calls Flush and then Close.
type LogExporter interface {
	Export(ctx context.Context, entry LogEntry) error
	Flush(ctx context.Context) error
	Close() error
}

// LogEntry is the exporter's view of one record.
type LogEntry struct {
	Timestamp time.Time
	Level     Level
	Message   string
	Service   string
	Attrs     map[string]any
}

// Logger is a leveled structured logger. A Logger returned by New owns its
// file and exporter and must be closed; children from With share them.
type Logger struct {
	slog     *slog.Logger
	config   Config
	file     *os.File
	exporter LogExporter
	mu       sync.Mutex
}

// New builds a Logger for config. It never fails: sinks that cannot be
// opened are left out, and a logger with no sink at all writes to stderr
// (or to nothing, when Quiet is set and an exporter is configured).
func New(config Config) *Logger {
	opts := &slog.HandlerOptions{Level: config.Level.toSlogLevel()}
	logger := &Logger{config: config, exporter: config.Exporter}

	var sinks []slog.Handler
	if !config.Quiet {
		sinks = append(sinks, consoleHandler(config, opts))
	}
	if config.LogDir != "" {
		if file, err := openLogFile(config.LogDir, config.Service, time.Now()); err == nil {
			logger.file = file
			sinks = append(sinks, slog.NewJSONHandler(file, opts))
		}
	}

	var handler slog.Handler
	switch {
	case len(sinks) == 1:
		handler = sinks[0]
	case len(sinks) > 1:
		handler = &multiHandler{handlers: sinks}
	case config.Quiet && config.Exporter != nil:
		handler = slog.NewTextHandler(io.Discard, opts)
	default:
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	if config.Service != "" {
		handler = handler.WithAttrs([]slog.Attr{slog.String("service", config.Service)})
	}

	logger.slog = slog.New(handler)
	return logger
}

func consoleHandler(config Config, opts *slog.HandlerOptions) slog.Handler {
	out := config.Output
	if out == nil {
		out = os.Stderr
	}
	if config.JSON {
		return slog.NewJSONHandler(out, opts)
	}
	return slog.NewTextHandler(out, opts)
}

// logFileName is the per-day file a service appends to.
func logFileName(service string, day time.Time) string {
	if service == "" {
		service = "clide"
	}
	return fmt.Sprintf("%s_%s.log", service, day.Format("2006-01-02"))
}

func openLogFile(dir, service string, day time.Time) (*os.File, error) {
	dir = expandPath(dir)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	path := filepath.Join(dir, logFileName(service, day))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return file, nil
}

// Default is the stderr text logger clide uses before its config is read.
func Default() *Logger {
	return New(Config{Level: LevelInfo, Service: "clide"})
}

// Nop returns a logger with no sinks.
func Nop() *Logger {
	return New(Config{Level: LevelError, Output: io.Discard})
}

func (l *Logger) Debug(msg string, args ...any) { l.log(LevelDebug, msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.log(LevelInfo, msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.log(LevelWarn, msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.log(LevelError, msg, args...) }

// With returns a child that adds args to every record. Close the parent,
// not the child.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		slog:     l.slog.With(args...),
		config:   l.config,
		file:     l.file,
		exporter: l.exporter,
	}
}

// Slog exposes the underlying *slog.Logger for code that wants it directly.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// Close flushes and closes the exporter, then syncs and closes the log
// file. It reports the first failure; a second Close is a no-op.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var first error
	keep := func(err error, what string) {
		if err != nil && first == nil {
			first = fmt.Errorf("%s: %w", what, err)
		}
	}

	if l.exporter != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		keep(l.exporter.Flush(ctx), "flush exporter")
		keep(l.exporter.Close(), "close exporter")
		l.exporter = nil
	}
	if l.file != nil {
		keep(l.file.Sync(), "sync log file")
		keep(l.file.Close(), "close log file")
		l.file = nil
	}
	return first
}

func (l *Logger) log(level Level, msg string, args ...any) {
	l.slog.Log(context.Background(), level.toSlogLevel(), msg, args...)

	l.mu.Lock()
	exporter := l.exporter
	l.mu.Unlock()
	if exporter == nil || level < l.config.Level {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   msg,
		Service:   l.config.Service,
		Attrs:     argsToMap(args),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = exporter.Export(ctx, entry)
	}()
}

// multiHandler sends each record to every member that accepts its level.
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, r.Level) {
			continue
		}
		if err := handler.Handle(ctx, r.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.derive(func(handler slog.Handler) slog.Handler { return handler.WithAttrs(attrs) })
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	return h.derive(func(handler slog.Handler) slog.Handler { return handler.WithGroup(name) })
}

func (h *multiHandler) derive(fn func(slog.Handler) slog.Handler) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = fn(handler)
	}
	return &multiHandler{handlers: next}
}

// expandPath resolves a leading ~ against the home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// argsToMap pairs up slog key/value args. Non-string keys and a trailing
// key without a value are dropped.
func argsToMap(args []any) map[string]any {
	result := make(map[string]any, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		if key, ok := args[i].(string); ok {
			result[key] = args[i+1]
		}
	}
	return result
}

// BufferedExporter keeps exported entries in memory so tests can inspect
// what a component logged.
type BufferedExporter struct {
	mu      sync.Mutex
	entries []LogEntry
}

func NewBufferedExporter() *BufferedExporter {
	return &BufferedExporter{entries: make([]LogEntry, 0, 64)}
}

func (e *BufferedExporter) Export(ctx context.Context, entry LogEntry) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.entries = append(e.entries, entry)
	return nil
}

func (e *BufferedExporter) Flush(ctx context.Context) error { return nil }

func (e *BufferedExporter) Close() error { return nil }

// Entries returns a snapshot of the collected entries.
func (e *BufferedExporter) Entries() []LogEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]LogEntry(nil), e.entries...)
}

var _ LogExporter = (*BufferedExporter)(nil)
