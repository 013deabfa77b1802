// Package output provides user-facing logging and listing rendering for stackit.
package output

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/natefinch/lumberjack.v2"
)

// consoleHandler writes bare messages without timestamps or level prefixes
type consoleHandler struct {
	writer    io.Writer
	debugMode bool
	quiet     *bool
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	if level == slog.LevelDebug {
		return h.debugMode
	}
	return true
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	if *h.quiet {
		return nil
	}
	_, err := fmt.Fprintln(h.writer, record.Message)
	return err
}

func (h *consoleHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return h
}

func (h *consoleHandler) WithGroup(_ string) slog.Handler {
	return h
}

// fanoutHandler sends each record to every enabled handler
type fanoutHandler struct {
	handlers []slog.Handler
}

func (h *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, record.Level) {
			continue
		}
		if err := handler.Handle(ctx, record.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: next}
}

func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithGroup(name)
	}
	return &fanoutHandler{handlers: next}
}

// rotatingLogFile creates the rotating log file, tunable through STACKIT_LOG_* variables
func rotatingLogFile(path string) *lumberjack.Logger {
	logger := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    1,
		MaxBackups: 2,
		MaxAge:     30,
	}
	if v, err := strconv.Atoi(os.Getenv("STACKIT_LOG_MAX_SIZE")); err == nil && v > 0 {
		logger.MaxSize = v
	}
	if v, err := strconv.Atoi(os.Getenv("STACKIT_LOG_MAX_BACKUPS")); err == nil && v >= 0 {
		logger.MaxBackups = v
	}
	if v, err := strconv.Atoi(os.Getenv("STACKIT_LOG_MAX_AGE")); err == nil && v > 0 {
		logger.MaxAge = v
	}
	return logger
}

// Splog writes user-facing messages to the console and, optionally, a rotating log file
type Splog struct {
	logger  *slog.Logger
	writer  io.Writer
	logFile io.WriteCloser
	quiet   bool
}

// NewSplog creates a console-only Splog on stdout.
// Debug messages are enabled when DEBUG is set.
func NewSplog() *Splog {
	return NewSplogWithWriter(os.Stdout)
}

// NewSplogWithWriter creates a console-only Splog writing to w
func NewSplogWithWriter(w io.Writer) *Splog {
	splog, _ := newSplog(w, "")
	return splog
}

// NewSplogWithLogFile creates a Splog that also records every message, debug included, to logFilePath
func NewSplogWithLogFile(logFilePath string) (*Splog, error) {
	return newSplog(os.Stdout, logFilePath)
}

func newSplog(w io.Writer, logFilePath string) (*Splog, error) {
	s := &Splog{writer: w}
	handlers := []slog.Handler{&consoleHandler{
		writer:    w,
		debugMode: os.Getenv("DEBUG") != "",
		quiet:     &s.quiet,
	}}

	if logFilePath != "" {
		if err := os.MkdirAll(filepath.Dir(logFilePath), 0750); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		file := rotatingLogFile(logFilePath)
		s.logFile = file
		handlers = append(handlers, slog.NewTextHandler(file, &slog.HandlerOptions{
			Level: slog.LevelDebug,
			ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey {
					return slog.String(a.Key, a.Value.Time().Format("2006-01-02 15:04:05.000"))
				}
				return a
			},
		}))
	}

	s.logger = slog.New(&fanoutHandler{handlers: handlers})
	return s, nil
}

// Logger exposes the underlying slog logger for structured records
func (s *Splog) Logger() *slog.Logger {
	return s.logger
}

// SetQuiet suppresses console output while a TUI owns the terminal
func (s *Splog) SetQuiet(quiet bool) {
	s.quiet = quiet
}

// IsQuiet reports whether console output is suppressed
func (s *Splog) IsQuiet() bool {
	return s.quiet
}

func (s *Splog) log(level slog.Level, prefix, format string, args ...any) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	s.logger.Log(context.Background(), level, prefix+msg)
}

// Info writes an info message
func (s *Splog) Info(format string, args ...any) {
	s.log(slog.LevelInfo, "", format, args...)
}

// Warn writes a warning message
func (s *Splog) Warn(format string, args ...any) {
	s.log(slog.LevelWarn, "⚠️  ", format, args...)
}

// Error writes an error message
func (s *Splog) Error(format string, args ...any) {
	s.log(slog.LevelError, "❌ ", format, args...)
}

// Debug writes a debug message
func (s *Splog) Debug(format string, args ...any) {
	s.log(slog.LevelDebug, "", format, args...)
}

// Tip writes a tip message
func (s *Splog) Tip(format string, args ...any) {
	s.log(slog.LevelInfo, "💡 ", format, args...)
}

// Page writes preformatted content as-is
func (s *Splog) Page(content string) {
	if s.quiet {
		return
	}
	_, _ = fmt.Fprint(s.writer, content)
}

// Newline writes a newline
func (s *Splog) Newline() {
	if s.quiet {
		return
	}
	_, _ = fmt.Fprintln(s.writer)
}

// Close closes the log file if one was opened
func (s *Splog) Close() error {
	if s.logFile != nil {
		return s.logFile.Close()
	}
	return nil
}
