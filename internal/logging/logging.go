package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultPrefix        = "simustock"
	DefaultRetentionDays = 7
	fileDateLayout       = "20060102"
)

const (
	envLogLevel  = "SIMUSTOCK_LOG_LEVEL"
	envLogFormat = "SIMUSTOCK_LOG_FORMAT"
)

// DailyWriter appends to <prefix>-YYYYMMDD.log, switching files when the
// date changes and deleting files older than the retention window.
type DailyWriter struct {
	root     string
	name     string
	keepDays int
	clock    func() time.Time

	mu    sync.Mutex
	stamp string
	out   *os.File
}

// WriterOption customizes a DailyWriter.
type WriterOption func(*DailyWriter)

// WithPrefix names the log files <prefix>-YYYYMMDD.log.
func WithPrefix(prefix string) WriterOption {
	return func(w *DailyWriter) {
		if prefix != "" {
			w.name = prefix
		}
	}
}

// WithRetention keeps files for the given number of days. Non-positive values
// keep the default.
func WithRetention(days int) WriterOption {
	return func(w *DailyWriter) {
		if days > 0 {
			w.keepDays = days
		}
	}
}

// NewDailyWriter opens today's log file under dir, creating dir if needed.
func NewDailyWriter(dir string, opts ...WriterOption) (*DailyWriter, error) {
	w := &DailyWriter{root: dir, name: defaultPrefix, keepDays: DefaultRetentionDays, clock: time.Now}
	for _, opt := range opts {
		opt(w)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	if _, err := w.fileFor(w.clock()); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *DailyWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	out, err := w.fileFor(w.clock())
	if err != nil {
		return 0, err
	}
	return out.Write(p)
}

// Close closes the current file. Writing after Close reopens it.
func (w *DailyWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := w.out
	w.out = nil
	if out == nil {
		return nil
	}
	return out.Close()
}

// CurrentPath is the file the next write goes to.
func (w *DailyWriter) CurrentPath() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pathFor(w.stamp)
}

func (w *DailyWriter) pathFor(stamp string) string {
	return filepath.Join(w.root, w.name+"-"+stamp+".log")
}

// fileFor returns the file for now's date, reopening on a date change.
// Callers hold mu, except the constructor.
func (w *DailyWriter) fileFor(now time.Time) (*os.File, error) {
	stamp := now.Format(fileDateLayout)
	if w.out != nil && stamp == w.stamp {
		return w.out, nil
	}
	out, err := os.OpenFile(w.pathFor(stamp), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	if w.out != nil {
		_ = w.out.Close()
	}
	w.stamp, w.out = stamp, out
	removeLogsBefore(w.root, w.name, now.AddDate(0, 0, -w.keepDays))
	return out, nil
}

// removeLogsBefore deletes <prefix>-YYYYMMDD.log files dated before cutoff.
// Files that do not follow the naming scheme are left alone.
func removeLogsBefore(dir, prefix string, cutoff time.Time) {
	matches, err := filepath.Glob(filepath.Join(dir, prefix+"-*.log"))
	if err != nil {
		return
	}
	for _, path := range matches {
		stamp := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), prefix+"-"), ".log")
		day, err := time.ParseInLocation(fileDateLayout, stamp, cutoff.Location())
		if err != nil || !day.Before(cutoff) {
			continue
		}
		_ = os.Remove(path)
	}
}

// NewLogger creates a slog.Logger writing to stdout and a daily file under
// logDir, and installs it as the slog default. SIMUSTOCK_LOG_LEVEL overrides
// level; SIMUSTOCK_LOG_FORMAT=json switches to the JSON handler.
func NewLogger(logDir string, level slog.Level) (*slog.Logger, *DailyWriter, error) {
	writer, err := NewDailyWriter(logDir)
	if err != nil {
		return nil, nil, fmt.Errorf("daily log writer: %w", err)
	}
	logger := newLogger(io.MultiWriter(os.Stdout, writer), level)
	slog.SetDefault(logger)
	return logger, writer, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	handler := newHandler(w, resolveLevel(level))
	return slog.New(handler).With("service", defaultPrefix)
}

// ParseLevel maps debug/info/warn/error (or a numeric slog level) to a level.
func ParseLevel(value string) (slog.Level, bool) {
	value = strings.TrimSpace(value)
	switch strings.ToLower(value) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	if i, err := strconv.Atoi(value); err == nil {
		return slog.Level(i), true
	}
	return slog.LevelInfo, false
}

func resolveLevel(fallback slog.Level) slog.Level {
	if level, ok := ParseLevel(os.Getenv(envLogLevel)); ok {
		return level
	}
	return fallback
}

func newHandler(w io.Writer, level slog.Level) slog.Handler {
	options := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(envLogFormat)), "json") {
		return slog.NewJSONHandler(w, options)
	}
	return slog.NewTextHandler(w, options)
}
