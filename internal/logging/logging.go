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

// Prefix names the service in log records and log file names.
const Prefix = "costbook"

const (
	fileDateLayout       = "20060102"
	defaultRetentionDays = 7
)

// Options controls logger construction. Zero values fall back to info level,
// text output and a week of retained files.
type Options struct {
	Level         string
	Format        string
	RetentionDays int
	// Stdout also receives every record when set.
	Stdout io.Writer
}

// DailyWriter appends to <prefix>-YYYYMMDD.log, switching files at midnight
// and removing files older than the retention window.
type DailyWriter struct {
	dir           string
	prefix        string
	retentionDays int
	now           func() time.Time

	mu          sync.Mutex
	currentDate string
	file        *os.File
}

// NewDailyWriter creates a rotating writer in dir.
func NewDailyWriter(dir, prefix string, retentionDays int) (*DailyWriter, error) {
	if retentionDays <= 0 {
		retentionDays = defaultRetentionDays
	}
	if prefix == "" {
		prefix = Prefix
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	w := &DailyWriter{
		dir:           dir,
		prefix:        prefix,
		retentionDays: retentionDays,
		now:           time.Now,
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.rotateLocked(); err != nil {
		return nil, err
	}
	return w, nil
}

// Write implements io.Writer.
func (w *DailyWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.rotateLocked(); err != nil {
		return 0, err
	}
	return w.file.Write(p)
}

// Close closes the current file.
func (w *DailyWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// Path returns the file currently written to.
func (w *DailyWriter) Path() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pathFor(w.currentDate)
}

func (w *DailyWriter) pathFor(date string) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s-%s.log", w.prefix, date))
}

func (w *DailyWriter) rotateLocked() error {
	now := w.now()
	date := now.Format(fileDateLayout)
	if date == w.currentDate && w.file != nil {
		return nil
	}
	if w.file != nil {
		_ = w.file.Close()
	}
	file, err := os.OpenFile(w.pathFor(date), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	w.file = file
	w.currentDate = date
	w.prune(now)
	return nil
}

func (w *DailyWriter) prune(now time.Time) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return
	}
	cutoff := now.AddDate(0, 0, -w.retentionDays)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		datePart, ok := strings.CutPrefix(entry.Name(), w.prefix+"-")
		if !ok {
			continue
		}
		datePart, ok = strings.CutSuffix(datePart, ".log")
		if !ok || len(datePart) != len(fileDateLayout) {
			continue
		}
		date, err := time.Parse(fileDateLayout, datePart)
		if err != nil {
			continue
		}
		if date.Before(cutoff) {
			_ = os.Remove(filepath.Join(w.dir, entry.Name()))
		}
	}
}

// NewLogger builds the service logger over a daily file in dir, installs it as
// the slog default and returns the writer so the caller can close it.
func NewLogger(dir string, opts Options) (*slog.Logger, *DailyWriter, error) {
	writer, err := NewDailyWriter(dir, Prefix, opts.RetentionDays)
	if err != nil {
		return nil, nil, err
	}
	var out io.Writer = writer
	if opts.Stdout != nil {
		out = io.MultiWriter(opts.Stdout, writer)
	}
	handler := NewHandler(out, ParseLevel(opts.Level, slog.LevelInfo), opts.Format)
	logger := slog.New(handler).With("service", Prefix)
	slog.SetDefault(logger)
	return logger, writer, nil
}

// NewHandler returns a JSON handler for format "json" and a text handler otherwise.
func NewHandler(w io.Writer, level slog.Level, format string) slog.Handler {
	options := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return slog.NewJSONHandler(w, options)
	}
	return slog.NewTextHandler(w, options)
}

// ParseLevel maps debug/info/warn/error, or a numeric slog level, to a level.
func ParseLevel(value string, fallback slog.Level) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return fallback
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	if i, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		return slog.Level(i)
	}
	return fallback
}
