package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Severity levels, matching the config vocabulary (TRACE is finer than
// slog's own Debug, so it is mapped below slog.LevelDebug).
const (
	LevelTrace = slog.Level(-8)
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
	LevelOff   = slog.Level(12)
)

var severityLevels = map[string]slog.Level{
	"TRACE":   LevelTrace,
	"DEBUG":   LevelDebug,
	"INFO":    LevelInfo,
	"WARNING": LevelWarn,
	"ERROR":   LevelError,
	"OFF":     LevelOff,
}

// RotateConfig configures lumberjack's rotation behavior.
type RotateConfig struct {
	MaxFileSizeMB   int
	BackupFileCount int
	Compress        bool
}

// Config controls where and how the package logger writes.
type Config struct {
	FilePath   string // empty means stderr
	Severity   string // TRACE, DEBUG, INFO, WARNING, ERROR, OFF
	Format     string // "text" or "json"; anything else behaves as "json"
	Rotate     RotateConfig
	BufferSize int // async write-buffer depth; 0 selects a sane default
}

type factory struct {
	mu       sync.Mutex
	format   string
	level    *slog.LevelVar
	asyncOut *AsyncLogger
}

var (
	defaultFactory = &factory{level: new(slog.LevelVar)}
	defaultLogger  = slog.New(defaultFactory.createHandler(os.Stderr))
)

func setLoggingLevel(severity string, lv *slog.LevelVar) {
	lv.Set(levelFor(severity))
}

func levelFor(severity string) slog.Level {
	if l, ok := severityLevels[strings.ToUpper(severity)]; ok {
		return l
	}
	return LevelInfo
}

// createHandler returns a slog.Handler writing to w in the factory's
// configured format (json by default, text when explicitly selected),
// rendering custom severity names for TRACE and the standard ones
// elsewhere.
func (f *factory) createHandler(w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: f.level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				lvl := a.Value.Any().(slog.Level)
				a.Key = "severity"
				a.Value = slog.StringValue(severityName(lvl))
			}
			return a
		},
	}
	if f.format == "text" {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

func severityName(lvl slog.Level) string {
	switch {
	case lvl <= LevelTrace:
		return "TRACE"
	case lvl <= LevelDebug:
		return "DEBUG"
	case lvl <= LevelInfo:
		return "INFO"
	case lvl <= LevelWarn:
		return "WARNING"
	default:
		return "ERROR"
	}
}

// Init reconfigures the package-level logger per cfg, rotating to a
// file (through an AsyncLogger wrapping lumberjack) when cfg.FilePath
// is set, or writing synchronously to stderr otherwise. Call once at
// process startup.
func Init(cfg Config) error {
	defaultFactory.mu.Lock()
	defer defaultFactory.mu.Unlock()

	defaultFactory.format = cfg.Format
	setLoggingLevel(cfg.Severity, defaultFactory.level)

	if defaultFactory.asyncOut != nil {
		_ = defaultFactory.asyncOut.Close()
		defaultFactory.asyncOut = nil
	}

	var w io.Writer = os.Stderr
	if cfg.FilePath != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.Rotate.MaxFileSizeMB,
			MaxBackups: cfg.Rotate.BackupFileCount,
			Compress:   cfg.Rotate.Compress,
		}
		bufSize := cfg.BufferSize
		if bufSize <= 0 {
			bufSize = 1024
		}
		async := NewAsyncLogger(lj, bufSize)
		defaultFactory.asyncOut = async
		w = async
	}

	defaultLogger = slog.New(defaultFactory.createHandler(w))
	return nil
}

// Close flushes and releases the async file writer, if any.
func Close() error {
	defaultFactory.mu.Lock()
	defer defaultFactory.mu.Unlock()
	if defaultFactory.asyncOut == nil {
		return nil
	}
	err := defaultFactory.asyncOut.Close()
	defaultFactory.asyncOut = nil
	return err
}

// Logger returns the current package-level *slog.Logger, for
// components that want structured fields rather than the *f helpers.
func Logger() *slog.Logger { return defaultLogger }

type requestIDKey struct{}

// WithRequestID returns a child context carrying id, so that every log
// line produced through FromContext while handling a single call can be
// correlated back to it.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request id attached by WithRequestID,
// or "" if ctx carries none.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// FromContext returns the package logger, annotated with ctx's request
// id if WithRequestID attached one.
func FromContext(ctx context.Context) *slog.Logger {
	if id := RequestIDFromContext(ctx); id != "" {
		return defaultLogger.With("request_id", id)
	}
	return defaultLogger
}

func logf(ctx context.Context, level slog.Level, format string, args ...any) {
	defaultLogger.Log(ctx, level, fmt.Sprintf(format, args...))
}

func Tracef(format string, args ...any) { logf(context.Background(), LevelTrace, format, args...) }
func Debugf(format string, args ...any) { logf(context.Background(), LevelDebug, format, args...) }
func Infof(format string, args ...any)  { logf(context.Background(), LevelInfo, format, args...) }
func Warnf(format string, args ...any)  { logf(context.Background(), LevelWarn, format, args...) }
func Errorf(format string, args ...any) { logf(context.Background(), LevelError, format, args...) }
