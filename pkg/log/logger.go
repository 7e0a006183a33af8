// Package log is the structured JSON logger shared by the service and the
// CLI. Entries are delivered asynchronously; when the writer falls behind the
// oldest entries are dropped rather than blocking request handling.
package log

import (
	"context"
	"io"
	"maps"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/diode"
)

const bufferSize = 1000

// Logger is a leveled JSON logger.
type Logger struct {
	zl      zerolog.Logger
	sink    io.Closer
	dropped *atomic.Int64
	once    *sync.Once
}

// New creates a logger writing JSON lines to w at the given minimum level.
func New(level Level, w io.Writer) *Logger {
	dropped := new(atomic.Int64)
	sink := diode.NewWriter(w, bufferSize, 10*time.Millisecond, func(missed int) {
		dropped.Add(int64(missed))
	})
	return &Logger{
		zl:      zerolog.New(sink).Level(zerolog.Level(level)).With().Timestamp().Logger(),
		sink:    sink,
		dropped: dropped,
		once:    new(sync.Once),
	}
}

// NewStdout creates a logger writing to standard output.
func NewStdout(level Level) *Logger {
	return New(level, os.Stdout)
}

// With creates a child logger with additional base fields. The child shares
// the parent's output and must not be closed separately.
func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{
		zl:      l.zl.With().Fields(keysAndValues).Logger(),
		sink:    l.sink,
		dropped: l.dropped,
		once:    l.once,
	}
}

// DroppedCount returns the number of entries lost to buffer overflow.
func (l *Logger) DroppedCount() int64 {
	if l.dropped == nil {
		return 0
	}
	return l.dropped.Load()
}

// Close flushes pending entries. Safe to call multiple times.
func (l *Logger) Close() {
	if l.sink == nil {
		return
	}
	l.once.Do(func() {
		_ = l.sink.Close()
	})
}

func (l *Logger) log(ctx context.Context, level Level, msg string, keysAndValues ...any) {
	e := l.zl.WithLevel(zerolog.Level(level))
	if e == nil {
		return
	}
	if id := RequestIDFromContext(ctx); id != "" {
		e = e.Str("request_id", id)
	}
	switch fields := FieldsFromContext(ctx); {
	case len(fields) > 0:
		// one set of keys; the call site wins over the context
		merged := maps.Clone(fields)
		for i := 0; i+1 < len(keysAndValues); i += 2 {
			if key, ok := keysAndValues[i].(string); ok {
				merged[key] = keysAndValues[i+1]
			}
		}
		e = e.Fields(merged)
	case len(keysAndValues) > 1:
		e = e.Fields(keysAndValues[:len(keysAndValues)-len(keysAndValues)%2])
	}
	e.Msg(msg)
}

func (l *Logger) Debug(msg string, keysAndValues ...any) { l.log(nil, Debug, msg, keysAndValues...) }
func (l *Logger) Info(msg string, keysAndValues ...any)  { l.log(nil, Info, msg, keysAndValues...) }
func (l *Logger) Warn(msg string, keysAndValues ...any)  { l.log(nil, Warn, msg, keysAndValues...) }
func (l *Logger) Error(msg string, keysAndValues ...any) { l.log(nil, Error, msg, keysAndValues...) }

func (l *Logger) DebugCtx(ctx context.Context, msg string, keysAndValues ...any) {
	l.log(ctx, Debug, msg, keysAndValues...)
}

func (l *Logger) InfoCtx(ctx context.Context, msg string, keysAndValues ...any) {
	l.log(ctx, Info, msg, keysAndValues...)
}

func (l *Logger) WarnCtx(ctx context.Context, msg string, keysAndValues ...any) {
	l.log(ctx, Warn, msg, keysAndValues...)
}

func (l *Logger) ErrorCtx(ctx context.Context, msg string, keysAndValues ...any) {
	l.log(ctx, Error, msg, keysAndValues...)
}

// --- Global Logger ---

var (
	globalLogger *Logger
	globalMu     sync.RWMutex
	nopLogger    = &Logger{zl: zerolog.Nop(), once: new(sync.Once)}
)

// SetDefault sets the global default logger.
func SetDefault(l *Logger) {
	globalMu.Lock()
	globalLogger = l
	globalMu.Unlock()
}

// Default returns the global logger, or a no-op one if none was set.
func Default() *Logger {
	globalMu.RLock()
	l := globalLogger
	globalMu.RUnlock()
	if l == nil {
		return nopLogger
	}
	return l
}

func GlobalDebug(msg string, keysAndValues ...any) { Default().Debug(msg, keysAndValues...) }
func GlobalInfo(msg string, keysAndValues ...any)  { Default().Info(msg, keysAndValues...) }
func GlobalWarn(msg string, keysAndValues ...any)  { Default().Warn(msg, keysAndValues...) }
func GlobalError(msg string, keysAndValues ...any) { Default().Error(msg, keysAndValues...) }

func GlobalDebugCtx(ctx context.Context, msg string, keysAndValues ...any) {
	Default().DebugCtx(ctx, msg, keysAndValues...)
}

func GlobalInfoCtx(ctx context.Context, msg string, keysAndValues ...any) {
	Default().InfoCtx(ctx, msg, keysAndValues...)
}

func GlobalWarnCtx(ctx context.Context, msg string, keysAndValues ...any) {
	Default().WarnCtx(ctx, msg, keysAndValues...)
}

func GlobalErrorCtx(ctx context.Context, msg string, keysAndValues ...any) {
	Default().ErrorCtx(ctx, msg, keysAndValues...)
}
