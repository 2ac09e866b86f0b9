package logx

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// Sink is the engine's logging collaborator interface (spec.md §6): a
// structured key/value logger with levels error|warn|info|debug|verbose.
// The engine logs through this interface so a host can swap in its own
// sink; Logger below is the default implementation it ships with.
type Sink interface {
	Log(level Level, msg string, kv ...any)
}

// Logger is the default Sink: a leveled, prefix-tagged writer that
// serializes concurrent writes through a single goroutine and buffers
// partial writes into complete lines, exactly as the teacher's
// Print/PrefixWriter pair does for parallel target output.
type Logger struct {
	min    Level
	p      *printer
	styles styles
}

// New creates a Logger writing to out, emitting only messages at level <= min.
func New(out io.Writer, min Level) *Logger {
	if out == nil {
		out = os.Stderr
	}

	return &Logger{
		min:    min,
		p:      newPrinter(out, 64), //nolint:mnd // modest buffer, matches teacher's NewPrinter call sites
		styles: defaultStyles(),
	}
}

// Close drains buffered lines and stops the printer goroutine.
func (l *Logger) Close() {
	l.p.close()
}

// Log implements Sink.
func (l *Logger) Log(level Level, msg string, kv ...any) {
	if level > l.min {
		return
	}

	tag := l.styles.forLevel(level).Render(level.String())
	line := fmt.Sprintf("[%s] %s%s\n", tag, msg, formatKV(kv))
	l.p.send(line)
}

// Errorf logs at LevelError with a printf-style message and no structured fields.
func (l *Logger) Errorf(format string, args ...any) { l.Log(LevelError, fmt.Sprintf(format, args...)) }

// Warnf logs at LevelWarn.
func (l *Logger) Warnf(format string, args ...any) { l.Log(LevelWarn, fmt.Sprintf(format, args...)) }

// Infof logs at LevelInfo.
func (l *Logger) Infof(format string, args ...any) { l.Log(LevelInfo, fmt.Sprintf(format, args...)) }

// Debugf logs at LevelDebug.
func (l *Logger) Debugf(format string, args ...any) { l.Log(LevelDebug, fmt.Sprintf(format, args...)) }

// Verbosef logs at LevelVerbose.
func (l *Logger) Verbosef(format string, args ...any) {
	l.Log(LevelVerbose, fmt.Sprintf(format, args...))
}

func formatKV(kv []any) string {
	if len(kv) == 0 {
		return ""
	}

	pairs := make(map[string]any, len(kv)/2) //nolint:mnd // kv is a flat key,value,... list
	var keys []string

	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}

		pairs[key] = kv[i+1]
		keys = append(keys, key)
	}

	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, pairs[k])
	}

	return b.String()
}

// Discard is a Sink that drops every message, used by tests and by the
// Controller before a caller has configured a real sink.
type Discard struct{}

// Log implements Sink by doing nothing.
func (Discard) Log(Level, string, ...any) {}
