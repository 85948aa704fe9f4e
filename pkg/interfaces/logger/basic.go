package logger

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
)

// Level orders log severities.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	default:
		return "ERROR"
	}
}

// Basic writes `[LEVEL] msg key=value` lines to an io.Writer.
type Basic struct {
	mu     *sync.Mutex
	out    io.Writer
	min    Level
	fields []Field
}

var _ Logger = (*Basic)(nil)

// NewBasic returns a logger writing to out at or above min.
// A nil writer falls back to stderr.
func NewBasic(out io.Writer, min Level) *Basic {
	if out == nil {
		out = os.Stderr
	}
	return &Basic{mu: &sync.Mutex{}, out: out, min: min}
}

func (l *Basic) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return l
	}
	next := &Basic{
		mu:     l.mu,
		out:    l.out,
		min:    l.min,
		fields: make([]Field, 0, len(l.fields)+len(fields)),
	}
	next.fields = append(next.fields, l.fields...)
	next.fields = append(next.fields, fields...)
	return next
}

func (l *Basic) Debug(msg string, fields ...Field) { l.log(LevelDebug, msg, fields) }
func (l *Basic) Info(msg string, fields ...Field)  { l.log(LevelInfo, msg, fields) }
func (l *Basic) Warn(msg string, fields ...Field)  { l.log(LevelWarn, msg, fields) }
func (l *Basic) Error(msg string, fields ...Field) { l.log(LevelError, msg, fields) }

func (l *Basic) log(level Level, msg string, fields []Field) {
	if level < l.min {
		return
	}
	line := fmt.Sprintf("[%s] %s", level, msg)
	if rendered := formatFields(append(append([]Field(nil), l.fields...), fields...)); rendered != "" {
		line += " " + rendered
	}
	l.mu.Lock()
	fmt.Fprintln(l.out, line)
	l.mu.Unlock()
}

func formatFields(fields []Field) string {
	if len(fields) == 0 {
		return ""
	}
	sorted := append([]Field(nil), fields...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })
	parts := make([]string, 0, len(sorted))
	for _, f := range sorted {
		parts = append(parts, fmt.Sprintf("%s=%v", f.Key, f.Value))
	}
	return strings.Join(parts, " ")
}
