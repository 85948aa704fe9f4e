package logger

// Field is one structured key/value attached to a log line.
type Field struct {
	Key   string
	Value any
}

// Logger is what vault, firewall and command code log through. Values that
// reach a Field must already be safe to print: never pass plaintext keys or
// unsanitized page content.
type Logger interface {
	With(fields ...Field) Logger
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// OrNop returns l, or a discarding logger when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return &Nop{}
	}
	return l
}

// Component scopes l to a named pageguard component ("vault", "firewall").
func Component(l Logger, name string) Logger {
	return OrNop(l).With(Field{Key: "component", Value: name})
}

// Nop drops everything.
type Nop struct{}

var _ Logger = (*Nop)(nil)

func (n *Nop) With(...Field) Logger   { return n }
func (n *Nop) Debug(string, ...Field) {}
func (n *Nop) Info(string, ...Field)  {}
func (n *Nop) Warn(string, ...Field)  {}
func (n *Nop) Error(string, ...Field) {}
