// Package lib holds the small helpers shared by every other package.
package lib

import "testing"

// Logger receives debug information from the protocol and storage layers.
// *log.Logger satisfies it.
type Logger interface {
	Print(a ...any)
	Println(a ...any)
	Printf(format string, a ...any)
}

// NoLog discards everything.
type NoLog struct{}

func (NoLog) Print(a ...any)                 {}
func (NoLog) Println(a ...any)               {}
func (NoLog) Printf(format string, a ...any) {}

// TestLogger routes debug output to the test log, with an optional prefix
// to tell interleaved components apart.
type TestLogger struct {
	t      *testing.T
	prefix string
}

func NewTestLogger(t *testing.T, prefix string) *TestLogger {
	return &TestLogger{
		t:      t,
		prefix: prefix,
	}
}

func (l *TestLogger) Print(a ...any) {
	if l.prefix == "" {
		l.t.Log(a...)
	} else {
		l.t.Log(append([]any{l.prefix + ":"}, a...)...)
	}
}

func (l *TestLogger) Println(a ...any) {
	l.Print(a...)
}

func (l *TestLogger) Printf(format string, a ...any) {
	if l.prefix != "" {
		format = l.prefix + ": " + format
	}
	l.t.Logf(format, a...)
}
