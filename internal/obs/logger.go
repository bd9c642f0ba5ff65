// Package obs provides the leveled logfmt logger shared by the channel core,
// the HTTP adapter and the demo server.
package obs

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/go-logfmt/logfmt"
	"github.com/pkg/errors"
)

type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// ParseLevel parses the lower-case level names produced by Level.String.
func ParseLevel(s string) (Level, error) {
	for l := Debug; l <= Error; l++ {
		if strings.EqualFold(s, l.String()) {
			return l, nil
		}
	}
	return 0, errors.Errorf("unknown log level %q", s)
}

// Logger records a message with alternating key/value pairs.
type Logger interface {
	Log(level Level, msg string, keyvals ...interface{})
}

// NopLogger discards all logs.
type NopLogger struct{}

func (NopLogger) Log(Level, string, ...interface{}) {}

// LogfmtLogger writes one logfmt record per call to an io.Writer.
type LogfmtLogger struct {
	w   io.Writer
	min Level
	now func() time.Time

	mu sync.Mutex
}

// New returns a logger writing records at or above min to w.
// A nil w yields a NopLogger.
func New(w io.Writer, min Level) Logger {
	if w == nil {
		return NopLogger{}
	}
	return &LogfmtLogger{w: w, min: min, now: time.Now}
}

func (l *LogfmtLogger) Log(level Level, msg string, keyvals ...interface{}) {
	if level < l.min {
		return
	}
	var buf bytes.Buffer
	enc := logfmt.NewEncoder(&buf)
	enc.EncodeKeyval("time", l.now().UTC().Format(time.RFC3339Nano))
	enc.EncodeKeyval("level", level.String())
	enc.EncodeKeyval("msg", msg)
	for i := 0; i < len(keyvals); i += 2 {
		var v interface{} = "<missing>"
		if i+1 < len(keyvals) {
			v = keyvals[i+1]
		}
		tryEncodeKeyval(enc, keyvals[i], v)
	}
	enc.EndRecord()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(buf.Bytes())
}

func tryEncodeKeyval(enc *logfmt.Encoder, key, value interface{}) {
	switch err := enc.EncodeKeyval(key, value); err {
	case nil:
	case logfmt.ErrUnsupportedValueType:
		enc.EncodeKeyval(key, fmt.Sprintf("<%T>", value))
	default:
		enc.EncodeKeyval("logfmt_error", err)
	}
}

type withLogger struct {
	base    Logger
	keyvals []interface{}
}

// With returns a logger that prepends keyvals to every record.
func With(l Logger, keyvals ...interface{}) Logger {
	if _, ok := l.(NopLogger); ok {
		return l
	}
	return withLogger{base: l, keyvals: keyvals}
}

func (w withLogger) Log(level Level, msg string, keyvals ...interface{}) {
	all := make([]interface{}, 0, len(w.keyvals)+len(keyvals))
	all = append(all, w.keyvals...)
	w.base.Log(level, msg, append(all, keyvals...)...)
}
