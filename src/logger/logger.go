package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Logger defines the interface for logging throughout the application.
// The same interface backs both the process log and the per-build log sink
// that notification diagnostics are written to.
type Logger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

// ConsoleLogger writes human-readable logs to stdout/stderr.
// Used for normal operation and debugging.
type ConsoleLogger struct{}

func NewConsoleLogger() *ConsoleLogger {
	return &ConsoleLogger{}
}

func (c *ConsoleLogger) Info(msg string, args ...interface{}) {
	fmt.Printf("[INFO] "+msg+"\n", args...)
}

func (c *ConsoleLogger) Error(msg string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "[ERROR] "+msg+"\n", args...)
}

func (c *ConsoleLogger) Debug(msg string, args ...interface{}) {
	fmt.Printf("[DEBUG] "+msg+"\n", args...)
}

// SilentLogger discards all log messages.
// Used when running in TUI mode to prevent log output from interfering with the display.
type SilentLogger struct{}

func NewSilentLogger() *SilentLogger {
	return &SilentLogger{}
}

func (s *SilentLogger) Info(msg string, args ...interface{})  {}
func (s *SilentLogger) Error(msg string, args ...interface{}) {}
func (s *SilentLogger) Debug(msg string, args ...interface{}) {}

// WriterLogger writes plain lines to a build console. Info lines carry no
// prefix so they read like ordinary build output; errors are prefixed with
// "ERROR: ". Debug lines are dropped unless Verbose is set.
type WriterLogger struct {
	mu      sync.Mutex
	w       io.Writer
	Verbose bool
}

func NewWriterLogger(w io.Writer) *WriterLogger {
	return &WriterLogger{w: w}
}

func (l *WriterLogger) Info(msg string, args ...interface{}) {
	l.write("", msg, args)
}

func (l *WriterLogger) Error(msg string, args ...interface{}) {
	l.write("ERROR: ", msg, args)
}

func (l *WriterLogger) Debug(msg string, args ...interface{}) {
	if l.Verbose {
		l.write("", msg, args)
	}
}

func (l *WriterLogger) write(prefix, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, prefix+msg+"\n", args...)
}

// MemoryLogger captures formatted lines. It is used by previews to show the
// notification transcript and by tests to assert on diagnostics.
type MemoryLogger struct {
	mu    sync.Mutex
	lines []string
}

func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{}
}

func (m *MemoryLogger) Info(msg string, args ...interface{}) {
	m.append("", msg, args)
}

func (m *MemoryLogger) Error(msg string, args ...interface{}) {
	m.append("ERROR: ", msg, args)
}

func (m *MemoryLogger) Debug(msg string, args ...interface{}) {
	m.append("DEBUG: ", msg, args)
}

func (m *MemoryLogger) append(prefix, msg string, args []interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = append(m.lines, prefix+fmt.Sprintf(msg, args...))
}

// Lines returns a copy of the captured lines.
func (m *MemoryLogger) Lines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.lines...)
}

// String joins the captured lines with newlines.
func (m *MemoryLogger) String() string {
	return strings.Join(m.Lines(), "\n")
}

// Contains reports whether any captured line contains substr.
func (m *MemoryLogger) Contains(substr string) bool {
	for _, line := range m.Lines() {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

// ZerologLogger adapts a zerolog.Logger to the Logger interface.
type ZerologLogger struct {
	log zerolog.Logger
}

// NewZerologLogger returns a structured logger writing JSON to w.
func NewZerologLogger(w io.Writer, component string) *ZerologLogger {
	zl := zerolog.New(w).With().Timestamp().Str("component", component).Logger()
	return &ZerologLogger{log: zl}
}

// NewConsoleZerologLogger returns a zerolog logger with human-friendly output.
func NewConsoleZerologLogger(w io.Writer, component string, debug bool) *ZerologLogger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zl := zerolog.New(zerolog.ConsoleWriter{Out: w}).
		Level(level).
		With().Timestamp().Str("component", component).
		Logger()
	return &ZerologLogger{log: zl}
}

func (z *ZerologLogger) Info(msg string, args ...interface{}) {
	z.log.Info().Msgf(msg, args...)
}

func (z *ZerologLogger) Error(msg string, args ...interface{}) {
	z.log.Error().Msgf(msg, args...)
}

func (z *ZerologLogger) Debug(msg string, args ...interface{}) {
	z.log.Debug().Msgf(msg, args...)
}

// Zerolog exposes the underlying logger for callers that want structured fields.
func (z *ZerologLogger) Zerolog() *zerolog.Logger {
	return &z.log
}
