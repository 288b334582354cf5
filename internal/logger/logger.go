// Package logger writes leveled diagnostics to stderr.
//
// The MCP stdio transport owns stdout, so nothing here ever writes there.
// By default only errors are shown; --verbose lowers the threshold to
// debug, and RLM_LOG can pick any level explicitly.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// LevelEnv names the environment variable read by LevelFromEnv.
const LevelEnv = "RLM_LOG"

// Level orders messages by severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelTags = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < LevelDebug || l > LevelError {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelTags[l]
}

// ParseLevel accepts a level name in any case. "warning" is an alias for warn.
func ParseLevel(s string) (Level, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	if name == "WARNING" {
		return LevelWarn, nil
	}
	for i, tag := range levelTags {
		if tag == name {
			return Level(i), nil
		}
	}
	return LevelError, fmt.Errorf("unknown log level %q", s)
}

type sink struct {
	mu        sync.Mutex
	w         io.Writer
	threshold Level
}

var std = &sink{w: os.Stderr, threshold: LevelError}

func (s *sink) enabled(l Level) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return l >= s.threshold
}

func (s *sink) write(l Level, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l < s.threshold {
		return
	}
	_, _ = io.WriteString(s.w, msg)
}

// SetLevel sets the lowest level that is written.
func SetLevel(l Level) {
	std.mu.Lock()
	std.threshold = l
	std.mu.Unlock()
}

// SetVerbose switches between debug output and errors only.
func SetVerbose(v bool) {
	if v {
		SetLevel(LevelDebug)
		return
	}
	SetLevel(LevelError)
}

// IsVerbose reports whether debug messages are written.
func IsVerbose() bool {
	return std.enabled(LevelDebug)
}

// LevelFromEnv applies RLM_LOG when it is set. An unparseable value is
// returned as an error and leaves the level unchanged.
func LevelFromEnv() error {
	v, ok := os.LookupEnv(LevelEnv)
	if !ok || v == "" {
		return nil
	}
	l, err := ParseLevel(v)
	if err != nil {
		return fmt.Errorf("%s: %w", LevelEnv, err)
	}
	SetLevel(l)
	return nil
}

// SetOutput redirects log output. Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	std.mu.Lock()
	std.w = w
	std.mu.Unlock()
}

func logf(l Level, format string, args ...any) {
	if !std.enabled(l) {
		return
	}
	std.write(l, "["+l.String()+"] "+fmt.Sprintf(format, args...)+"\n")
}

// Debug logs internals such as timings and index sizes.
func Debug(format string, args ...any) { logf(LevelDebug, format, args...) }

// Info logs progress worth seeing with --verbose.
func Info(format string, args ...any) { logf(LevelInfo, format, args...) }

// Warn logs degraded capabilities, e.g. a missing embedding provider.
func Warn(format string, args ...any) { logf(LevelWarn, format, args...) }

// Error logs failures. It is written at the default level.
func Error(format string, args ...any) { logf(LevelError, format, args...) }

// Section writes a banner separating phases of a verbose run.
func Section(name string) {
	std.write(LevelDebug, "\n=== "+name+" ===\n")
}

// Elapsed logs how long a step took, at debug level.
//
//	defer logger.Elapsed("bm25 build", time.Now())
func Elapsed(step string, start time.Time) {
	Debug("%s took %s", step, time.Since(start).Round(time.Microsecond))
}
