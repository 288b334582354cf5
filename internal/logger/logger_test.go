package logger

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, l Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(l)
	t.Cleanup(func() {
		SetVerbose(false)
		SetOutput(os.Stderr)
	})
	return &buf
}

func TestSetVerbose(t *testing.T) {
	capture(t, LevelError)
	assert.False(t, IsVerbose())

	SetVerbose(true)
	assert.True(t, IsVerbose())

	SetVerbose(false)
	assert.False(t, IsVerbose())
}

func TestThreshold(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "[DEBUG] d\n[INFO] i\n[WARN] w\n[ERROR] e\n"},
		{LevelInfo, "[INFO] i\n[WARN] w\n[ERROR] e\n"},
		{LevelWarn, "[WARN] w\n[ERROR] e\n"},
		{LevelError, "[ERROR] e\n"},
	}
	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			buf := capture(t, tt.level)

			Debug("d")
			Info("i")
			Warn("w")
			Error("e")

			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestDefaultLevel_QuietExceptErrors(t *testing.T) {
	buf := capture(t, LevelError)

	Section("s")
	Elapsed("step", time.Now())
	Error("archive %s: %v", "2026-01-18_RLM_001", "disk full")

	assert.Equal(t, "[ERROR] archive 2026-01-18_RLM_001: disk full\n", buf.String())
}

func TestSection(t *testing.T) {
	buf := capture(t, LevelDebug)

	Section("Hybrid Search")

	assert.Equal(t, "\n=== Hybrid Search ===\n", buf.String())
}

func TestElapsed(t *testing.T) {
	buf := capture(t, LevelDebug)

	Elapsed("bm25 build", time.Now().Add(-time.Millisecond))

	assert.Contains(t, buf.String(), "[DEBUG] bm25 build took ")
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{
		"debug":   LevelDebug,
		" INFO ":  LevelInfo,
		"Warn":    LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
	} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.EqualError(t, err, `unknown log level "loud"`)
}

func TestLevelString_OutOfRange(t *testing.T) {
	assert.Equal(t, "Level(7)", Level(7).String())
}

func TestLevelFromEnv(t *testing.T) {
	capture(t, LevelError)

	t.Setenv(LevelEnv, "")
	require.NoError(t, LevelFromEnv())
	assert.False(t, std.enabled(LevelWarn))

	t.Setenv(LevelEnv, "warn")
	require.NoError(t, LevelFromEnv())
	assert.True(t, std.enabled(LevelWarn))
	assert.False(t, std.enabled(LevelInfo))

	t.Setenv(LevelEnv, "chatty")
	err := LevelFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), LevelEnv)
	assert.True(t, std.enabled(LevelWarn), "bad value leaves the level alone")
}
