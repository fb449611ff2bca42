package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTextRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelWarn, Output: &buf, Component: "test"})

	l.Debug("hidden debug")
	l.Info("hidden info")
	l.Warn("shown warn", "device", "atmega328p")
	l.Error("shown error")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown warn")
	assert.Contains(t, out, "device=atmega328p")
	assert.Contains(t, out, "component=test")
	assert.Contains(t, out, "shown error")
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Format: FormatJSON, Output: &buf})

	l.Debug("cache fill", "device", "attiny13", "bytes", 2)

	var record map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record))
	assert.Equal(t, "cache fill", record["msg"])
	assert.Equal(t, "attiny13", record["device"])
	assert.Equal(t, float64(2), record["bytes"])
	assert.NotContains(t, record, "component")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "", want: slog.LevelInfo},
		{in: "INFO", want: slog.LevelInfo},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "trace", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestNopAndOrNop(t *testing.T) {
	assert.NotPanics(t, func() {
		l := OrNop(nil)
		l.Debug("x")
		l.Info("x")
		l.Warn("x")
		l.Error("x")
	})

	var buf bytes.Buffer
	l := FromSlog(slog.New(slog.NewTextHandler(&buf, nil)))
	assert.Same(t, l, OrNop(l))
	l.Info("hello")
	assert.True(t, strings.Contains(buf.String(), "hello"))
	assert.Equal(t, Nop(), FromSlog(nil))
}
