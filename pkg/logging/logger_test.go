package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		name   string
		level  string
		enable slog.Level
	}{
		{"debug level", "debug", slog.LevelDebug},
		{"warn level", "warn", slog.LevelWarn},
		{"mixed case", "DEBUG", slog.LevelDebug},
		{"default info", "", slog.LevelInfo},
		{"unknown falls back to info", "verbose", slog.LevelInfo},
	}

	ctx := context.Background()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(tt.level)
			if !logger.Enabled(ctx, tt.enable) {
				t.Fatalf("expected level %s to be enabled", tt.enable)
			}
		})
	}
}

func TestNewWithWriterEmitsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("info", &buf)
	logger.Info("booking confirmed", "code", "APT-1")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("expected JSON log output, got %q: %v", buf.String(), err)
	}
	if record["msg"] != "booking confirmed" {
		t.Errorf("msg: got %v", record["msg"])
	}
	if record["code"] != "APT-1" {
		t.Errorf("code: got %v", record["code"])
	}
}

func TestNamed(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("info", &buf).Named("booking")
	logger.Info("hello")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if record["component"] != "booking" {
		t.Errorf("component: got %v", record["component"])
	}
}

func TestDefaultLogger(t *testing.T) {
	logger := Default()
	logger.Info("test message", "key", "value")

	ctx := context.Background()
	if !logger.Enabled(ctx, slog.LevelInfo) {
		t.Error("Default() should enable info level")
	}
	if logger.Enabled(ctx, slog.LevelDebug) {
		t.Error("Default() should not enable debug level")
	}
}
