package logger

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"pcstore/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{in: "debug", want: zerolog.DebugLevel},
		{in: "WARNING", want: zerolog.WarnLevel},
		{in: "", want: zerolog.InfoLevel},
		{in: "chatty", want: zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewWritesJSONWithService(t *testing.T) {
	var buf bytes.Buffer
	l := New(config.LoggingConfig{Level: "info", Format: "json", ServiceName: "assistant-test"}, &buf)

	l.Info().Str("intent", "monitor").Msg("classified")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if entry["service"] != "assistant-test" {
		t.Errorf("service = %v", entry["service"])
	}
	if entry["intent"] != "monitor" {
		t.Errorf("intent = %v", entry["intent"])
	}
}

func TestNewTeesToFile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "assistant.log")

	l := New(config.LoggingConfig{Level: "info", Format: "json", File: path, MaxSizeMB: 1, ServiceName: "s"}, &buf)
	l.Info().Msg("hello")

	if buf.Len() == 0 {
		t.Error("expected output on the primary writer")
	}
}
