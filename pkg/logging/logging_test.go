package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func decodeEntries(t *testing.T, buf *bytes.Buffer) []LogEntry {
	t.Helper()
	var entries []LogEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e LogEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		entries = append(entries, e)
	}
	return entries
}

func TestJSONLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSONLogger(&buf, WarnLevel)

	log.Debug("debug msg")
	log.Info("info msg")
	log.Warn("warn msg")
	log.Error("error msg")

	entries := decodeEntries(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Level != "WARN" || entries[1].Level != "ERROR" {
		t.Errorf("unexpected levels: %v %v", entries[0].Level, entries[1].Level)
	}
}

func TestJSONLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSONLogger(&buf, InfoLevel)

	log.Info("merged",
		Component("ccmerge"),
		String("group", "GT1"),
		Int("members", 2),
		Float64("p_nom", 550))

	entries := decodeEntries(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].Fields
	if fields["component"] != "ccmerge" || fields["group"] != "GT1" {
		t.Errorf("fields missing: %v", fields)
	}
	if fields["members"].(float64) != 2 {
		t.Errorf("int field: %v", fields["members"])
	}
}

func TestWithPresetFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSONLogger(&buf, InfoLevel)

	child := log.With(String("run_id", "abc"))
	child.Info("stage done", Stage("resample"))

	entries := decodeEntries(t, &buf)
	fields := entries[0].Fields
	if fields["run_id"] != "abc" || fields["stage"] != "resample" {
		t.Errorf("preset fields missing: %v", fields)
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	tests := map[string]Level{
		"debug":   DebugLevel,
		"WARN":    WarnLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
		"":        InfoLevel,
		"bogus":   InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNopLogger(t *testing.T) {
	log := NewNopLogger()
	log.Info("ignored")
	if child := log.With(String("k", "v")); child == nil {
		t.Fatal("With returned nil")
	}
}
