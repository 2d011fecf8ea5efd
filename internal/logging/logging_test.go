package logging

import (
	"fmt"
	"testing"

	"github.com/tliron/commonlog"
)

type entry struct {
	level commonlog.Level
	msg   string
	kv    []any
}

type recorder struct {
	max     commonlog.Level
	entries []entry
}

func (r *recorder) AllowLevel(level commonlog.Level) bool {
	return level <= r.max
}

func (r *recorder) Log(level commonlog.Level, depth int, message string, keysAndValues ...any) {
	r.entries = append(r.entries, entry{level: level, msg: message, kv: keysAndValues})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warning", LevelWarn},
		{"Error", LevelError},
		{"bogus", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestLoggerFormatsAndFilters(t *testing.T) {
	rec := &recorder{max: commonlog.Info}
	l := NewWithSink("test", rec)

	l.Debug("hidden %d", 1)
	l.Info("shown %d", 2)
	l.Error("plain")

	if len(rec.entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(rec.entries))
	}
	if rec.entries[0].msg != "shown 2" {
		t.Errorf("expected %q, got %q", "shown 2", rec.entries[0].msg)
	}
	if rec.entries[1].level != commonlog.Error {
		t.Errorf("expected error level, got %v", rec.entries[1].level)
	}
}

func TestLoggerFields(t *testing.T) {
	rec := &recorder{max: commonlog.Debug}
	base := NewWithSink("test", rec)
	l := base.WithField("uri", "file:///a").WithFields(map[string]any{"version": 3})

	l.Warn("changed")
	base.Warn("bare")

	if len(rec.entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(rec.entries))
	}
	got := fmt.Sprint(rec.entries[0].kv...)
	want := fmt.Sprint("uri", "file:///a", "version", 3)
	if got != want {
		t.Errorf("expected fields %q, got %q", want, got)
	}
	if len(rec.entries[1].kv) != 0 {
		t.Errorf("parent logger must not see child fields, got %v", rec.entries[1].kv)
	}
}

func TestWithComponent(t *testing.T) {
	rec := &recorder{max: commonlog.Debug}
	l := NewWithSink("exthost", rec).WithField("k", "v").WithComponent("store")

	if l.Name() != "exthost.store" {
		t.Errorf("expected exthost.store, got %s", l.Name())
	}
	l.Info("hello")
	if len(rec.entries) != 1 || len(rec.entries[0].kv) != 2 {
		t.Errorf("expected one entry carrying the parent field, got %+v", rec.entries)
	}
}

func TestNopDiscards(t *testing.T) {
	if Nop.Enabled(LevelError) {
		t.Error("Nop must not be enabled")
	}
	Nop.WithComponent("x").Error("nothing")
}

func TestRecorder(t *testing.T) {
	l, rec := NewRecorder(LevelInfo)
	l.Debug("skipped")
	l.WithField("k", 1).Warn("careful %s", "now")

	if len(rec.Records()) != 1 {
		t.Fatalf("expected 1 record, got %d", len(rec.Records()))
	}
	if !rec.Contains(LevelWarn, "careful now") {
		t.Error("expected warning to be recorded")
	}
	if rec.Contains(LevelError, "careful") {
		t.Error("level must match")
	}
}
