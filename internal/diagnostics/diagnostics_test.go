package diagnostics

import (
	"errors"
	"testing"

	"github.com/dshills/exthost/internal/engine/buffer"
	"github.com/dshills/exthost/internal/uri"
)

var (
	fileA = uri.File("/ws/a.go")
	fileB = uri.File("/ws/b.go")
)

func diag(line int, msg string, sev Severity) Diagnostic {
	return Diagnostic{Range: buffer.MustRange(line, 0, line, 1), Message: msg, Severity: sev}
}

func TestCollectionSet(t *testing.T) {
	c := NewCollection("lint")
	var events []ChangeEvent
	c.OnDidChange()(func(e ChangeEvent) { events = append(events, e) })

	d := []Diagnostic{diag(0, "unused", SeverityWarning)}
	ok, err := c.Set(fileA, d).Result()
	if err != nil || !ok {
		t.Fatalf("set failed: %v", err)
	}
	if got := c.Get(fileA); len(got) != 1 || !got[0].Equal(d[0]) {
		t.Errorf("unexpected diagnostics %v", got)
	}

	// Identical input is a no-op.
	c.Set(fileA, []Diagnostic{diag(0, "unused", SeverityWarning)})
	if len(events) != 1 {
		t.Errorf("expected 1 event, got %d", len(events))
	}
	if events[0].Collection != "lint" || events[0].URIs[0] != fileA {
		t.Errorf("unexpected event %+v", events[0])
	}

	d[0].Message = "mutated"
	if c.Get(fileA)[0].Message != "unused" {
		t.Error("collection must copy its input")
	}

	c.Delete(fileA)
	if c.Has(fileA) || len(events) != 2 {
		t.Errorf("delete must remove and fire, has=%v events=%d", c.Has(fileA), len(events))
	}
	c.Delete(fileA)
	if len(events) != 2 {
		t.Error("deleting an absent resource must not fire")
	}
}

func TestCollectionSetAll(t *testing.T) {
	c := NewCollection("lint")
	c.SetAll([]Entry{
		{URI: fileA, Diagnostics: []Diagnostic{diag(0, "one", SeverityError)}},
		{URI: fileB, Diagnostics: []Diagnostic{diag(1, "two", SeverityError)}},
		{URI: fileA, Diagnostics: []Diagnostic{diag(2, "three", SeverityHint)}},
	})
	if got := c.Get(fileA); len(got) != 2 {
		t.Errorf("entries for the same uri must merge, got %d", len(got))
	}

	c.SetAll([]Entry{
		{URI: fileB, Diagnostics: []Diagnostic{diag(3, "stale", SeverityError)}},
		{URI: fileB, Diagnostics: nil},
		{URI: fileB, Diagnostics: []Diagnostic{diag(4, "fresh", SeverityError)}},
	})
	got := c.Get(fileB)
	if len(got) != 1 || got[0].Message != "fresh" {
		t.Errorf("nil entry must reset accumulated diagnostics, got %v", got)
	}

	var seen []uri.URI
	c.ForEach(func(u uri.URI, _ []Diagnostic) bool {
		seen = append(seen, u)
		return true
	})
	if len(seen) != 2 || seen[0] != fileA {
		t.Errorf("unexpected iteration %v", seen)
	}
}

func TestCollectionClearAndDispose(t *testing.T) {
	c := NewCollection("lint")
	c.Set(fileA, []Diagnostic{diag(0, "x", SeverityError)})
	c.Set(fileB, []Diagnostic{diag(0, "y", SeverityError)})

	var last ChangeEvent
	c.OnDidChange()(func(e ChangeEvent) { last = e })
	c.Clear()
	if len(last.URIs) != 2 || len(c.URIs()) != 0 {
		t.Errorf("clear must remove everything, event %v", last.URIs)
	}

	c.Dispose()
	if _, err := c.Set(fileA, []Diagnostic{diag(0, "z", SeverityError)}).Result(); !errors.Is(err, ErrDisposed) {
		t.Errorf("expected ErrDisposed, got %v", err)
	}
	c.Dispose()
}

func TestManager(t *testing.T) {
	m := NewManager(nil)
	lint := m.CreateCollection("lint")
	vet := m.CreateCollection("")
	if vet.Name() == "" {
		t.Error("unnamed collections get a generated name")
	}

	events := 0
	m.OnDidChange()(func(ChangeEvent) { events++ })

	lint.Set(fileA, []Diagnostic{diag(5, "late", SeverityWarning)})
	vet.Set(fileA, []Diagnostic{diag(1, "early", SeverityError)})

	got := m.Get(fileA)
	if len(got) != 2 || got[0].Message != "early" {
		t.Errorf("expected merged diagnostics sorted by position, got %v", got)
	}
	if events != 2 {
		t.Errorf("expected 2 forwarded events, got %d", events)
	}

	s := m.Summary()
	if s.Files != 1 || s.Errors != 1 || s.Warnings != 1 {
		t.Errorf("unexpected summary %+v", s)
	}

	vet.Dispose()
	if len(m.Collections()) != 1 || len(m.Get(fileA)) != 1 {
		t.Error("disposed collection must leave the manager")
	}
	m.Dispose()
}

func TestCode(t *testing.T) {
	if !(Code{}).IsZero() {
		t.Error("zero code must be unset")
	}
	if n, ok := IntCode(42).Int(); !ok || n != 42 {
		t.Errorf("unexpected int code %d %v", n, ok)
	}
	if StringCode("E42") == IntCode(42) {
		t.Error("string and int codes differ")
	}
	if IntCode(7).String() != "7" {
		t.Error("int code formats as decimal")
	}
}

func TestFormat(t *testing.T) {
	d := Diagnostic{
		Range:    buffer.MustRange(2, 4, 2, 8),
		Message:  "undefined: x",
		Severity: SeverityError,
		Code:     StringCode("UndeclaredName"),
		Source:   "compiler",
	}
	want := "main.go:3:5: E [compiler] undefined: x (UndeclaredName)"
	if got := FormatWithLocation("main.go", d); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want Severity
		ok   bool
	}{
		{"error", SeverityError, true},
		{"WARN", SeverityWarning, true},
		{"info", SeverityInformation, true},
		{"hint", SeverityHint, true},
		{"fatal", SeverityError, false},
	}
	for _, tt := range tests {
		got, ok := ParseSeverity(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseSeverity(%q) = %s, %v", tt.in, got, ok)
		}
	}
}
