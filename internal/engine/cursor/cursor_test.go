package cursor

import (
	"testing"

	"github.com/dshills/exthost/internal/engine/buffer"
)

func pos(line, char int) Position {
	return Position{Line: line, Character: char}
}

func TestSelectionIsReversed(t *testing.T) {
	if !NewSelection(pos(0, 5), pos(0, 2)).IsReversed() {
		t.Error("anchor (0,5) active (0,2) should be reversed")
	}
	if NewSelection(pos(0, 2), pos(0, 5)).IsReversed() {
		t.Error("anchor (0,2) active (0,5) should not be reversed")
	}
	if NewCursorSelection(pos(1, 1)).IsReversed() {
		t.Error("a cursor is never reversed")
	}
}

func TestSelectionStartEnd(t *testing.T) {
	s := NewSelection(pos(2, 1), pos(0, 4))

	if s.Anchor != pos(2, 1) || s.Active != pos(0, 4) {
		t.Errorf("anchor/active must be kept verbatim, got %s", s)
	}
	if s.Start() != pos(0, 4) {
		t.Errorf("expected start (0:4), got %s", s.Start())
	}
	if s.End() != pos(2, 1) {
		t.Errorf("expected end (2:1), got %s", s.End())
	}
	if s.Range() != buffer.MustRange(0, 4, 2, 1) {
		t.Errorf("unexpected range %s", s.Range())
	}
	if s.IsSingleLine() {
		t.Error("selection spans lines")
	}
	if got := s.Flip(); got.Anchor != s.Active || got.Active != s.Anchor {
		t.Errorf("flip mismatch: %s", got)
	}
}

func TestRemapPosition(t *testing.T) {
	tests := []struct {
		name    string
		p       Position
		changes []Change
		want    Position
	}{
		{
			name:    "before edit unchanged",
			p:       pos(0, 1),
			changes: []Change{{Range: buffer.MustRange(0, 3, 0, 3), Text: "abc"}},
			want:    pos(0, 1),
		},
		{
			name:    "insert before on same line shifts by N",
			p:       pos(0, 5),
			changes: []Change{{Range: buffer.MustRange(0, 2, 0, 2), Text: "abc"}},
			want:    pos(0, 8),
		},
		{
			name:    "insert at position pushes it",
			p:       pos(0, 2),
			changes: []Change{{Range: buffer.MustRange(0, 2, 0, 2), Text: "xy"}},
			want:    pos(0, 4),
		},
		{
			name:    "at start of replaced range stays",
			p:       pos(0, 2),
			changes: []Change{{Range: buffer.MustRange(0, 2, 0, 4), Text: "Z"}},
			want:    pos(0, 2),
		},
		{
			name:    "inside deleted range collapses to edit end",
			p:       pos(0, 4),
			changes: []Change{{Range: buffer.MustRange(0, 2, 0, 7), Text: ""}},
			want:    pos(0, 2),
		},
		{
			name:    "inside replaced range collapses after inserted text",
			p:       pos(1, 0),
			changes: []Change{{Range: buffer.MustRange(0, 2, 2, 1), Text: "ab\ncd"}},
			want:    pos(1, 2),
		},
		{
			name:    "newline inserted before moves line",
			p:       pos(0, 6),
			changes: []Change{{Range: buffer.MustRange(0, 2, 0, 2), Text: "x\nyz"}},
			want:    pos(1, 6),
		},
		{
			name:    "lines removed above shift line only",
			p:       pos(5, 3),
			changes: []Change{{Range: buffer.MustRange(1, 0, 3, 0), Text: ""}},
			want:    pos(3, 3),
		},
		{
			name: "multiple changes on one line",
			p:    pos(0, 5),
			changes: []Change{
				{Range: buffer.MustRange(0, 1, 0, 2), Text: "XX"},
				{Range: buffer.MustRange(0, 4, 0, 4), Text: "Y"},
			},
			want: pos(0, 7),
		},
		{
			name: "two inserts at same point",
			p:    pos(0, 1),
			changes: []Change{
				{Range: buffer.MustRange(0, 1, 0, 1), Text: "a"},
				{Range: buffer.MustRange(0, 1, 0, 1), Text: "b"},
			},
			want: pos(0, 3),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RemapPosition(tt.p, tt.changes); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestRemapRangeKeepsOrder(t *testing.T) {
	r := buffer.MustRange(0, 3, 0, 5)
	changes := []Change{{Range: buffer.MustRange(0, 0, 0, 10), Text: ""}}

	got := RemapRange(r, changes)
	if got != buffer.MustRange(0, 0, 0, 0) {
		t.Errorf("expected collapsed range at (0:0), got %s", got)
	}
}

func TestSetPrimaryAndOrder(t *testing.T) {
	s := NewSet(NewCursorSelection(pos(3, 0)), NewCursorSelection(pos(1, 0)))

	if s.Len() != 2 {
		t.Fatalf("expected 2 selections, got %d", s.Len())
	}
	if s.Primary().Active != pos(3, 0) {
		t.Errorf("primary must be the first given, got %s", s.Primary())
	}

	all := s.All()
	all[0] = NewCursorSelection(pos(9, 9))
	if s.Primary().Active != pos(3, 0) {
		t.Error("All must return a copy")
	}
}

func TestSetNeverEmpty(t *testing.T) {
	s := NewSet()
	if s.Len() != 1 || s.Primary() != (Selection{}) {
		t.Errorf("expected single cursor at origin, got %v", s.All())
	}
	s.Replace(nil)
	if s.Len() != 1 {
		t.Errorf("expected 1 selection after empty replace, got %d", s.Len())
	}
}

func TestSetRemapClamps(t *testing.T) {
	s := NewSet(NewSelection(pos(0, 1), pos(0, 9)))
	changes := []Change{{Range: buffer.MustRange(0, 0, 0, 0), Text: "ab"}}
	clamp := func(p Position) Position {
		if p.Character > 10 {
			p.Character = 10
		}
		return p
	}

	if !s.Remap(changes, clamp) {
		t.Fatal("expected a change")
	}
	got := s.Primary()
	if got.Anchor != pos(0, 3) || got.Active != pos(0, 10) {
		t.Errorf("unexpected selection %s", got)
	}
	if s.Remap(nil, clamp) {
		t.Error("remap without changes should be stable")
	}
}
