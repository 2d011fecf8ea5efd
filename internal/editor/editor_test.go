package editor

import (
	"context"
	"errors"
	"testing"

	"github.com/dshills/exthost/internal/engine"
	"github.com/dshills/exthost/internal/engine/buffer"
	"github.com/dshills/exthost/internal/engine/cursor"
	"github.com/dshills/exthost/internal/uri"
)

func newDoc(text string) *engine.Document {
	return engine.NewDocument(uri.Untitled("Untitled-1"), "plaintext", text)
}

func pos(line, char int) engine.Position {
	return engine.Position{Line: line, Character: char}
}

func cur(line, char int) cursor.Selection {
	return cursor.NewCursorSelection(pos(line, char))
}

func TestNewEditor(t *testing.T) {
	doc := newDoc("abc\ndef")
	e := New(doc, WithSelections(cur(5, 9)))
	defer e.Dispose()

	if e.ID() == "" {
		t.Error("editor needs an id")
	}
	if other := New(doc); other.ID() == e.ID() {
		t.Error("editor ids must be unique")
	}
	if got := e.Selection(); got != cur(1, 3) {
		t.Errorf("initial selection must be clamped, got %s", got)
	}
	if e.Options() != DefaultOptions() {
		t.Errorf("unexpected options %+v", e.Options())
	}
}

func TestSelectionRemapOnInsert(t *testing.T) {
	doc := newDoc("hello world")
	e := New(doc, WithSelections(cur(0, 6), cur(0, 2)))
	defer e.Dispose()

	var events []SelectionChangeEvent
	e.OnDidChangeSelection()(func(ev SelectionChangeEvent) { events = append(events, ev) })

	if _, err := doc.Begin().Insert(pos(0, 4), "XYZ").Commit(); err != nil {
		t.Fatal(err)
	}

	got := e.Selections()
	if got[0] != cur(0, 9) {
		t.Errorf("cursor after insert must shift by 3, got %s", got[0])
	}
	if got[1] != cur(0, 2) {
		t.Errorf("cursor before insert must not move, got %s", got[1])
	}
	if len(events) != 1 || events[0].Kind != ChangeEdit {
		t.Fatalf("expected one edit selection event, got %+v", events)
	}
}

func TestSelectionCollapseOnDelete(t *testing.T) {
	doc := newDoc("0123456789")
	e := New(doc, WithSelections(cursor.NewSelection(pos(0, 3), pos(0, 8))))
	defer e.Dispose()

	if _, err := doc.Begin().Replace(buffer.MustRange(0, 2, 0, 9), "ab").Commit(); err != nil {
		t.Fatal(err)
	}
	if got := e.Selection(); got != cur(0, 4) {
		t.Errorf("selection inside replaced range must collapse to its new end, got %s", got)
	}
}

func TestSelectionRemapAcrossLines(t *testing.T) {
	doc := newDoc("a\nb\nc")
	e := New(doc, WithSelections(cur(2, 1)))
	defer e.Dispose()

	if _, err := doc.Begin().Insert(pos(0, 0), "x\ny\n").Commit(); err != nil {
		t.Fatal(err)
	}
	if got := e.Selection(); got != cur(4, 1) {
		t.Errorf("expected line shift by 2, got %s", got)
	}
}

func TestSelectionClampedAfterShrink(t *testing.T) {
	doc := newDoc("abc\ndef\nghi")
	e := New(doc, WithSelections(cur(2, 3)))
	defer e.Dispose()

	if _, err := doc.Begin().Delete(buffer.MustRange(0, 0, 2, 3)).Commit(); err != nil {
		t.Fatal(err)
	}
	if got := e.Selection(); got != cur(0, 0) {
		t.Errorf("expected cursor at document start, got %s", got)
	}
}

func TestReversedSelectionPreserved(t *testing.T) {
	doc := newDoc("hello world")
	sel := cursor.NewSelection(pos(0, 8), pos(0, 2))
	e := New(doc, WithSelections(sel))
	defer e.Dispose()

	if !e.Selection().IsReversed() {
		t.Fatal("selection must keep its direction")
	}
	if _, err := doc.Begin().Insert(pos(0, 0), ">").Commit(); err != nil {
		t.Fatal(err)
	}
	got := e.Selection()
	if !got.IsReversed() || got.Anchor != pos(0, 9) || got.Active != pos(0, 3) {
		t.Errorf("unexpected remapped selection %s", got)
	}
}

func TestSetSelections(t *testing.T) {
	doc := newDoc("abc")
	e := New(doc)
	defer e.Dispose()

	count := 0
	var last SelectionChangeEvent
	e.OnDidChangeSelection()(func(ev SelectionChangeEvent) {
		count++
		last = ev
	})

	e.SetSelections([]cursor.Selection{cur(0, 1), cur(0, 99)})
	if count != 1 || last.Kind != ChangeCommand {
		t.Fatalf("expected one command event, got %d", count)
	}
	if got := e.Selections(); got[1] != cur(0, 3) {
		t.Errorf("selections must be clamped, got %s", got[1])
	}

	e.SetSelections([]cursor.Selection{cur(0, 1), cur(0, 3)})
	if count != 1 {
		t.Error("setting identical selections must not fire")
	}

	e.SetSelections(nil)
	if got := e.Selections(); len(got) != 1 || got[0] != cur(0, 0) {
		t.Errorf("empty set must leave a single cursor, got %v", got)
	}
}

func TestSetOptions(t *testing.T) {
	e := New(newDoc(""))
	defer e.Dispose()

	var got []Options
	e.OnDidChangeOptions()(func(ev OptionsChangeEvent) { got = append(got, ev.Options) })

	e.SetOptions(Options{TabSize: 2, InsertSpaces: true})
	e.SetOptions(Options{TabSize: 2, InsertSpaces: true})
	e.SetOptions(Options{TabSize: 0, InsertSpaces: false})

	if len(got) != 2 {
		t.Fatalf("expected 2 option events, got %d", len(got))
	}
	if got[1].TabSize != 4 {
		t.Errorf("invalid tab size must be normalized, got %d", got[1].TabSize)
	}
	if e.Options().Indent() != "\t" {
		t.Errorf("expected tab indent, got %q", e.Options().Indent())
	}
	if (Options{TabSize: 2, InsertSpaces: true}).Indent() != "  " {
		t.Error("expected two-space indent")
	}
}

func TestEdit(t *testing.T) {
	doc := newDoc("foo bar")
	e := New(doc, WithSelections(cur(0, 7)))
	defer e.Dispose()
	ctx := context.Background()

	ok, err := e.Edit(func(b *EditBuilder) {
		b.Replace(buffer.MustRange(0, 0, 0, 3), "baz")
		b.Insert(pos(0, 7), "!")
	}).Await(ctx)
	if err != nil || !ok {
		t.Fatalf("edit failed: %v", err)
	}
	if doc.Text() != "baz bar!" || doc.Version() != engine.DefaultVersion+1 {
		t.Errorf("unexpected document %q v%d", doc.Text(), doc.Version())
	}
	if got := e.Selection(); got != cur(0, 8) {
		t.Errorf("cursor at insertion point must follow the text, got %s", got)
	}

	ok, err = e.Edit(func(b *EditBuilder) {
		b.Delete(buffer.MustRange(0, 0, 0, 4))
		b.Delete(buffer.MustRange(0, 2, 0, 6))
	}).Await(ctx)
	if ok || !errors.Is(err, engine.ErrEditsOverlap) {
		t.Errorf("expected overlap failure, got %v %v", ok, err)
	}
	if doc.Text() != "baz bar!" {
		t.Error("failed edit must not mutate the document")
	}
}

func TestEditDuringCommitRejected(t *testing.T) {
	doc := newDoc("abc")
	e := New(doc)
	defer e.Dispose()

	var nested error
	doc.OnDidChange()(func(engine.ChangeEvent) {
		_, nested = e.Edit(func(b *EditBuilder) { b.Insert(pos(0, 0), "x") }).Result()
	})
	if _, err := doc.Begin().Insert(pos(0, 3), "d").Commit(); err != nil {
		t.Fatal(err)
	}
	if !errors.Is(nested, engine.ErrTransactionInProgress) {
		t.Errorf("expected ErrTransactionInProgress, got %v", nested)
	}
}

func TestDispose(t *testing.T) {
	doc := newDoc("abc")
	e := New(doc, WithSelections(cur(0, 3)))
	e.Dispose()
	e.Dispose()

	if _, err := doc.Begin().Insert(pos(0, 0), "xx").Commit(); err != nil {
		t.Fatal(err)
	}
	if got := e.Selection(); got != cur(0, 3) {
		t.Errorf("disposed editor must not track changes, got %s", got)
	}
	if _, err := e.Edit(func(*EditBuilder) {}).Result(); !errors.Is(err, ErrDisposed) {
		t.Errorf("expected ErrDisposed, got %v", err)
	}
}

func TestUndoRedo(t *testing.T) {
	doc := newDoc("abc")
	e := New(doc, WithSelections(cur(0, 3)))
	defer e.Dispose()
	ctx := context.Background()

	if _, err := e.Edit(func(b *EditBuilder) { b.Insert(pos(0, 3), "def") }).Await(ctx); err != nil {
		t.Fatal(err)
	}
	if got := e.Selection(); got != cur(0, 6) {
		t.Fatalf("unexpected selection %s", got)
	}

	ok, err := e.Undo().Await(ctx)
	if err != nil || !ok {
		t.Fatalf("undo failed: %v", err)
	}
	if doc.Text() != "abc" {
		t.Errorf("expected %q, got %q", "abc", doc.Text())
	}
	if got := e.Selection(); got != cur(0, 3) {
		t.Errorf("undo must remap the selection, got %s", got)
	}

	if ok, _ := e.Undo().Await(ctx); ok {
		t.Error("undo with an empty history must resolve to false")
	}
	if ok, err := e.Redo().Await(ctx); err != nil || !ok {
		t.Fatalf("redo failed: %v", err)
	}
	if doc.Text() != "abcdef" {
		t.Errorf("expected %q, got %q", "abcdef", doc.Text())
	}
}

func TestEditUndoStops(t *testing.T) {
	doc := newDoc("")
	e := New(doc)
	defer e.Dispose()
	ctx := context.Background()

	insert := func(at int, text string, opts EditOptions) {
		t.Helper()
		if _, err := e.EditWithOptions(func(b *EditBuilder) { b.Insert(pos(0, at), text) }, opts).Await(ctx); err != nil {
			t.Fatal(err)
		}
	}
	insert(0, "a", DefaultEditOptions)
	insert(1, "b", EditOptions{UndoStopBefore: false, UndoStopAfter: true})
	insert(2, "c", EditOptions{UndoStopBefore: true, UndoStopAfter: false})
	insert(3, "d", DefaultEditOptions)

	if n := e.History().UndoCount(); n != 2 {
		t.Fatalf("expected 2 undo entries, got %d", n)
	}
	if _, err := e.Undo().Await(ctx); err != nil {
		t.Fatal(err)
	}
	if doc.Text() != "ab" {
		t.Errorf("expected %q, got %q", "ab", doc.Text())
	}
}

func TestJoiningEditThatDoesNotCommit(t *testing.T) {
	join := EditOptions{UndoStopBefore: false, UndoStopAfter: true}
	tests := []struct {
		name    string
		edit    func(b *EditBuilder)
		wantErr bool
	}{
		{"rejected", func(b *EditBuilder) { b.Insert(pos(5, 0), "x") }, true},
		{"no-op", func(b *EditBuilder) { b.Insert(pos(0, 0), "") }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := newDoc("")
			e := New(doc)
			defer e.Dispose()
			ctx := context.Background()

			if _, err := e.Edit(func(b *EditBuilder) { b.Insert(pos(0, 0), "a") }).Await(ctx); err != nil {
				t.Fatal(err)
			}
			_, err := e.EditWithOptions(tt.edit, join).Await(ctx)
			if (err != nil) != tt.wantErr {
				t.Fatalf("joining edit err = %v, wantErr %v", err, tt.wantErr)
			}
			if e.History().JoinPending() {
				t.Error("a join must not stay pending after an edit that did not commit")
			}
			if _, err := e.Edit(func(b *EditBuilder) { b.Insert(pos(0, 1), "b") }).Await(ctx); err != nil {
				t.Fatal(err)
			}

			if n := e.History().UndoCount(); n != 2 {
				t.Fatalf("expected 2 undo entries, got %d", n)
			}
			if _, err := e.Undo().Await(ctx); err != nil {
				t.Fatal(err)
			}
			if doc.Text() != "a" {
				t.Errorf("expected %q, got %q", "a", doc.Text())
			}
		})
	}
}

func TestJoinAfterUndoStopSurvivesFailedEdit(t *testing.T) {
	doc := newDoc("")
	e := New(doc)
	defer e.Dispose()
	ctx := context.Background()

	open := EditOptions{UndoStopBefore: true, UndoStopAfter: false}
	if _, err := e.EditWithOptions(func(b *EditBuilder) { b.Insert(pos(0, 0), "a") }, open).Await(ctx); err != nil {
		t.Fatal(err)
	}
	join := EditOptions{UndoStopBefore: false, UndoStopAfter: true}
	if _, err := e.EditWithOptions(func(b *EditBuilder) { b.Insert(pos(5, 0), "x") }, join).Await(ctx); err == nil {
		t.Fatal("expected the out of range edit to fail")
	}
	if !e.History().JoinPending() {
		t.Error("the join requested by UndoStopAfter must stay pending")
	}
}

func TestSharedHistory(t *testing.T) {
	doc := newDoc("x")
	first := New(doc)
	defer first.Dispose()
	second := New(doc, WithHistory(first.History()))
	second.Dispose()

	if _, err := doc.Begin().Insert(pos(0, 1), "y").Commit(); err != nil {
		t.Fatal(err)
	}
	if !first.History().CanUndo() {
		t.Error("disposing an editor must not dispose a history it does not own")
	}
}
