package lsp

import (
	"errors"
	"fmt"
	"math"

	"fortio.org/safecast"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/dshills/exthost/internal/diagnostics"
	"github.com/dshills/exthost/internal/engine"
	"github.com/dshills/exthost/internal/engine/buffer"
	"github.com/dshills/exthost/internal/uri"
	"github.com/dshills/exthost/internal/workspace"
)

// ErrUnknownChange indicates a content change of an unexpected type.
var ErrUnknownChange = errors.New("unknown content change type")

// ToPosition converts a document position. Positions share the UTF-16
// column convention, so only the integer width changes.
func ToPosition(p engine.Position) (protocol.Position, error) {
	line, err := safecast.Conv[protocol.UInteger](p.Line)
	if err != nil {
		return protocol.Position{}, fmt.Errorf("line %d: %w", p.Line, err)
	}
	char, err := safecast.Conv[protocol.UInteger](p.Character)
	if err != nil {
		return protocol.Position{}, fmt.Errorf("character %d: %w", p.Character, err)
	}
	return protocol.Position{Line: line, Character: char}, nil
}

// FromPosition converts a protocol position.
func FromPosition(p protocol.Position) (engine.Position, error) {
	line, err := safecast.Conv[int](p.Line)
	if err != nil {
		return engine.Position{}, err
	}
	char, err := safecast.Conv[int](p.Character)
	if err != nil {
		return engine.Position{}, err
	}
	return engine.Position{Line: line, Character: char}, nil
}

// ToRange converts a document range.
func ToRange(r engine.Range) (protocol.Range, error) {
	start, err := ToPosition(r.Start)
	if err != nil {
		return protocol.Range{}, err
	}
	end, err := ToPosition(r.End)
	if err != nil {
		return protocol.Range{}, err
	}
	return protocol.Range{Start: start, End: end}, nil
}

// FromRange converts a protocol range.
func FromRange(r protocol.Range) (engine.Range, error) {
	start, err := FromPosition(r.Start)
	if err != nil {
		return engine.Range{}, err
	}
	end, err := FromPosition(r.End)
	if err != nil {
		return engine.Range{}, err
	}
	return engine.Range{Start: start, End: end}, nil
}

// ToTextEdits converts edits for a response.
func ToTextEdits(edits []engine.Edit) ([]protocol.TextEdit, error) {
	out := make([]protocol.TextEdit, 0, len(edits))
	for _, e := range edits {
		r, err := ToRange(e.Range)
		if err != nil {
			return nil, err
		}
		out = append(out, protocol.TextEdit{Range: r, NewText: e.NewText})
	}
	return out, nil
}

// FromTextEdits converts protocol edits into replace operations.
func FromTextEdits(edits []protocol.TextEdit) ([]engine.Edit, error) {
	out := make([]engine.Edit, 0, len(edits))
	for _, e := range edits {
		r, err := FromRange(e.Range)
		if err != nil {
			return nil, err
		}
		out = append(out, engine.NewReplace(r, e.NewText))
	}
	return out, nil
}

// ToWorkspaceEdit converts a batch into the protocol's changes map.
func ToWorkspaceEdit(e *workspace.Edit) (protocol.WorkspaceEdit, error) {
	changes := make(map[protocol.DocumentUri][]protocol.TextEdit)
	for _, entry := range e.Entries() {
		edits, err := ToTextEdits(entry.Edits)
		if err != nil {
			return protocol.WorkspaceEdit{}, fmt.Errorf("%s: %w", entry.URI, err)
		}
		changes[entry.URI.String()] = edits
	}
	return protocol.WorkspaceEdit{Changes: changes}, nil
}

// FromWorkspaceEdit converts the changes map of a protocol edit into a
// batch. Document changes with resource operations are not supported.
func FromWorkspaceEdit(we protocol.WorkspaceEdit) (*workspace.Edit, error) {
	e := workspace.NewEdit()
	for raw, textEdits := range we.Changes {
		u, err := uri.Parse(raw)
		if err != nil {
			return nil, err
		}
		edits, err := FromTextEdits(textEdits)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", raw, err)
		}
		e.Set(u, edits)
	}
	return e, nil
}

// ToDiagnostic converts a diagnostic for publishing.
func ToDiagnostic(d diagnostics.Diagnostic) (protocol.Diagnostic, error) {
	r, err := ToRange(d.Range)
	if err != nil {
		return protocol.Diagnostic{}, err
	}
	severity := toSeverity(d.Severity)
	out := protocol.Diagnostic{
		Range:    r,
		Severity: &severity,
		Message:  d.Message,
	}
	if !d.Code.IsZero() {
		code, err := toCode(d.Code)
		if err != nil {
			return protocol.Diagnostic{}, err
		}
		out.Code = code
	}
	if d.Source != "" {
		source := d.Source
		out.Source = &source
	}
	for _, t := range d.Tags {
		switch t {
		case diagnostics.TagUnnecessary:
			out.Tags = append(out.Tags, protocol.DiagnosticTagUnnecessary)
		case diagnostics.TagDeprecated:
			out.Tags = append(out.Tags, protocol.DiagnosticTagDeprecated)
		}
	}
	for _, rel := range d.Related {
		rr, err := ToRange(rel.Range)
		if err != nil {
			return protocol.Diagnostic{}, err
		}
		out.RelatedInformation = append(out.RelatedInformation, protocol.DiagnosticRelatedInformation{
			Location: protocol.Location{URI: rel.URI.String(), Range: rr},
			Message:  rel.Message,
		})
	}
	return out, nil
}

// ToDiagnostics converts a list, never returning nil.
func ToDiagnostics(diags []diagnostics.Diagnostic) ([]protocol.Diagnostic, error) {
	out := make([]protocol.Diagnostic, 0, len(diags))
	for _, d := range diags {
		pd, err := ToDiagnostic(d)
		if err != nil {
			return nil, err
		}
		out = append(out, pd)
	}
	return out, nil
}

// FromDiagnostic converts a client-supplied diagnostic, as found in code
// action contexts.
func FromDiagnostic(d protocol.Diagnostic) (diagnostics.Diagnostic, error) {
	r, err := FromRange(d.Range)
	if err != nil {
		return diagnostics.Diagnostic{}, err
	}
	out := diagnostics.New(r, d.Message)
	if d.Severity != nil {
		out.Severity = fromSeverity(*d.Severity)
	}
	if d.Source != nil {
		out.Source = *d.Source
	}
	if d.Code != nil {
		switch v := d.Code.Value.(type) {
		case string:
			out.Code = diagnostics.StringCode(v)
		case protocol.Integer:
			out.Code = diagnostics.IntCode(int(v))
		case float64:
			// Decoded JSON numbers.
			if v == math.Trunc(v) && v >= math.MinInt32 && v <= math.MaxInt32 {
				out.Code = diagnostics.IntCode(int(v))
			}
		}
	}
	for _, t := range d.Tags {
		switch t {
		case protocol.DiagnosticTagUnnecessary:
			out.Tags = append(out.Tags, diagnostics.TagUnnecessary)
		case protocol.DiagnosticTagDeprecated:
			out.Tags = append(out.Tags, diagnostics.TagDeprecated)
		}
	}
	for _, rel := range d.RelatedInformation {
		u, err := uri.Parse(rel.Location.URI)
		if err != nil {
			return diagnostics.Diagnostic{}, err
		}
		rr, err := FromRange(rel.Location.Range)
		if err != nil {
			return diagnostics.Diagnostic{}, err
		}
		out.Related = append(out.Related, diagnostics.RelatedInformation{URI: u, Range: rr, Message: rel.Message})
	}
	return out, nil
}

func toCode(c diagnostics.Code) (*protocol.IntegerOrString, error) {
	n, ok := c.Int()
	if !ok {
		return &protocol.IntegerOrString{Value: c.String()}, nil
	}
	v, err := safecast.Conv[protocol.Integer](n)
	if err != nil {
		return nil, fmt.Errorf("diagnostic code %d: %w", n, err)
	}
	return &protocol.IntegerOrString{Value: v}, nil
}

func toSeverity(s diagnostics.Severity) protocol.DiagnosticSeverity {
	switch s {
	case diagnostics.SeverityWarning:
		return protocol.DiagnosticSeverityWarning
	case diagnostics.SeverityInformation:
		return protocol.DiagnosticSeverityInformation
	case diagnostics.SeverityHint:
		return protocol.DiagnosticSeverityHint
	default:
		return protocol.DiagnosticSeverityError
	}
}

func fromSeverity(s protocol.DiagnosticSeverity) diagnostics.Severity {
	switch s {
	case protocol.DiagnosticSeverityWarning:
		return diagnostics.SeverityWarning
	case protocol.DiagnosticSeverityInformation:
		return diagnostics.SeverityInformation
	case protocol.DiagnosticSeverityHint:
		return diagnostics.SeverityHint
	default:
		return diagnostics.SeverityError
	}
}

// wholeDocument is a range covering any document; ValidateRange clamps it.
var wholeDocument = engine.Range{
	End: engine.Position{Line: math.MaxInt32, Character: math.MaxInt32},
}

// contentChange is a decoded didChange entry. A nil Range replaces the
// whole document.
type contentChange struct {
	Range *engine.Range
	Text  string
}

func decodeContentChanges(changes []any) ([]contentChange, error) {
	out := make([]contentChange, 0, len(changes))
	for i, raw := range changes {
		switch c := raw.(type) {
		case protocol.TextDocumentContentChangeEvent:
			if c.Range == nil {
				out = append(out, contentChange{Text: c.Text})
				continue
			}
			r, err := FromRange(*c.Range)
			if err != nil {
				return nil, fmt.Errorf("change %d: %w", i, err)
			}
			out = append(out, contentChange{Range: &r, Text: c.Text})
		case protocol.TextDocumentContentChangeEventWhole:
			out = append(out, contentChange{Text: c.Text})
		default:
			return nil, fmt.Errorf("change %d: %w: %T", i, ErrUnknownChange, raw)
		}
	}
	return out, nil
}

// ApplyContentChanges applies the content changes of a didChange
// notification in order, one transaction per change, since each change is
// expressed against the result of the previous one. The list is replayed on
// a copy of the text first: if any change is invalid nothing is committed.
// Each transaction is bound to the version the previous one produced, so a
// commit from elsewhere in between stops the sequence with
// engine.ErrVersionMismatch. It returns the number of commits that changed
// the document.
func ApplyContentChanges(doc *engine.Document, changes []any) (int, error) {
	decoded, err := decodeContentChanges(changes)
	if err != nil {
		return 0, err
	}

	snap, version := doc.Snapshot()
	scratch := buffer.New(snap.Text(), buffer.WithEOL(doc.EOL()))
	for i, c := range decoded {
		r := engine.Range{End: scratch.End()}
		if c.Range != nil {
			r = *c.Range
		}
		if _, err := scratch.Splice(r, c.Text); err != nil {
			return 0, fmt.Errorf("change %d: %w", i, err)
		}
	}

	commits := 0
	for i, c := range decoded {
		r := doc.ValidateRange(wholeDocument)
		if c.Range != nil {
			r = *c.Range
		}
		ev, err := doc.BeginAt(version).Replace(r, c.Text).Commit()
		if err != nil {
			return commits, fmt.Errorf("change %d: %w", i, err)
		}
		if ev != nil {
			commits++
			version = ev.Version
		}
	}
	return commits, nil
}
