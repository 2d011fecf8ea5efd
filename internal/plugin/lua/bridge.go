package lua

import (
	"fmt"
	"math"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/exthost/internal/diagnostics"
	"github.com/dshills/exthost/internal/engine"
)

// Positions and ranges cross the bridge zero-based, in UTF-16 code units,
// as {line = n, character = n}. Ranges are {start = pos, ["end"] = pos}
// or the shorthand {startLine, startChar, endLine, endChar}.

func positionTable(L *lua.LState, p engine.Position) *lua.LTable {
	t := L.CreateTable(0, 2)
	t.RawSetString("line", lua.LNumber(p.Line))
	t.RawSetString("character", lua.LNumber(p.Character))
	return t
}

func rangeTable(L *lua.LState, r engine.Range) *lua.LTable {
	t := L.CreateTable(0, 2)
	t.RawSetString("start", positionTable(L, r.Start))
	t.RawSetString("end", positionTable(L, r.End))
	return t
}

func toInt(v lua.LValue) (int, bool) {
	n, ok := v.(lua.LNumber)
	if !ok {
		return 0, false
	}
	f := float64(n)
	if f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func toPosition(v lua.LValue) (engine.Position, error) {
	t, ok := v.(*lua.LTable)
	if !ok {
		return engine.Position{}, fmt.Errorf("%w: position must be a table, got %s", ErrBadResult, v.Type())
	}
	line, ok1 := toInt(t.RawGetString("line"))
	char, ok2 := toInt(t.RawGetString("character"))
	if !ok1 || !ok2 {
		return engine.Position{}, fmt.Errorf("%w: position needs integer line and character", ErrBadResult)
	}
	return engine.Position{Line: line, Character: char}, nil
}

func toRange(v lua.LValue) (engine.Range, error) {
	t, ok := v.(*lua.LTable)
	if !ok {
		return engine.Range{}, fmt.Errorf("%w: range must be a table, got %s", ErrBadResult, v.Type())
	}
	if t.Len() == 4 {
		var n [4]int
		for i := range n {
			v, ok := toInt(t.RawGetInt(i + 1))
			if !ok {
				return engine.Range{}, fmt.Errorf("%w: range element %d is not an integer", ErrBadResult, i+1)
			}
			n[i] = v
		}
		return engine.Range{
			Start: engine.Position{Line: n[0], Character: n[1]},
			End:   engine.Position{Line: n[2], Character: n[3]},
		}, nil
	}
	start, err := toPosition(t.RawGetString("start"))
	if err != nil {
		return engine.Range{}, err
	}
	end, err := toPosition(t.RawGetString("end"))
	if err != nil {
		return engine.Range{}, err
	}
	return engine.Range{Start: start, End: end}, nil
}

// documentTable exposes doc to a script as a read-only table. Fields are
// captured when the table is built; methods read the live document.
//
//	doc.uri, doc.file_name, doc.language, doc.version, doc.line_count,
//	doc.eol, doc.dirty, doc.untitled
//	doc:text([range]) doc:line(n) doc:word_at(pos)
//	doc:offset_at(pos) doc:position_at(offset)
func documentTable(L *lua.LState, doc *engine.Document) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("uri", lua.LString(doc.URI().String()))
	t.RawSetString("file_name", lua.LString(doc.FileName()))
	t.RawSetString("language", lua.LString(doc.LanguageID()))
	t.RawSetString("version", lua.LNumber(doc.Version()))
	t.RawSetString("line_count", lua.LNumber(doc.LineCount()))
	t.RawSetString("dirty", lua.LBool(doc.IsDirty()))
	t.RawSetString("untitled", lua.LBool(doc.IsUntitled()))
	eol := "lf"
	if doc.EOL() == engine.EOLCRLF {
		eol = "crlf"
	}
	t.RawSetString("eol", lua.LString(eol))

	methods := map[string]lua.LGFunction{
		"text": func(L *lua.LState) int {
			if L.GetTop() < 2 || L.Get(2) == lua.LNil {
				L.Push(lua.LString(doc.Text()))
				return 1
			}
			r, err := toRange(L.Get(2))
			if err != nil {
				L.ArgError(2, err.Error())
			}
			L.Push(lua.LString(doc.TextInRange(r)))
			return 1
		},
		"line": func(L *lua.LState) int {
			line, err := doc.LineAt(L.CheckInt(2))
			if err != nil {
				L.ArgError(2, err.Error())
			}
			L.Push(lua.LString(line.Text))
			return 1
		},
		"word_at": func(L *lua.LState) int {
			p, err := toPosition(L.Get(2))
			if err != nil {
				L.ArgError(2, err.Error())
			}
			r, ok := doc.WordRangeAtPosition(p, nil)
			if !ok {
				L.Push(lua.LNil)
				return 1
			}
			L.Push(rangeTable(L, r))
			return 1
		},
		"offset_at": func(L *lua.LState) int {
			p, err := toPosition(L.Get(2))
			if err != nil {
				L.ArgError(2, err.Error())
			}
			L.Push(lua.LNumber(doc.OffsetAt(p)))
			return 1
		},
		"position_at": func(L *lua.LState) int {
			L.Push(positionTable(L, doc.PositionAt(L.CheckInt(2))))
			return 1
		},
	}
	for name, fn := range methods {
		t.RawSetString(name, L.NewFunction(fn))
	}
	return readOnly(L, t, "document")
}

// toDiagnostics decodes a list of diagnostic tables:
//
//	{range = r, message = "...", severity = "warning" | 1..4,
//	 code = "E1" | 12, source = "...", tags = {"unnecessary", "deprecated"}}
//
// Diagnostics default to error severity and to source.
func toDiagnostics(v lua.LValue, source string) ([]diagnostics.Diagnostic, error) {
	if v == lua.LNil {
		return nil, nil
	}
	list, ok := v.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("%w: expected a list of diagnostics, got %s", ErrBadResult, v.Type())
	}
	out := make([]diagnostics.Diagnostic, 0, list.Len())
	for i := 1; i <= list.Len(); i++ {
		d, err := toDiagnostic(list.RawGetInt(i), source)
		if err != nil {
			return nil, fmt.Errorf("diagnostic %d: %w", i, err)
		}
		out = append(out, d)
	}
	return out, nil
}

func toDiagnostic(v lua.LValue, source string) (diagnostics.Diagnostic, error) {
	t, ok := v.(*lua.LTable)
	if !ok {
		return diagnostics.Diagnostic{}, fmt.Errorf("%w: diagnostic must be a table", ErrBadResult)
	}
	r, err := toRange(t.RawGetString("range"))
	if err != nil {
		return diagnostics.Diagnostic{}, err
	}
	msg, ok := t.RawGetString("message").(lua.LString)
	if !ok || msg == "" {
		return diagnostics.Diagnostic{}, fmt.Errorf("%w: diagnostic needs a message", ErrBadResult)
	}
	d := diagnostics.New(r, string(msg))
	d.Source = source

	switch sev := t.RawGetString("severity").(type) {
	case lua.LString:
		s, ok := diagnostics.ParseSeverity(string(sev))
		if !ok {
			return d, fmt.Errorf("%w: unknown severity %q", ErrBadResult, string(sev))
		}
		d.Severity = s
	case lua.LNumber:
		n, ok := toInt(sev)
		if !ok || n < int(diagnostics.SeverityError) || n > int(diagnostics.SeverityHint) {
			return d, fmt.Errorf("%w: severity %v out of range", ErrBadResult, sev)
		}
		d.Severity = diagnostics.Severity(n)
	}

	switch code := t.RawGetString("code").(type) {
	case lua.LString:
		d.Code = diagnostics.StringCode(string(code))
	case lua.LNumber:
		n, ok := toInt(code)
		if !ok {
			return d, fmt.Errorf("%w: code %v is not an integer", ErrBadResult, code)
		}
		d.Code = diagnostics.IntCode(n)
	}

	if s, ok := t.RawGetString("source").(lua.LString); ok {
		d.Source = string(s)
	}
	if tags, ok := t.RawGetString("tags").(*lua.LTable); ok {
		for i := 1; i <= tags.Len(); i++ {
			switch lua.LVAsString(tags.RawGetInt(i)) {
			case "unnecessary":
				d.Tags = append(d.Tags, diagnostics.TagUnnecessary)
			case "deprecated":
				d.Tags = append(d.Tags, diagnostics.TagDeprecated)
			}
		}
	}
	return d, nil
}

// toEdits decodes a list of {range = r, text = "..."} replacements.
func toEdits(v lua.LValue) ([]engine.Edit, error) {
	if v == lua.LNil {
		return nil, nil
	}
	list, ok := v.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("%w: expected a list of edits, got %s", ErrBadResult, v.Type())
	}
	out := make([]engine.Edit, 0, list.Len())
	for i := 1; i <= list.Len(); i++ {
		t, ok := list.RawGetInt(i).(*lua.LTable)
		if !ok {
			return nil, fmt.Errorf("%w: edit %d must be a table", ErrBadResult, i)
		}
		r, err := toRange(t.RawGetString("range"))
		if err != nil {
			return nil, fmt.Errorf("edit %d: %w", i, err)
		}
		text, ok := t.RawGetString("text").(lua.LString)
		if !ok && t.RawGetString("text") != lua.LNil {
			return nil, fmt.Errorf("%w: edit %d text must be a string", ErrBadResult, i)
		}
		out = append(out, engine.NewReplace(r, string(text)))
	}
	return out, nil
}

// toHoverParts decodes a hover result: a string, a list of strings, or
// {contents = string | list, range = r}. It returns no contents for nil.
func toHoverParts(v lua.LValue) ([]string, *engine.Range, error) {
	switch h := v.(type) {
	case *lua.LNilType:
		return nil, nil, nil
	case lua.LString:
		return []string{string(h)}, nil, nil
	case *lua.LTable:
		if h.Len() > 0 {
			parts, err := toStrings(h)
			return parts, nil, err
		}
		var parts []string
		switch c := h.RawGetString("contents").(type) {
		case lua.LString:
			parts = []string{string(c)}
		case *lua.LTable:
			var err error
			if parts, err = toStrings(c); err != nil {
				return nil, nil, err
			}
		default:
			return nil, nil, fmt.Errorf("%w: hover needs contents", ErrBadResult)
		}
		if h.RawGetString("range") == lua.LNil {
			return parts, nil, nil
		}
		r, err := toRange(h.RawGetString("range"))
		if err != nil {
			return nil, nil, err
		}
		return parts, &r, nil
	default:
		return nil, nil, fmt.Errorf("%w: unexpected hover %s", ErrBadResult, v.Type())
	}
}

func toStrings(t *lua.LTable) ([]string, error) {
	out := make([]string, 0, t.Len())
	for i := 1; i <= t.Len(); i++ {
		s, ok := t.RawGetInt(i).(lua.LString)
		if !ok {
			return nil, fmt.Errorf("%w: element %d is not a string", ErrBadResult, i)
		}
		out = append(out, string(s))
	}
	return out, nil
}

// optionsTable passes formatting options as {tab_size = n, insert_spaces = b}.
func optionsTable(L *lua.LState, tabSize int, insertSpaces bool) *lua.LTable {
	t := L.CreateTable(0, 2)
	t.RawSetString("tab_size", lua.LNumber(tabSize))
	t.RawSetString("insert_spaces", lua.LBool(insertSpaces))
	return t
}
