package lua

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/exthost/internal/config"
	"github.com/dshills/exthost/internal/diagnostics"
	"github.com/dshills/exthost/internal/engine"
	"github.com/dshills/exthost/internal/event"
	"github.com/dshills/exthost/internal/languages"
	"github.com/dshills/exthost/internal/logging"
)

// Global functions a script defines to provide a feature.
const (
	FuncDiagnostics = "diagnostics"
	FuncFormat      = "format"
	FuncFormatRange = "format_range"
	FuncHover       = "hover"
)

// Lifecycle hooks called on extension scripts.
const (
	FuncActivate   = "activate"
	FuncDeactivate = "deactivate"
)

// Script is a Lua file acting as a language feature provider. It satisfies
// languages.DiagnosticsProvider, FormattingProvider, RangeFormattingProvider
// and HoverProvider; Register only binds the features the script defines.
type Script struct {
	name   string
	path   string
	state  *State
	logger *logging.Logger
}

// Load runs the script at path in a fresh sandboxed state. The script is
// named after the file.
func Load(path string, opts ...StateOption) (*Script, error) {
	return LoadAs(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), path, opts...)
}

// LoadAs runs the script at path under name.
func LoadAs(name, path string, opts ...StateOption) (*Script, error) {
	s := newScript(name, path, opts)
	if err := s.state.DoFile(path); err != nil {
		s.state.Close()
		return nil, &ScriptError{Script: path, Func: "load", Err: err}
	}
	return s, nil
}

// LoadString runs code as a script called name.
func LoadString(name, code string, opts ...StateOption) (*Script, error) {
	s := newScript(name, name, opts)
	if err := s.state.DoString(code); err != nil {
		s.state.Close()
		return nil, &ScriptError{Script: name, Func: "load", Err: err}
	}
	return s, nil
}

func newScript(name, path string, opts []StateOption) *Script {
	opts = append([]StateOption{WithStateLogger(logging.New("lua"))}, opts...)
	state := NewState(opts...)
	state.logger = state.logger.WithField("script", name)
	installModule(state.L, state.logger)
	return &Script{name: name, path: path, state: state, logger: state.logger}
}

// installModule exposes the host module to scripts.
func installModule(L *lua.LState, logger *logging.Logger) {
	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"log": func(L *lua.LState) int {
			level := "info"
			msg := L.CheckString(1)
			if L.GetTop() > 1 {
				level, msg = msg, L.CheckString(2)
			}
			switch level {
			case "debug":
				logger.Debug("%s", msg)
			case "warn", "warning":
				logger.Warn("%s", msg)
			case "error":
				logger.Error("%s", msg)
			default:
				logger.Info("%s", msg)
			}
			return 0
		},
	})
	sev := L.CreateTable(0, 4)
	for _, s := range []diagnostics.Severity{
		diagnostics.SeverityError,
		diagnostics.SeverityWarning,
		diagnostics.SeverityInformation,
		diagnostics.SeverityHint,
	} {
		sev.RawSetString(strings.ToLower(s.String()), lua.LNumber(s))
	}
	mod.RawSetString("severity", readOnly(L, sev, "exthost.severity"))
	L.SetGlobal("exthost", readOnly(L, mod, "exthost"))
}

// Name returns the script's base name, used as the diagnostic source.
func (s *Script) Name() string { return s.name }

// Path returns the file the script was loaded from.
func (s *Script) Path() string { return s.path }

// Provides reports whether the script defines fn.
func (s *Script) Provides(fn string) bool {
	return s.state.HasFunc(fn)
}

// Close releases the interpreter.
func (s *Script) Close() {
	s.state.Close()
}

// CallHook calls the global fn with no arguments, ignoring its result.
// Scripts that do not define fn are left alone.
func (s *Script) CallHook(ctx context.Context, fn string) error {
	if !s.Provides(fn) {
		return nil
	}
	return s.call(ctx, fn, nil, nil)
}

func (s *Script) call(ctx context.Context, fn string, args func(L *lua.LState) []lua.LValue, decode func(L *lua.LState, ret lua.LValue) error) error {
	if err := s.state.Call(ctx, fn, args, decode); err != nil {
		return &ScriptError{Script: s.name, Func: fn, Err: err}
	}
	return nil
}

// ProvideDiagnostics calls diagnostics(doc).
func (s *Script) ProvideDiagnostics(ctx context.Context, doc *engine.Document) ([]diagnostics.Diagnostic, error) {
	var out []diagnostics.Diagnostic
	err := s.call(ctx, FuncDiagnostics,
		func(L *lua.LState) []lua.LValue {
			return []lua.LValue{documentTable(L, doc)}
		},
		func(L *lua.LState, ret lua.LValue) (err error) {
			out, err = toDiagnostics(ret, s.name)
			return err
		})
	return out, err
}

// ProvideDocumentFormattingEdits calls format(doc, opts).
func (s *Script) ProvideDocumentFormattingEdits(ctx context.Context, doc *engine.Document, opts languages.FormattingOptions) ([]engine.Edit, error) {
	var out []engine.Edit
	err := s.call(ctx, FuncFormat,
		func(L *lua.LState) []lua.LValue {
			return []lua.LValue{documentTable(L, doc), optionsTable(L, opts.TabSize, opts.InsertSpaces)}
		},
		func(L *lua.LState, ret lua.LValue) (err error) {
			out, err = toEdits(ret)
			return err
		})
	return out, err
}

// ProvideDocumentRangeFormattingEdits calls format_range(doc, range, opts).
func (s *Script) ProvideDocumentRangeFormattingEdits(ctx context.Context, doc *engine.Document, r engine.Range, opts languages.FormattingOptions) ([]engine.Edit, error) {
	var out []engine.Edit
	err := s.call(ctx, FuncFormatRange,
		func(L *lua.LState) []lua.LValue {
			return []lua.LValue{documentTable(L, doc), rangeTable(L, r), optionsTable(L, opts.TabSize, opts.InsertSpaces)}
		},
		func(L *lua.LState, ret lua.LValue) (err error) {
			out, err = toEdits(ret)
			return err
		})
	return out, err
}

// ProvideHover calls hover(doc, pos). A nil result means no hover.
func (s *Script) ProvideHover(ctx context.Context, doc *engine.Document, pos engine.Position) (*languages.Hover, error) {
	var out *languages.Hover
	err := s.call(ctx, FuncHover,
		func(L *lua.LState) []lua.LValue {
			return []lua.LValue{documentTable(L, doc), positionTable(L, pos)}
		},
		func(L *lua.LState, ret lua.LValue) error {
			parts, r, err := toHoverParts(ret)
			if err != nil || len(parts) == 0 {
				return err
			}
			out = &languages.Hover{Contents: parts, Range: r}
			return nil
		})
	return out, err
}

// Register binds the features the script defines and kinds allows to reg.
// An empty kinds list allows every feature.
func (s *Script) Register(reg *languages.Registry, selector languages.Selector, kinds ...string) event.Disposable {
	allowed := func(kind string) bool {
		return config.ScriptConfig{Kinds: kinds}.HasKind(kind)
	}

	var bound []event.Disposable
	if allowed(config.KindDiagnostics) && s.Provides(FuncDiagnostics) {
		bound = append(bound, reg.RegisterDiagnosticsProvider(selector, s))
	}
	if allowed(config.KindFormatting) {
		if s.Provides(FuncFormat) {
			bound = append(bound, reg.RegisterFormattingProvider(selector, s))
		}
		if s.Provides(FuncFormatRange) {
			bound = append(bound, reg.RegisterRangeFormattingProvider(selector, s))
		}
	}
	if allowed(config.KindHover) && s.Provides(FuncHover) {
		bound = append(bound, reg.RegisterHoverProvider(selector, s))
	}
	s.logger.Debug("registered %d providers", len(bound))
	return event.From(bound...)
}

// Scripts is a set of loaded scripts and their registrations.
type Scripts struct {
	scripts []*Script
	subs    event.Bag
}

// LoadAll loads every configured script relative to base and registers its
// providers. Scripts that fail to load are skipped; their errors are joined
// in the returned error alongside the scripts that did load.
func LoadAll(cfgs []config.ScriptConfig, base string, reg *languages.Registry, opts ...StateOption) (*Scripts, error) {
	set := &Scripts{}
	var errs []error
	for _, cfg := range cfgs {
		s, err := Load(cfg.ScriptPath(base), opts...)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		selector := languages.ForLanguages(cfg.Languages...)
		if len(cfg.Languages) == 0 {
			selector = languages.ForLanguages("*")
		}
		set.scripts = append(set.scripts, s)
		set.subs.Add(s.Register(reg, selector, cfg.Kinds...))
	}
	if err := errors.Join(errs...); err != nil {
		return set, fmt.Errorf("loading scripts: %w", err)
	}
	return set, nil
}

// Scripts returns the loaded scripts.
func (s *Scripts) Scripts() []*Script {
	return s.scripts
}

// Dispose unregisters every provider and closes the interpreters.
func (s *Scripts) Dispose() {
	s.subs.Dispose()
	for _, sc := range s.scripts {
		sc.Close()
	}
	s.scripts = nil
}
