package languages

import (
	"context"
	"slices"

	"github.com/dshills/exthost/internal/diagnostics"
	"github.com/dshills/exthost/internal/engine"
	"github.com/dshills/exthost/internal/workspace"
)

// RegisterCompletionProvider registers p for documents matching selector.
func (r *Registry) RegisterCompletionProvider(selector Selector, p CompletionProvider) *Registration {
	return r.register(CapCompletion, selector, p)
}

// RegisterHoverProvider registers p for documents matching selector.
func (r *Registry) RegisterHoverProvider(selector Selector, p HoverProvider) *Registration {
	return r.register(CapHover, selector, p)
}

// RegisterDefinitionProvider registers p for documents matching selector.
func (r *Registry) RegisterDefinitionProvider(selector Selector, p DefinitionProvider) *Registration {
	return r.register(CapDefinition, selector, p)
}

// RegisterReferenceProvider registers p for documents matching selector.
func (r *Registry) RegisterReferenceProvider(selector Selector, p ReferenceProvider) *Registration {
	return r.register(CapReferences, selector, p)
}

// RegisterDocumentHighlightProvider registers p for documents matching
// selector.
func (r *Registry) RegisterDocumentHighlightProvider(selector Selector, p DocumentHighlightProvider) *Registration {
	return r.register(CapDocumentHighlight, selector, p)
}

// RegisterDocumentSymbolProvider registers p for documents matching
// selector.
func (r *Registry) RegisterDocumentSymbolProvider(selector Selector, p DocumentSymbolProvider) *Registration {
	return r.register(CapDocumentSymbol, selector, p)
}

// RegisterWorkspaceSymbolProvider registers p. Workspace symbol providers
// are not tied to documents.
func (r *Registry) RegisterWorkspaceSymbolProvider(p WorkspaceSymbolProvider) *Registration {
	return r.register(CapWorkspaceSymbol, Selector{{Language: "*"}}, p)
}

// RegisterCodeActionProvider registers p for documents matching selector.
func (r *Registry) RegisterCodeActionProvider(selector Selector, p CodeActionProvider) *Registration {
	return r.register(CapCodeAction, selector, p)
}

// RegisterCodeLensProvider registers p for documents matching selector.
func (r *Registry) RegisterCodeLensProvider(selector Selector, p CodeLensProvider) *Registration {
	return r.register(CapCodeLens, selector, p)
}

// RegisterFormattingProvider registers p for documents matching selector.
func (r *Registry) RegisterFormattingProvider(selector Selector, p FormattingProvider) *Registration {
	return r.register(CapFormatting, selector, p)
}

// RegisterRangeFormattingProvider registers p for documents matching
// selector.
func (r *Registry) RegisterRangeFormattingProvider(selector Selector, p RangeFormattingProvider) *Registration {
	return r.register(CapRangeFormatting, selector, p)
}

// RegisterOnTypeFormattingProvider registers p for documents matching
// selector. It is only asked after one of the trigger characters.
func (r *Registry) RegisterOnTypeFormattingProvider(selector Selector, p OnTypeFormattingProvider, first string, more ...string) *Registration {
	return r.register(CapOnTypeFormatting, selector, p, append([]string{first}, more...)...)
}

// RegisterSignatureHelpProvider registers p for documents matching
// selector.
func (r *Registry) RegisterSignatureHelpProvider(selector Selector, p SignatureHelpProvider, triggers ...string) *Registration {
	return r.register(CapSignatureHelp, selector, p, triggers...)
}

// RegisterRenameProvider registers p for documents matching selector.
func (r *Registry) RegisterRenameProvider(selector Selector, p RenameProvider) *Registration {
	return r.register(CapRename, selector, p)
}

// RegisterDiagnosticsProvider registers p for documents matching selector.
func (r *Registry) RegisterDiagnosticsProvider(selector Selector, p DiagnosticsProvider) *Registration {
	return r.register(CapDiagnostics, selector, p)
}

// Completions merges the completion items of all matching providers.
func (r *Registry) Completions(ctx context.Context, doc *engine.Document, pos engine.Position) []CompletionItem {
	return flatten(collect(ctx, r, CapCompletion, r.matching(CapCompletion, doc),
		func(ctx context.Context, p CompletionProvider) ([]CompletionItem, error) {
			return p.ProvideCompletionItems(ctx, doc, pos)
		}))
}

// Hovers returns the hovers of all matching providers, best match first.
func (r *Registry) Hovers(ctx context.Context, doc *engine.Document, pos engine.Position) []Hover {
	hovers := collect(ctx, r, CapHover, r.matching(CapHover, doc),
		func(ctx context.Context, p HoverProvider) (*Hover, error) {
			return p.ProvideHover(ctx, doc, pos)
		})
	var out []Hover
	for _, h := range hovers {
		if h != nil && len(h.Contents) > 0 {
			out = append(out, *h)
		}
	}
	return out
}

// Definitions merges the definition locations of all matching providers.
func (r *Registry) Definitions(ctx context.Context, doc *engine.Document, pos engine.Position) []Location {
	return flatten(collect(ctx, r, CapDefinition, r.matching(CapDefinition, doc),
		func(ctx context.Context, p DefinitionProvider) ([]Location, error) {
			return p.ProvideDefinition(ctx, doc, pos)
		}))
}

// References merges the reference locations of all matching providers.
func (r *Registry) References(ctx context.Context, doc *engine.Document, pos engine.Position, includeDeclaration bool) []Location {
	return flatten(collect(ctx, r, CapReferences, r.matching(CapReferences, doc),
		func(ctx context.Context, p ReferenceProvider) ([]Location, error) {
			return p.ProvideReferences(ctx, doc, pos, includeDeclaration)
		}))
}

// DocumentHighlights returns the highlights of the best provider that has
// any.
func (r *Registry) DocumentHighlights(ctx context.Context, doc *engine.Document, pos engine.Position) []DocumentHighlight {
	res, _ := first(ctx, r, CapDocumentHighlight, r.matching(CapDocumentHighlight, doc),
		func(ctx context.Context, p DocumentHighlightProvider) ([]DocumentHighlight, error) {
			return p.ProvideDocumentHighlights(ctx, doc, pos)
		}, nonEmpty[DocumentHighlight])
	return res
}

// DocumentSymbols merges the symbols of all matching providers.
func (r *Registry) DocumentSymbols(ctx context.Context, doc *engine.Document) []Symbol {
	return flatten(collect(ctx, r, CapDocumentSymbol, r.matching(CapDocumentSymbol, doc),
		func(ctx context.Context, p DocumentSymbolProvider) ([]Symbol, error) {
			return p.ProvideDocumentSymbols(ctx, doc)
		}))
}

// WorkspaceSymbols merges the results of all workspace symbol providers.
func (r *Registry) WorkspaceSymbols(ctx context.Context, query string) []Symbol {
	r.mu.RLock()
	regs := slices.Clone(r.entries[CapWorkspaceSymbol])
	r.mu.RUnlock()

	return flatten(collect(ctx, r, CapWorkspaceSymbol, regs,
		func(ctx context.Context, p WorkspaceSymbolProvider) ([]Symbol, error) {
			return p.ProvideWorkspaceSymbols(ctx, query)
		}))
}

// CodeActions merges the code actions of all matching providers.
func (r *Registry) CodeActions(ctx context.Context, doc *engine.Document, rng engine.Range, diags []diagnostics.Diagnostic) []CodeAction {
	rng = doc.ValidateRange(rng)
	return flatten(collect(ctx, r, CapCodeAction, r.matching(CapCodeAction, doc),
		func(ctx context.Context, p CodeActionProvider) ([]CodeAction, error) {
			return p.ProvideCodeActions(ctx, doc, rng, diags)
		}))
}

// CodeLenses merges the code lenses of all matching providers.
func (r *Registry) CodeLenses(ctx context.Context, doc *engine.Document) []CodeLens {
	return flatten(collect(ctx, r, CapCodeLens, r.matching(CapCodeLens, doc),
		func(ctx context.Context, p CodeLensProvider) ([]CodeLens, error) {
			return p.ProvideCodeLenses(ctx, doc)
		}))
}

// FormatDocument returns the edits of the best formatting provider. The
// second result is false when no provider produced edits.
func (r *Registry) FormatDocument(ctx context.Context, doc *engine.Document, opts FormattingOptions) ([]engine.Edit, bool) {
	return first(ctx, r, CapFormatting, r.matching(CapFormatting, doc),
		func(ctx context.Context, p FormattingProvider) ([]engine.Edit, error) {
			return p.ProvideDocumentFormattingEdits(ctx, doc, opts)
		}, notNil[engine.Edit])
}

// FormatRange returns the edits of the best range formatting provider.
func (r *Registry) FormatRange(ctx context.Context, doc *engine.Document, rng engine.Range, opts FormattingOptions) ([]engine.Edit, bool) {
	rng = doc.ValidateRange(rng)
	return first(ctx, r, CapRangeFormatting, r.matching(CapRangeFormatting, doc),
		func(ctx context.Context, p RangeFormattingProvider) ([]engine.Edit, error) {
			return p.ProvideDocumentRangeFormattingEdits(ctx, doc, rng, opts)
		}, notNil[engine.Edit])
}

// FormatOnType returns the edits of the best on-type formatting provider
// triggered by ch.
func (r *Registry) FormatOnType(ctx context.Context, doc *engine.Document, pos engine.Position, ch string, opts FormattingOptions) ([]engine.Edit, bool) {
	regs := slices.DeleteFunc(r.matching(CapOnTypeFormatting, doc), func(reg *registration) bool {
		return !slices.Contains(reg.triggers, ch)
	})
	return first(ctx, r, CapOnTypeFormatting, regs,
		func(ctx context.Context, p OnTypeFormattingProvider) ([]engine.Edit, error) {
			return p.ProvideOnTypeFormattingEdits(ctx, doc, pos, ch, opts)
		}, notNil[engine.Edit])
}

// SignatureHelp returns the signature help of the best provider that has
// any.
func (r *Registry) SignatureHelp(ctx context.Context, doc *engine.Document, pos engine.Position) (*SignatureHelp, bool) {
	return first(ctx, r, CapSignatureHelp, r.matching(CapSignatureHelp, doc),
		func(ctx context.Context, p SignatureHelpProvider) (*SignatureHelp, error) {
			return p.ProvideSignatureHelp(ctx, doc, pos)
		}, func(h *SignatureHelp) bool { return h != nil && len(h.Signatures) > 0 })
}

// Rename returns the workspace edit of the best rename provider.
func (r *Registry) Rename(ctx context.Context, doc *engine.Document, pos engine.Position, newName string) (*workspace.Edit, bool) {
	return first(ctx, r, CapRename, r.matching(CapRename, doc),
		func(ctx context.Context, p RenameProvider) (*workspace.Edit, error) {
			return p.ProvideRenameEdits(ctx, doc, pos, newName)
		}, func(e *workspace.Edit) bool { return e != nil })
}

// Diagnostics merges the diagnostics of all matching providers, sorted by
// position.
func (r *Registry) Diagnostics(ctx context.Context, doc *engine.Document) []diagnostics.Diagnostic {
	diags := flatten(collect(ctx, r, CapDiagnostics, r.matching(CapDiagnostics, doc),
		func(ctx context.Context, p DiagnosticsProvider) ([]diagnostics.Diagnostic, error) {
			return p.ProvideDiagnostics(ctx, doc)
		}))
	diagnostics.Sort(diags)
	return diags
}

func nonEmpty[T any](s []T) bool { return len(s) > 0 }

func notNil[T any](s []T) bool { return s != nil }
