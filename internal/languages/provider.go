package languages

import (
	"context"

	"github.com/dshills/exthost/internal/diagnostics"
	"github.com/dshills/exthost/internal/engine"
	"github.com/dshills/exthost/internal/workspace"
)

// CompletionProvider proposes completions at a position.
type CompletionProvider interface {
	ProvideCompletionItems(ctx context.Context, doc *engine.Document, pos engine.Position) ([]CompletionItem, error)
}

// HoverProvider describes the symbol at a position.
type HoverProvider interface {
	ProvideHover(ctx context.Context, doc *engine.Document, pos engine.Position) (*Hover, error)
}

// DefinitionProvider locates the definition of the symbol at a position.
type DefinitionProvider interface {
	ProvideDefinition(ctx context.Context, doc *engine.Document, pos engine.Position) ([]Location, error)
}

// ReferenceProvider finds references to the symbol at a position.
type ReferenceProvider interface {
	ProvideReferences(ctx context.Context, doc *engine.Document, pos engine.Position, includeDeclaration bool) ([]Location, error)
}

// DocumentHighlightProvider finds ranges related to the symbol at a position.
type DocumentHighlightProvider interface {
	ProvideDocumentHighlights(ctx context.Context, doc *engine.Document, pos engine.Position) ([]DocumentHighlight, error)
}

// DocumentSymbolProvider lists the symbols of a document.
type DocumentSymbolProvider interface {
	ProvideDocumentSymbols(ctx context.Context, doc *engine.Document) ([]Symbol, error)
}

// WorkspaceSymbolProvider searches symbols across the workspace.
type WorkspaceSymbolProvider interface {
	ProvideWorkspaceSymbols(ctx context.Context, query string) ([]Symbol, error)
}

// CodeActionProvider proposes actions for a range.
type CodeActionProvider interface {
	ProvideCodeActions(ctx context.Context, doc *engine.Document, r engine.Range, diags []diagnostics.Diagnostic) ([]CodeAction, error)
}

// CodeLensProvider lists the code lenses of a document.
type CodeLensProvider interface {
	ProvideCodeLenses(ctx context.Context, doc *engine.Document) ([]CodeLens, error)
}

// FormattingProvider formats a whole document.
type FormattingProvider interface {
	ProvideDocumentFormattingEdits(ctx context.Context, doc *engine.Document, opts FormattingOptions) ([]engine.Edit, error)
}

// RangeFormattingProvider formats a range of a document.
type RangeFormattingProvider interface {
	ProvideDocumentRangeFormattingEdits(ctx context.Context, doc *engine.Document, r engine.Range, opts FormattingOptions) ([]engine.Edit, error)
}

// OnTypeFormattingProvider formats after a trigger character is typed.
type OnTypeFormattingProvider interface {
	ProvideOnTypeFormattingEdits(ctx context.Context, doc *engine.Document, pos engine.Position, ch string, opts FormattingOptions) ([]engine.Edit, error)
}

// SignatureHelpProvider describes the signature of the call at a position.
type SignatureHelpProvider interface {
	ProvideSignatureHelp(ctx context.Context, doc *engine.Document, pos engine.Position) (*SignatureHelp, error)
}

// RenameProvider computes the edits renaming the symbol at a position.
type RenameProvider interface {
	ProvideRenameEdits(ctx context.Context, doc *engine.Document, pos engine.Position, newName string) (*workspace.Edit, error)
}

// DiagnosticsProvider computes the diagnostics of a document on demand.
type DiagnosticsProvider interface {
	ProvideDiagnostics(ctx context.Context, doc *engine.Document) ([]diagnostics.Diagnostic, error)
}

// HoverFunc adapts a function to HoverProvider.
type HoverFunc func(ctx context.Context, doc *engine.Document, pos engine.Position) (*Hover, error)

// ProvideHover calls f.
func (f HoverFunc) ProvideHover(ctx context.Context, doc *engine.Document, pos engine.Position) (*Hover, error) {
	return f(ctx, doc, pos)
}

// CompletionFunc adapts a function to CompletionProvider.
type CompletionFunc func(ctx context.Context, doc *engine.Document, pos engine.Position) ([]CompletionItem, error)

// ProvideCompletionItems calls f.
func (f CompletionFunc) ProvideCompletionItems(ctx context.Context, doc *engine.Document, pos engine.Position) ([]CompletionItem, error) {
	return f(ctx, doc, pos)
}

// FormattingFunc adapts a function to FormattingProvider.
type FormattingFunc func(ctx context.Context, doc *engine.Document, opts FormattingOptions) ([]engine.Edit, error)

// ProvideDocumentFormattingEdits calls f.
func (f FormattingFunc) ProvideDocumentFormattingEdits(ctx context.Context, doc *engine.Document, opts FormattingOptions) ([]engine.Edit, error) {
	return f(ctx, doc, opts)
}

// DiagnosticsFunc adapts a function to DiagnosticsProvider.
type DiagnosticsFunc func(ctx context.Context, doc *engine.Document) ([]diagnostics.Diagnostic, error)

// ProvideDiagnostics calls f.
func (f DiagnosticsFunc) ProvideDiagnostics(ctx context.Context, doc *engine.Document) ([]diagnostics.Diagnostic, error) {
	return f(ctx, doc)
}
