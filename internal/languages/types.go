package languages

import (
	"github.com/dshills/exthost/internal/diagnostics"
	"github.com/dshills/exthost/internal/engine"
	"github.com/dshills/exthost/internal/uri"
	"github.com/dshills/exthost/internal/workspace"
)

// Location is a range inside a resource.
type Location struct {
	URI   uri.URI
	Range engine.Range
}

// CompletionItemKind matches the language server protocol values.
type CompletionItemKind int

const (
	CompletionText          CompletionItemKind = 1
	CompletionMethod        CompletionItemKind = 2
	CompletionFunction      CompletionItemKind = 3
	CompletionConstructor   CompletionItemKind = 4
	CompletionField         CompletionItemKind = 5
	CompletionVariable      CompletionItemKind = 6
	CompletionClass         CompletionItemKind = 7
	CompletionInterface     CompletionItemKind = 8
	CompletionModule        CompletionItemKind = 9
	CompletionProperty      CompletionItemKind = 10
	CompletionUnit          CompletionItemKind = 11
	CompletionValue         CompletionItemKind = 12
	CompletionEnum          CompletionItemKind = 13
	CompletionKeyword       CompletionItemKind = 14
	CompletionSnippet       CompletionItemKind = 15
	CompletionColor         CompletionItemKind = 16
	CompletionFile          CompletionItemKind = 17
	CompletionReference     CompletionItemKind = 18
	CompletionFolder        CompletionItemKind = 19
	CompletionEnumMember    CompletionItemKind = 20
	CompletionConstant      CompletionItemKind = 21
	CompletionStruct        CompletionItemKind = 22
	CompletionEvent         CompletionItemKind = 23
	CompletionOperator      CompletionItemKind = 24
	CompletionTypeParameter CompletionItemKind = 25
)

// CompletionItem is one completion proposal.
type CompletionItem struct {
	Label         string
	Kind          CompletionItemKind
	Detail        string
	Documentation string
	InsertText    string
	SortText      string
	FilterText    string

	// Range is replaced by InsertText. The zero range means the word at
	// the request position.
	Range engine.Range
}

// Hover is the content shown for a position. Contents are markdown.
type Hover struct {
	Contents []string
	Range    *engine.Range
}

// HighlightKind distinguishes read and write accesses.
type HighlightKind int

const (
	HighlightText  HighlightKind = 1
	HighlightRead  HighlightKind = 2
	HighlightWrite HighlightKind = 3
)

// DocumentHighlight marks a range related to the symbol at a position.
type DocumentHighlight struct {
	Range engine.Range
	Kind  HighlightKind
}

// SymbolKind matches the language server protocol values.
type SymbolKind int

const (
	SymbolFile          SymbolKind = 1
	SymbolModule        SymbolKind = 2
	SymbolNamespace     SymbolKind = 3
	SymbolPackage       SymbolKind = 4
	SymbolClass         SymbolKind = 5
	SymbolMethod        SymbolKind = 6
	SymbolProperty      SymbolKind = 7
	SymbolField         SymbolKind = 8
	SymbolConstructor   SymbolKind = 9
	SymbolEnum          SymbolKind = 10
	SymbolInterface     SymbolKind = 11
	SymbolFunction      SymbolKind = 12
	SymbolVariable      SymbolKind = 13
	SymbolConstant      SymbolKind = 14
	SymbolString        SymbolKind = 15
	SymbolNumber        SymbolKind = 16
	SymbolBoolean       SymbolKind = 17
	SymbolArray         SymbolKind = 18
	SymbolObject        SymbolKind = 19
	SymbolKey           SymbolKind = 20
	SymbolNull          SymbolKind = 21
	SymbolEnumMember    SymbolKind = 22
	SymbolStruct        SymbolKind = 23
	SymbolEvent         SymbolKind = 24
	SymbolOperator      SymbolKind = 25
	SymbolTypeParameter SymbolKind = 26
)

// Symbol is a named declaration. Document symbols may nest.
type Symbol struct {
	Name          string
	Detail        string
	Kind          SymbolKind
	ContainerName string
	Location      Location
	Children      []Symbol
}

// Command names an action the host can execute.
type Command struct {
	Title     string
	ID        string
	Arguments []any
}

// CodeAction is a fix or refactoring. Edit is applied before Command runs.
type CodeAction struct {
	Title       string
	Kind        string
	Diagnostics []diagnostics.Diagnostic
	Edit        *workspace.Edit
	Command     *Command
	IsPreferred bool
}

// CodeLens is a command shown inline above a range.
type CodeLens struct {
	Range   engine.Range
	Command *Command
}

// FormattingOptions describe the indentation a formatter should use.
type FormattingOptions struct {
	TabSize      int
	InsertSpaces bool
}

// ParameterInformation describes one parameter of a signature.
type ParameterInformation struct {
	Label         string
	Documentation string
}

// SignatureInformation describes one callable signature.
type SignatureInformation struct {
	Label         string
	Documentation string
	Parameters    []ParameterInformation
}

// SignatureHelp is the signature information for a call site.
type SignatureHelp struct {
	Signatures      []SignatureInformation
	ActiveSignature int
	ActiveParameter int
}
