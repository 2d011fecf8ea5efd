// Package editor provides TextEditor, a view of a document that owns
// selections and formatting options.
//
// An editor subscribes to its document's change event. Every committed
// transaction, whoever made it, remaps the editor's selections: positions
// before an edit stay, positions after it shift, and positions inside a
// replaced range collapse to the end of the new text. The result is then
// clamped to the document.
package editor
