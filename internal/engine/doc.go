// Package engine provides the text document and edit transaction model.
//
// A Document owns a line buffer together with its identity and metadata:
// resource identifier, language id, version and dirty flag. Documents have
// no text setter. Every mutation goes through a Transaction:
//
//	doc := engine.NewDocument(uri.File("main.go"), "go", "package main\n")
//	ev, err := doc.Begin().
//		Insert(engine.Position{Line: 1, Character: 0}, "func main() {}\n").
//		Commit()
//
// # Coordinates
//
// Positions are zero-based (line, character) pairs counted in UTF-16 code
// units. Query methods such as TextInRange, OffsetAt and
// WordRangeAtPosition clamp their input through ValidatePosition and
// ValidateRange. LineAt is the exception: it reports an out-of-range index
// as a *LineError.
//
// # Commit Protocol
//
// Commit validates all buffered edits before applying any:
//
//  1. take the document's commit slot, failing with
//     ErrTransactionInProgress if another transaction holds it;
//  2. reject reversed ranges, ranges outside the document and overlapping
//     edits (touching endpoints are allowed);
//  3. drop edits with an empty range and empty text; if none remain the
//     commit succeeds without a version bump or event;
//  4. splice edits from the last range to the first, increment the
//     version, set the dirty flag and fire exactly one ChangeEvent.
//
// The event lists changes in ascending range order, each carrying its old
// range, offset, length and new text. Consumers replay these to remap
// positions (see package cursor) and never diff document content.
//
// Prepare, Apply and Abort expose the same protocol in two phases so a
// caller can validate transactions on several documents before mutating
// any of them.
//
// # Thread Safety
//
// Document methods are safe for concurrent use. Change listeners run on the
// committing goroutine after the document lock is released and may read the
// document, but an attempt to commit from inside a listener fails with
// ErrTransactionInProgress.
package engine
