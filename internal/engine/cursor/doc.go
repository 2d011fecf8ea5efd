// Package cursor provides selection management and selection remapping
// after document edits.
//
// Selection Model:
//
// Selections use an anchor/active model where:
//   - Anchor: The position where the selection started
//   - Active: The current cursor position (where typing would occur)
//
// When Anchor == Active, the selection represents just a cursor with no
// selected text. Start and End are derived as the min and max of the two,
// and IsReversed reports whether Active precedes Anchor.
//
// Remapping:
//
// After a document commits a transaction it publishes the applied changes
// as (old range, old length, new text) records. RemapPosition replays those
// records against a position:
//
//	changes := event.Changes
//	p = cursor.RemapPosition(p, changes)
//
// Set.Remap applies the same rules to every selection of an editor and
// re-clamps the result against the document.
//
// Thread Safety:
//
// Selection is an immutable value type and safe for concurrent use. Set is
// not thread-safe and should be protected by external synchronization if
// accessed concurrently.
package cursor
