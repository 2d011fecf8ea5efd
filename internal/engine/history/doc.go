// Package history provides undo and redo for a document.
//
// A History subscribes to a document's change event and records every
// commit as an undo entry. Undo reverts the newest entry by committing the
// inverse of its changes; that commit is recorded as a redo entry. Every
// other commit clears the redo stack.
//
// # Inverting changes
//
// Each recorded change carries the text it replaced, so its inverse is a
// replacement of the inserted text with the removed text, expressed in
// the coordinates of the content after the commit:
//
//	inverse := history.Invert(ev.Changes)
//	doc.BeginAt(ev.Version).Add(inverse...).Commit()
//
// # Grouping
//
// Commits made between BeginGroup and EndGroup undo as one entry:
//
//	h.BeginGroup("rename")
//	// ... several commits ...
//	h.EndGroup()
//
// CancelGroup reverts the commits of the open group instead. Transaction
// wraps a function in a group and cancels it when the function fails.
package history
