// Package workspace manages the set of open documents and applies edits
// that span several of them.
//
// Store owns every live engine.Document, keyed by URI. Documents are loaded
// through a Storage (the OS file system by default, MemStorage in tests),
// created from client supplied text with OpenText, or created empty with
// NewUntitled. The store forwards each document's change event on its own
// OnDidChange and fires open, close and save events.
//
// Edit collects replace, insert and delete operations per resource. Apply
// consumes an Edit exactly once:
//
//	e := workspace.NewEdit()
//	e.Replace(a, r1, "x")
//	e.Insert(b, p, "y")
//	res, err := workspace.Apply(ctx, store, e)
//
// Under PolicyAtomic every resource is opened and validated before any is
// committed; a single failure leaves all documents untouched and the culprit
// resources are listed in ApplyResult.Failed. PolicyBestEffort commits each
// resource on its own.
//
// Dirty and untitled documents can be written to a msgpack backup and
// restored after a restart.
package workspace
