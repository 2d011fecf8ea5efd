// Package diagnostics stores the problems producers report against
// documents.
//
// Each producer owns a Collection created through Manager.CreateCollection.
// Set, SetAll, Delete and Clear replace a collection's content and return
// a future that resolves once the update is visible. Updates that leave a
// resource unchanged fire no event. The Manager merges all collections per
// resource for consumers such as the LSP server and the lint command.
package diagnostics
