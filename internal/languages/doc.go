// Package languages connects language feature providers to documents.
//
// A provider implements one capability interface (HoverProvider,
// FormattingProvider, ...) and is registered on a Registry with a Selector
// that scores documents by language id, URI scheme and path glob. Queries
// ask every matching provider, best score first. Merging capabilities
// such as completion and diagnostics run the providers concurrently and
// concatenate their results; exclusive capabilities such as formatting and
// rename use the first provider that returns something.
//
// Provider errors and panics never reach the caller. They are logged at
// warning level with the provider's registration id and the provider is
// treated as having returned nothing. Cancellation is logged at debug
// level only.
package languages
