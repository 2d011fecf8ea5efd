// Package lsp exposes the extension host over the Language Server Protocol.
//
// Clients own their buffers: didOpen registers the text with the document
// store and every didChange content change is committed as one transaction
// against the result of the previous change. Hover and formatting requests
// are answered by the providers registered with the host's language
// registry. Diagnostics of every collection are pushed to the client with
// textDocument/publishDiagnostics whenever they change.
//
// Positions on the wire and in the document model both count UTF-16 code
// units, so conversions only check integer widths.
package lsp
