package workspace

import (
	"errors"
	"fmt"

	"github.com/dshills/exthost/internal/uri"
)

// Standard errors returned by the workspace package.
var (
	// ErrDocumentNotFound indicates the resource cannot be opened.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrDocumentNotOpen indicates the document is not open in the store.
	ErrDocumentNotOpen = errors.New("document not open")

	// ErrAlreadyOpen indicates a document with the same identifier is open.
	ErrAlreadyOpen = errors.New("document already open")

	// ErrIsDirectory indicates the path is a directory, not a file.
	ErrIsDirectory = errors.New("path is a directory")

	// ErrFileTooLarge indicates the file exceeds the maximum size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrBinaryFile indicates the file appears to be binary.
	ErrBinaryFile = errors.New("binary file")

	// ErrUnsupportedScheme indicates the store cannot load the URI scheme.
	ErrUnsupportedScheme = errors.New("unsupported uri scheme")

	// ErrUntitledSave indicates an untitled document has no path to save to.
	ErrUntitledSave = errors.New("untitled document has no file path")

	// ErrEditConsumed indicates a workspace edit was applied before.
	ErrEditConsumed = errors.New("workspace edit already applied")

	// ErrBatchAborted marks resources that were valid but not committed
	// because another resource in the batch failed.
	ErrBatchAborted = errors.New("batch aborted")

	// ErrBackupSchema indicates a backup written by an incompatible version.
	ErrBackupSchema = errors.New("unsupported backup schema")
)

// ResourceError is an error associated with one document.
type ResourceError struct {
	Op  string
	URI uri.URI
	Err error
}

// Error implements the error interface.
func (e *ResourceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URI, e.Err)
}

// Unwrap returns the underlying error.
func (e *ResourceError) Unwrap() error {
	return e.Err
}
