package opc

import "fmt"

// ArchiveError indicates the package is not a readable ZIP container, or a
// replacement container could not be written.
type ArchiveError struct {
	Path string
	Err  error
}

func (e *ArchiveError) Error() string { return fmt.Sprintf("archive %s: %v", e.Path, e.Err) }

func (e *ArchiveError) Unwrap() error { return e.Err }

// FilesystemError indicates a scratch-directory read/write failure unrelated
// to archive structure.
type FilesystemError struct {
	Path string
	Err  error
}

func (e *FilesystemError) Error() string { return fmt.Sprintf("filesystem %s: %v", e.Path, e.Err) }

func (e *FilesystemError) Unwrap() error { return e.Err }

// MalformedDocumentError indicates the core-properties part is not
// well-formed XML.
type MalformedDocumentError struct {
	Path string
	Err  error
}

func (e *MalformedDocumentError) Error() string {
	return fmt.Sprintf("malformed document %s: %v", e.Path, e.Err)
}

func (e *MalformedDocumentError) Unwrap() error { return e.Err }
