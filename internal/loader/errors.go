package loader

import "fmt"

// NotFoundError indicates the input or policy path does not exist
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("input not found: %s", e.Path)
}

// UnsupportedFormatError indicates an entry whose content cannot be decoded
// into text. It is fatal for the run: a batch with undecodable documents is
// not silently narrowed.
type UnsupportedFormatError struct {
	Path   string
	Reason string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format: %s: %s", e.Path, e.Reason)
}
