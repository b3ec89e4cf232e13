package tokenwriter

import "fmt"

// BufferResizeError is returned by Save when the target buffer cannot hold
// the accumulated text.
type BufferResizeError struct {
	FileName string
	Capacity int
	Err      error
}

func (e *BufferResizeError) Error() string {
	return fmt.Sprintf("unable to save %q, buffer resize to %d bytes failed: %v", e.FileName, e.Capacity, e.Err)
}

func (e *BufferResizeError) Unwrap() error {
	return e.Err
}
