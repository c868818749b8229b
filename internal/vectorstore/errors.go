package vectorstore

import "fmt"

// Error wraps a failed vector store operation with enough context to tell
// which namespace was touched and whether the failure came from the remote
// service or the transport.
type Error struct {
	Op         string
	Namespace  string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("vector store %s on %s failed with status %d: %v", e.Op, e.Namespace, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("vector store %s on %s failed: %v", e.Op, e.Namespace, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
