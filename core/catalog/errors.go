package catalog

import "fmt"

// ValidationError reports missing or malformed input, caught before any
// remote call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// RemoteError wraps a failure from the catalog store or blob store, keeping
// the provider's message available via Unwrap.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

func remoteErr(op string, err error) error {
	return &RemoteError{Op: op, Err: err}
}
