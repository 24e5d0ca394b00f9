package realtime

import (
	"errors"
	"fmt"
)

var (
	// ErrAuth means the connection has no valid credential or is no longer registered.
	ErrAuth = errors.New("realtime: not authenticated")
	// ErrUnauthorized means the caller is authenticated but not allowed in the group.
	ErrUnauthorized = errors.New("realtime: not a member of this group")
	// ErrNotFound means the group or note does not exist, or the note is not in the group.
	ErrNotFound = errors.New("realtime: not found")
	// ErrBadPayload means an inbound event could not be decoded.
	ErrBadPayload = errors.New("realtime: malformed event payload")
)

// StoreError wraps a persistence failure. It is reported to the sender only.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("realtime: %s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
