package collector

import "fmt"

// AccountError wraps a per-account failure so callers can attribute errors
// in a batch summary back to their handle.
type AccountError struct {
	Handle string
	Err    error
}

func (e *AccountError) Error() string {
	return fmt.Sprintf("account %s: %v", e.Handle, e.Err)
}

func (e *AccountError) Unwrap() error { return e.Err }
