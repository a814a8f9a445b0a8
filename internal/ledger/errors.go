package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("course not found")
	ErrCourseHasOwner    = errors.New("course already has an owner")
	ErrInvalidState      = errors.New("course is in an invalid state for this transition")
	ErrNotContractOwner  = errors.New("sender is not the contract owner")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidSender     = errors.New("sender account is required")
	ErrReverted          = errors.New("transaction reverted")
	ErrInvalidAmount     = errors.New("invalid ether amount")
)

// Rejection is a ledger refusal of a read or write. Reason is one of the
// package sentinels when the cause is known; Err carries the transport or
// node error, if any.
type Rejection struct {
	Op     string
	Reason error
	Err    error
}

func (r *Rejection) Error() string {
	switch {
	case r.Reason != nil && r.Err != nil:
		return fmt.Sprintf("%s rejected: %v: %v", r.Op, r.Reason, r.Err)
	case r.Reason != nil:
		return fmt.Sprintf("%s rejected: %v", r.Op, r.Reason)
	case r.Err != nil:
		return fmt.Sprintf("%s rejected: %v", r.Op, r.Err)
	default:
		return r.Op + " rejected"
	}
}

func (r *Rejection) Unwrap() []error {
	out := make([]error, 0, 2)
	if r.Reason != nil {
		out = append(out, r.Reason)
	}
	if r.Err != nil {
		out = append(out, r.Err)
	}
	return out
}

func reject(op string, reason error) *Rejection {
	return &Rejection{Op: op, Reason: reason}
}

// IsRejection reports whether err carries a *Rejection.
func IsRejection(err error) bool {
	var r *Rejection
	return errors.As(err, &r)
}
