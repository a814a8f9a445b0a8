package market

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPrice  = errors.New("invalid order price")
	ErrNoAccount     = errors.New("no account connected")
	ErrUnknownState  = errors.New("unknown course state")
	ErrUnknownAction = errors.New("unknown admin action")
)

// PurchaseError is a purchase the ledger refused or could not be reached
// for. Err is usually a *ledger.Rejection.
type PurchaseError struct {
	AttemptID string
	CourseID  string
	Err       error
}

func (e *PurchaseError) Error() string {
	return fmt.Sprintf("purchase of %s failed (attempt %s): %v", e.CourseID, e.AttemptID, e.Err)
}

func (e *PurchaseError) Unwrap() error { return e.Err }
