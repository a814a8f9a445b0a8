package ethrpc

import (
	"strings"

	"github.com/davidahmann/courseledger/internal/ledger"
)

// revertReasons maps substrings of node error messages to ledger reasons.
// The contract reverts with custom errors whose names appear in the
// message; nodes phrase balance failures themselves.
var revertReasons = []struct {
	needle string
	reason error
}{
	{"insufficient funds", ledger.ErrInsufficientFunds},
	{"CourseHasOwner", ledger.ErrCourseHasOwner},
	{"InvalidState", ledger.ErrInvalidState},
	{"OnlyOwner", ledger.ErrNotContractOwner},
	{"CourseIsNotCreated", ledger.ErrNotFound},
	{"execution reverted", ledger.ErrReverted},
}

func rejection(op string, err error) *ledger.Rejection {
	msg := err.Error()
	for _, r := range revertReasons {
		if strings.Contains(msg, r.needle) {
			return &ledger.Rejection{Op: op, Reason: r.reason, Err: err}
		}
	}
	return &ledger.Rejection{Op: op, Err: err}
}
