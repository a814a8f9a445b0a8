package api

import (
	"errors"
	"net/http"

	"github.com/davidahmann/courseledger/internal/crypto"
	"github.com/davidahmann/courseledger/internal/ledger"
	"github.com/davidahmann/courseledger/internal/market"
)

var errCourseNotFound = errors.New("course not found")

// statusFor maps flow errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, market.ErrNoAccount):
		return http.StatusUnauthorized
	case errors.Is(err, crypto.ErrEmptyEmail),
		errors.Is(err, crypto.ErrEmptyCourseID),
		errors.Is(err, crypto.ErrCourseIDTooLong),
		errors.Is(err, crypto.ErrMalformedHash),
		errors.Is(err, market.ErrInvalidPrice),
		errors.Is(err, market.ErrUnknownAction):
		return http.StatusBadRequest
	case errors.Is(err, errCourseNotFound), errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, ledger.ErrNotContractOwner):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrCourseHasOwner), errors.Is(err, ledger.ErrInvalidState):
		return http.StatusConflict
	case ledger.IsRejection(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
