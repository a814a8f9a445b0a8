package market

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/davidahmann/courseledger/internal/crypto"
	"github.com/davidahmann/courseledger/internal/ledger"
	"github.com/davidahmann/courseledger/internal/metrics"
)

// Action is an admin state change request.
type Action string

const (
	ActionActivate   Action = "activate"
	ActionDeactivate Action = "deactivate"
)

func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionActivate, ActionDeactivate:
		return Action(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

// Verify recomputes the commitment for email under storedHash and compares
// it with storedProof. The outcome replaces any earlier one for storedHash.
// A mismatch, including an empty email, is a normal negative result.
func (s *Service) Verify(email string, storedHash, storedProof common.Hash) bool {
	verified := false
	proof, err := crypto.RecomputeCommitment(email, storedHash)
	if err == nil {
		verified = crypto.ProofsEqual(proof, storedProof)
	}
	s.results.Record(storedHash, verified)
	s.metrics.Verification(verified)
	if !verified {
		s.log.Info().Str("hash", storedHash.Hex()).Msg("email does not match stored proof")
	}
	return verified
}

// VerifyByHash reads the record filed under hash and verifies email against
// its proof.
func (s *Service) VerifyByHash(ctx context.Context, email string, hash common.Hash) (bool, error) {
	rec, err := s.ledger.GetCourseByHash(ctx, hash)
	if err != nil {
		return false, err
	}
	if !rec.Exists() {
		return false, &ledger.Rejection{Op: ledger.OpGetCourseByHash, Reason: ledger.ErrNotFound}
	}
	return s.Verify(email, rec.Hash, rec.Proof), nil
}

// ChangeState asks the ledger to activate or deactivate the course filed
// under courseHash, sent from admin. It does not report the resulting
// state; callers re-read the record.
func (s *Service) ChangeState(ctx context.Context, courseHash common.Hash, action Action, admin common.Address) error {
	log := s.log.With().Str("hash", courseHash.Hex()).Str("action", string(action)).Str("account", admin.Hex()).Logger()
	if admin == (common.Address{}) {
		s.metrics.StateChange(string(action), metrics.OutcomeInvalid)
		return ErrNoAccount
	}

	var (
		tx  common.Hash
		err error
	)
	opts := ledger.TxOpts{From: admin}
	switch action {
	case ActionActivate:
		tx, err = s.ledger.ActivateCourse(ctx, courseHash, opts)
	case ActionDeactivate:
		tx, err = s.ledger.DeactivateCourse(ctx, courseHash, opts)
	default:
		s.metrics.StateChange(string(action), metrics.OutcomeInvalid)
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	if err != nil {
		s.metrics.StateChange(string(action), metrics.OutcomeRejected)
		log.Warn().Err(err).Msg("state change failed")
		return fmt.Errorf("%s course %s: %w", action, courseHash.Hex(), err)
	}
	s.metrics.StateChange(string(action), metrics.OutcomeSubmitted)
	log.Info().Str("tx", tx.Hex()).Msg("state change submitted")
	return nil
}
