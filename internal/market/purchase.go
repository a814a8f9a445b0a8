package market

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/davidahmann/courseledger/internal/crypto"
	"github.com/davidahmann/courseledger/internal/ledger"
	"github.com/davidahmann/courseledger/internal/metrics"
	"github.com/davidahmann/courseledger/pkg/types"
)

type PurchaseReceipt struct {
	AttemptID string         `json:"attempt_id"`
	CourseID  string         `json:"course_id"`
	OrderID   common.Hash    `json:"hash"`
	TxHash    common.Hash    `json:"tx_hash"`
	Value     *big.Int       `json:"value_wei"`
	Buyer     common.Address `json:"buyer"`
}

// Purchase commits order.Email to the order identifier for (course, buyer)
// and submits the purchase with the order price attached. An empty order
// price falls back to the catalog price.
//
// Validation failures are returned as-is before the ledger is touched.
// Ledger failures come back as *PurchaseError; nothing is retried and the
// identifier and commitment are not kept.
func (s *Service) Purchase(ctx context.Context, course types.CourseDescriptor, order types.Order, buyer common.Address) (PurchaseReceipt, error) {
	attempt := uuid.NewString()
	log := s.log.With().
		Str("attempt_id", attempt).
		Str("course_id", course.ID).
		Str("account", buyer.Hex()).
		Logger()

	if buyer == (common.Address{}) {
		s.metrics.Purchase(metrics.OutcomeInvalid)
		return PurchaseReceipt{}, ErrNoAccount
	}
	courseID, err := crypto.CourseIDBytes(course.ID)
	if err != nil {
		s.metrics.Purchase(metrics.OutcomeInvalid)
		return PurchaseReceipt{}, err
	}
	orderID, err := crypto.ComputeOrderIdentifier(course.ID, buyer)
	if err != nil {
		s.metrics.Purchase(metrics.OutcomeInvalid)
		return PurchaseReceipt{}, err
	}
	proof, err := crypto.ComputeCommitment(order.Email, orderID)
	if err != nil {
		s.metrics.Purchase(metrics.OutcomeInvalid)
		return PurchaseReceipt{}, err
	}
	price := order.Price
	if price == "" {
		price = course.Price
	}
	value, err := ledger.ToWei(price)
	if err != nil {
		s.metrics.Purchase(metrics.OutcomeInvalid)
		return PurchaseReceipt{}, fmt.Errorf("%w: %v", ErrInvalidPrice, err)
	}

	tx, err := s.ledger.PurchaseCourse(ctx, courseID, proof, ledger.TxOpts{From: buyer, Value: value})
	if err != nil {
		s.metrics.Purchase(metrics.OutcomeRejected)
		log.Warn().Err(err).Str("hash", orderID.Hex()).Msg("purchase failed")
		return PurchaseReceipt{}, &PurchaseError{AttemptID: attempt, CourseID: course.ID, Err: err}
	}

	s.metrics.Purchase(metrics.OutcomeSubmitted)
	log.Info().Str("hash", orderID.Hex()).Str("tx", tx.Hex()).Msg("purchase submitted")
	return PurchaseReceipt{
		AttemptID: attempt,
		CourseID:  course.ID,
		OrderID:   orderID,
		TxHash:    tx,
		Value:     value,
		Buyer:     buyer,
	}, nil
}
