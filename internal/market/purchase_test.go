package market

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/davidahmann/courseledger/internal/crypto"
	"github.com/davidahmann/courseledger/internal/ledger"
	"github.com/davidahmann/courseledger/internal/ledger/ledgermock"
	"github.com/davidahmann/courseledger/internal/metrics"
	"github.com/davidahmann/courseledger/pkg/types"
)

func TestPurchaseStoresCommitment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)

	receipt, err := f.svc.Purchase(ctx, f.course(t, "course-1"), types.Order{Email: "a@b.com"}, buyerAccount)
	require.NoError(t, err)
	assert.Equal(t, vectorHash, receipt.OrderID.Hex())
	assert.NotEmpty(t, receipt.AttemptID)
	assert.Equal(t, "300000000000000000", receipt.Value.String())
	assert.NotEqual(t, common.Hash{}, receipt.TxHash)

	rec := f.record(t, receipt.OrderID)
	assert.Equal(t, buyerAccount, rec.Owner)
	assert.Equal(t, vectorProof, rec.Proof.Hex())
	assert.Equal(t, types.StatePurchased, rec.State)
	assert.Equal(t, "300000000000000000", rec.Price.String())
	assert.Equal(t, 1, f.metrics.count("purchase/"+metrics.OutcomeSubmitted))
}

func TestPurchaseUsesOrderPrice(t *testing.T) {
	f := newFixture(t, 10)
	receipt, err := f.svc.Purchase(context.Background(), f.course(t, "course-1"), types.Order{Email: "a@b.com", Price: "0.25"}, buyerAccount)
	require.NoError(t, err)
	assert.Equal(t, "0.25", ledger.FromWei(f.record(t, receipt.OrderID).Price))
}

func TestPurchaseInsufficientFundsPersistsNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)

	_, err := f.svc.Purchase(ctx, f.course(t, "course-2"), types.Order{Email: "a@b.com"}, buyerAccount)
	require.Error(t, err)

	var perr *PurchaseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "course-2", perr.CourseID)
	assert.NotEmpty(t, perr.AttemptID)
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	assert.True(t, ledger.IsRejection(err))

	n, err := f.local.GetCourseCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, f.svc.Results().Len())
	assert.Equal(t, 1, f.metrics.count("purchase/"+metrics.OutcomeRejected))
}

func TestPurchaseDuplicateRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10)
	course := f.course(t, "course-1")

	_, err := f.svc.Purchase(ctx, course, types.Order{Email: "a@b.com"}, buyerAccount)
	require.NoError(t, err)
	_, err = f.svc.Purchase(ctx, course, types.Order{Email: "other@b.com"}, buyerAccount)
	require.ErrorIs(t, err, ledger.ErrCourseHasOwner)

	hash, _ := crypto.ComputeOrderIdentifier("course-1", buyerAccount)
	assert.Equal(t, vectorProof, f.record(t, hash).Proof.Hex())
}

func TestPurchaseValidationNeverReachesLedger(t *testing.T) {
	client := ledgermock.NewClient(t)
	svc, err := NewService(client, Options{Logger: zerolog.Nop()})
	require.NoError(t, err)
	ctx := context.Background()
	course := types.CourseDescriptor{ID: "course-1", Price: "0.3"}

	_, err = svc.Purchase(ctx, course, types.Order{Email: "a@b.com"}, common.Address{})
	assert.ErrorIs(t, err, ErrNoAccount)

	_, err = svc.Purchase(ctx, course, types.Order{Email: ""}, buyerAccount)
	assert.ErrorIs(t, err, crypto.ErrEmptyEmail)

	_, err = svc.Purchase(ctx, course, types.Order{Email: "a@b.com", Price: "-1"}, buyerAccount)
	assert.ErrorIs(t, err, ErrInvalidPrice)

	_, err = svc.Purchase(ctx, types.CourseDescriptor{ID: "a-course-id-over-16", Price: "1"}, types.Order{Email: "a@b.com"}, buyerAccount)
	assert.ErrorIs(t, err, crypto.ErrCourseIDTooLong)

	client.AssertNotCalled(t, "PurchaseCourse", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPurchaseSubmitsExpectedCall(t *testing.T) {
	client := ledgermock.NewClient(t)
	svc, err := NewService(client, Options{Logger: zerolog.Nop()})
	require.NoError(t, err)

	courseID, _ := crypto.CourseIDBytes("course-1")
	proof := common.HexToHash(vectorProof)
	wantOpts := mock.MatchedBy(func(o ledger.TxOpts) bool {
		return o.From == buyerAccount && o.Value.String() == "300000000000000000"
	})
	client.On("PurchaseCourse", mock.Anything, courseID, proof, wantOpts).
		Return(common.Hash{}, errors.New("node unavailable")).Once()

	_, err = svc.Purchase(context.Background(), types.CourseDescriptor{ID: "course-1", Price: "0.3"}, types.Order{Email: "a@b.com"}, buyerAccount)
	var perr *PurchaseError
	require.ErrorAs(t, err, &perr)
	assert.EqualError(t, perr.Err, "node unavailable")
}
