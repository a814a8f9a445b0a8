package ledger

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/davidahmann/courseledger/pkg/types"
)

// Contract method names, shared by every Client implementation.
const (
	OpPurchaseCourse       = "purchaseCourse"
	OpActivateCourse       = "activateCourse"
	OpDeactivateCourse     = "deactivateCourse"
	OpGetCourseByHash      = "getCourseByHash"
	OpGetCourseCount       = "getCourseCount"
	OpGetCourseHashAtIndex = "getCourseHashAtIndex"
	OpGetContractOwner     = "getContractOwner"
)

// TxOpts attributes a write to an account. Value is in wei and may be nil.
type TxOpts struct {
	From  common.Address
	Value *big.Int
}

// Client is the marketplace contract as seen from off-chain code.
//
// GetCourseByHash returns a record with the zero owner, not an error, when
// nothing is filed under hash. Writes return the transaction hash once the
// ledger has accepted or rejected them; callers re-read to observe effects.
type Client interface {
	GetCourseByHash(ctx context.Context, hash common.Hash) (types.LedgerRecord, error)
	GetCourseCount(ctx context.Context) (uint64, error)
	GetCourseHashAtIndex(ctx context.Context, index uint64) (common.Hash, error)
	GetContractOwner(ctx context.Context) (common.Address, error)

	PurchaseCourse(ctx context.Context, courseID [16]byte, proof common.Hash, opts TxOpts) (common.Hash, error)
	ActivateCourse(ctx context.Context, hash common.Hash, opts TxOpts) (common.Hash, error)
	DeactivateCourse(ctx context.Context, hash common.Hash, opts TxOpts) (common.Hash, error)
}
