package ledger

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/davidahmann/courseledger/pkg/types"
)

// Reader is the read half shared by Store and Tx. A missing record or
// index reports false with a nil error; any other failure is an error.
type Reader interface {
	GetRecord(hash common.Hash) (types.LedgerRecord, bool, error)
	RecordHashAt(index uint64) (common.Hash, bool, error)
	CountRecords() (uint64, error)
	GetBalance(account common.Address) (*big.Int, error)
}

// Store persists the state behind a Local ledger.
type Store interface {
	Reader
	WithTx(fn func(Tx) error) error
}

// Tx is a unit of work against a Store. Record IDs are assigned by the
// caller and must equal CountRecords() at insert time.
type Tx interface {
	Reader
	PutRecord(rec types.LedgerRecord) error
	PutBalance(account common.Address, amount *big.Int) error
	// MarkSeeded records that account has had its opening balance and
	// reports false when it already had.
	MarkSeeded(account common.Address) (bool, error)
}

func copyRecord(rec types.LedgerRecord) types.LedgerRecord {
	if rec.Price != nil {
		rec.Price = new(big.Int).Set(rec.Price)
	}
	return rec
}
