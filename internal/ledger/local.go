package ledger

import (
	"context"
	"encoding/binary"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	gethCrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"

	"github.com/davidahmann/courseledger/pkg/types"
)

// Local is an in-process marketplace contract. It enforces the same rules
// as the deployed contract over a Store, so the flows can run without a
// node. Writes are serialised.
type Local struct {
	mu       sync.Mutex
	store    Store
	owner    common.Address
	contract common.Address
	nonce    uint64
	log      zerolog.Logger
}

var _ Client = (*Local)(nil)

// NewLocal returns a ledger administered by owner. Purchase payments are
// held under the contract address until refunded.
func NewLocal(store Store, owner, contract common.Address, log zerolog.Logger) *Local {
	return &Local{
		store:    store,
		owner:    owner,
		contract: contract,
		log:      log.With().Str("component", "local_ledger").Logger(),
	}
}

// Fund credits account with amount wei.
func (l *Local) Fund(account common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.WithTx(func(tx Tx) error {
		bal, err := tx.GetBalance(account)
		if err != nil {
			return err
		}
		return tx.PutBalance(account, bal.Add(bal, amount))
	})
}

// Seed credits account with its opening balance once per store. It reports
// whether the credit was applied; later calls for the same account are
// no-ops whatever the balance has become.
func (l *Local) Seed(account common.Address, amount *big.Int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var seeded bool
	err := l.store.WithTx(func(tx Tx) error {
		fresh, err := tx.MarkSeeded(account)
		if err != nil || !fresh {
			return err
		}
		bal, err := tx.GetBalance(account)
		if err != nil {
			return err
		}
		seeded = true
		return tx.PutBalance(account, bal.Add(bal, amount))
	})
	if err != nil {
		return false, err
	}
	return seeded, nil
}

// Balance returns account's balance in wei.
func (l *Local) Balance(account common.Address) (*big.Int, error) {
	return l.store.GetBalance(account)
}

func (l *Local) GetCourseByHash(ctx context.Context, hash common.Hash) (types.LedgerRecord, error) {
	if err := ctx.Err(); err != nil {
		return types.LedgerRecord{}, err
	}
	rec, ok, err := l.store.GetRecord(hash)
	if err != nil {
		return types.LedgerRecord{}, storeFailure(OpGetCourseByHash, err)
	}
	if !ok {
		return types.LedgerRecord{Price: new(big.Int), State: types.StatePurchased}, nil
	}
	return rec, nil
}

func (l *Local) GetCourseCount(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := l.store.CountRecords()
	if err != nil {
		return 0, storeFailure(OpGetCourseCount, err)
	}
	return n, nil
}

func (l *Local) GetCourseHashAtIndex(ctx context.Context, index uint64) (common.Hash, error) {
	if err := ctx.Err(); err != nil {
		return common.Hash{}, err
	}
	hash, ok, err := l.store.RecordHashAt(index)
	if err != nil {
		return common.Hash{}, storeFailure(OpGetCourseHashAtIndex, err)
	}
	if !ok {
		return common.Hash{}, reject(OpGetCourseHashAtIndex, ErrNotFound)
	}
	return hash, nil
}

func (l *Local) GetContractOwner(ctx context.Context) (common.Address, error) {
	if err := ctx.Err(); err != nil {
		return common.Address{}, err
	}
	return l.owner, nil
}

func (l *Local) PurchaseCourse(ctx context.Context, courseID [16]byte, proof common.Hash, opts TxOpts) (common.Hash, error) {
	if err := ctx.Err(); err != nil {
		return common.Hash{}, err
	}
	if opts.From == (common.Address{}) {
		return common.Hash{}, reject(OpPurchaseCourse, ErrInvalidSender)
	}
	value := new(big.Int)
	if opts.Value != nil {
		value.Set(opts.Value)
	}
	hash := gethCrypto.Keccak256Hash(courseID[:], opts.From.Bytes())

	l.mu.Lock()
	defer l.mu.Unlock()
	err := l.store.WithTx(func(tx Tx) error {
		existing, ok, err := tx.GetRecord(hash)
		if err != nil {
			return err
		}
		if ok && existing.Exists() {
			return reject(OpPurchaseCourse, ErrCourseHasOwner)
		}
		if err := l.transfer(tx, opts.From, l.contract, value); err != nil {
			if errors.Is(err, ErrInsufficientFunds) {
				return reject(OpPurchaseCourse, ErrInsufficientFunds)
			}
			return err
		}
		id, err := tx.CountRecords()
		if err != nil {
			return err
		}
		return tx.PutRecord(types.LedgerRecord{
			ID:    id,
			Price: value,
			Owner: opts.From,
			Hash:  hash,
			Proof: proof,
			State: types.StatePurchased,
		})
	})
	if err != nil {
		l.log.Debug().Err(err).Str("hash", hash.Hex()).Str("from", opts.From.Hex()).Msg("purchase rejected")
		return common.Hash{}, storeFailure(OpPurchaseCourse, err)
	}
	return l.txHash(OpPurchaseCourse, opts.From, hash), nil
}

func (l *Local) ActivateCourse(ctx context.Context, hash common.Hash, opts TxOpts) (common.Hash, error) {
	return l.transition(ctx, OpActivateCourse, hash, opts)
}

func (l *Local) DeactivateCourse(ctx context.Context, hash common.Hash, opts TxOpts) (common.Hash, error) {
	return l.transition(ctx, OpDeactivateCourse, hash, opts)
}

// transition applies an admin state change. A record may move to activated
// from purchased or deactivated, and to deactivated from purchased or
// activated; nothing returns to purchased. Deactivation refunds the price.
func (l *Local) transition(ctx context.Context, op string, hash common.Hash, opts TxOpts) (common.Hash, error) {
	if err := ctx.Err(); err != nil {
		return common.Hash{}, err
	}
	if opts.From != l.owner {
		return common.Hash{}, reject(op, ErrNotContractOwner)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	err := l.store.WithTx(func(tx Tx) error {
		rec, ok, err := tx.GetRecord(hash)
		if err != nil {
			return err
		}
		if !ok || !rec.Exists() {
			return reject(op, ErrNotFound)
		}
		switch op {
		case OpActivateCourse:
			if rec.State != types.StatePurchased && rec.State != types.StateDeactivated {
				return reject(op, ErrInvalidState)
			}
			rec.State = types.StateActivated
		case OpDeactivateCourse:
			if rec.State != types.StatePurchased && rec.State != types.StateActivated {
				return reject(op, ErrInvalidState)
			}
			if rec.Price != nil && rec.Price.Sign() > 0 {
				if err := l.transfer(tx, l.contract, rec.Owner, rec.Price); err != nil {
					return &Rejection{Op: op, Reason: ErrReverted, Err: err}
				}
			}
			rec.Price = new(big.Int)
			rec.State = types.StateDeactivated
		}
		return tx.PutRecord(rec)
	})
	if err != nil {
		l.log.Debug().Err(err).Str("op", op).Str("hash", hash.Hex()).Msg("transition rejected")
		return common.Hash{}, storeFailure(op, err)
	}
	return l.txHash(op, opts.From, hash), nil
}

// storeFailure reports a store error as a rejection of op with no contract
// reason. Rejections pass through unchanged.
func storeFailure(op string, err error) error {
	if err == nil || IsRejection(err) {
		return err
	}
	return &Rejection{Op: op, Err: err}
}

func (l *Local) transfer(tx Tx, from, to common.Address, amount *big.Int) error {
	if amount.Sign() == 0 || from == to {
		return nil
	}
	fromBal, err := tx.GetBalance(from)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	toBal, err := tx.GetBalance(to)
	if err != nil {
		return err
	}
	if err := tx.PutBalance(from, fromBal.Sub(fromBal, amount)); err != nil {
		return err
	}
	return tx.PutBalance(to, toBal.Add(toBal, amount))
}

// txHash derives a unique pseudo transaction hash. Caller holds l.mu.
func (l *Local) txHash(op string, from common.Address, subject common.Hash) common.Hash {
	l.nonce++
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], l.nonce)
	return gethCrypto.Keccak256Hash([]byte(op), from.Bytes(), subject.Bytes(), n[:])
}
