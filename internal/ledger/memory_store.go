package ledger

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/davidahmann/courseledger/pkg/types"
)

type InMemoryStore struct {
	mu sync.Mutex

	records  map[common.Hash]types.LedgerRecord
	order    []common.Hash
	balances map[common.Address]*big.Int
	seeded   map[common.Address]bool
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records:  make(map[common.Hash]types.LedgerRecord),
		balances: make(map[common.Address]*big.Int),
		seeded:   make(map[common.Address]bool),
	}
}

// WithTx runs fn against a staged copy and applies it only if fn succeeds.
func (s *InMemoryStore) WithTx(fn func(Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := &memTx{
		records:  make(map[common.Hash]types.LedgerRecord, len(s.records)),
		order:    append([]common.Hash(nil), s.order...),
		balances: make(map[common.Address]*big.Int, len(s.balances)),
		seeded:   make(map[common.Address]bool, len(s.seeded)),
	}
	for k, v := range s.records {
		staged.records[k] = v
	}
	for k, v := range s.balances {
		staged.balances[k] = v
	}
	for k := range s.seeded {
		staged.seeded[k] = true
	}
	if err := fn(staged); err != nil {
		return err
	}
	s.records = staged.records
	s.order = staged.order
	s.balances = staged.balances
	s.seeded = staged.seeded
	return nil
}

func (s *InMemoryStore) GetRecord(hash common.Hash) (types.LedgerRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[hash]
	return copyRecord(rec), ok, nil
}

func (s *InMemoryStore) RecordHashAt(index uint64) (common.Hash, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index >= uint64(len(s.order)) {
		return common.Hash{}, false, nil
	}
	return s.order[index], true, nil
}

func (s *InMemoryStore) CountRecords() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint64(len(s.order)), nil
}

func (s *InMemoryStore) GetBalance(account common.Address) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return balanceOf(s.balances, account), nil
}

type memTx struct {
	records  map[common.Hash]types.LedgerRecord
	order    []common.Hash
	balances map[common.Address]*big.Int
	seeded   map[common.Address]bool
}

func (t *memTx) GetRecord(hash common.Hash) (types.LedgerRecord, bool, error) {
	rec, ok := t.records[hash]
	return copyRecord(rec), ok, nil
}

func (t *memTx) RecordHashAt(index uint64) (common.Hash, bool, error) {
	if index >= uint64(len(t.order)) {
		return common.Hash{}, false, nil
	}
	return t.order[index], true, nil
}

func (t *memTx) CountRecords() (uint64, error) {
	return uint64(len(t.order)), nil
}

func (t *memTx) GetBalance(account common.Address) (*big.Int, error) {
	return balanceOf(t.balances, account), nil
}

func (t *memTx) PutRecord(rec types.LedgerRecord) error {
	if _, ok := t.records[rec.Hash]; !ok {
		t.order = append(t.order, rec.Hash)
	}
	t.records[rec.Hash] = copyRecord(rec)
	return nil
}

func (t *memTx) PutBalance(account common.Address, amount *big.Int) error {
	t.balances[account] = new(big.Int).Set(amount)
	return nil
}

func (t *memTx) MarkSeeded(account common.Address) (bool, error) {
	if t.seeded[account] {
		return false, nil
	}
	t.seeded[account] = true
	return true, nil
}

func balanceOf(balances map[common.Address]*big.Int, account common.Address) *big.Int {
	if b, ok := balances[account]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}
