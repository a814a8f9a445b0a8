package market

import (
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"
)

// VerificationResults keeps the most recent verification outcome per order
// identifier. Entries are advisory; they never reflect a ledger change.
type VerificationResults struct {
	cache *lru.Cache[common.Hash, bool]
}

func NewVerificationResults(size int) (*VerificationResults, error) {
	cache, err := lru.New[common.Hash, bool](size)
	if err != nil {
		return nil, err
	}
	return &VerificationResults{cache: cache}, nil
}

// Record overwrites the outcome for hash.
func (r *VerificationResults) Record(hash common.Hash, verified bool) {
	r.cache.Add(hash, verified)
}

// Lookup returns the last outcome for hash, if one is held.
func (r *VerificationResults) Lookup(hash common.Hash) (verified bool, ok bool) {
	return r.cache.Get(hash)
}

func (r *VerificationResults) Len() int {
	return r.cache.Len()
}
