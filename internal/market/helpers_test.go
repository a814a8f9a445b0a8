package market

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/davidahmann/courseledger/internal/catalog"
	"github.com/davidahmann/courseledger/internal/ledger"
	"github.com/davidahmann/courseledger/pkg/types"
)

var (
	adminAccount    = common.HexToAddress("0x0000000000000000000000000000000000000001")
	contractAccount = common.HexToAddress("0x0000000000000000000000000000000000000002")
	buyerAccount    = common.HexToAddress("0xabcabcabcabcabcabcabcabcabcabcabcabcabca")
)

const (
	vectorHash  = "0x27deeccde9fac1bb4957ad1e78fd625a3f7e13f1b9fa317b732d4515e5b127f8"
	vectorProof = "0x942dd2a3f80e62972f0b1d99ee84d540e740406539d64e00b4031151442491f7"
)

type fixture struct {
	local   *ledger.Local
	svc     *Service
	metrics *countingMetrics
	catalog *catalog.Catalog
}

func newFixture(t *testing.T, fundEther int64) *fixture {
	t.Helper()
	local := ledger.NewLocal(ledger.NewInMemoryStore(), adminAccount, contractAccount, zerolog.Nop())
	wei := new(big.Int).Mul(big.NewInt(fundEther), big.NewInt(1_000_000_000_000_000_000))
	require.NoError(t, local.Fund(buyerAccount, wei))

	collector := newCountingMetrics()
	svc, err := NewService(local, Options{StrictSearch: true, Metrics: collector, Logger: zerolog.Nop()})
	require.NoError(t, err)

	cat, err := catalog.New([]types.CourseDescriptor{
		{ID: "course-1", Title: "Intro", Price: "0.3"},
		{ID: "course-2", Title: "Advanced", Price: "1.5"},
		{ID: "course-3", Title: "Expert", Price: "2"},
	})
	require.NoError(t, err)

	return &fixture{local: local, svc: svc, metrics: collector, catalog: cat}
}

func (f *fixture) course(t *testing.T, id string) types.CourseDescriptor {
	t.Helper()
	c, ok := f.catalog.Lookup(id)
	require.True(t, ok, id)
	return c
}

func (f *fixture) record(t *testing.T, hash common.Hash) types.LedgerRecord {
	t.Helper()
	rec, err := f.local.GetCourseByHash(context.Background(), hash)
	require.NoError(t, err)
	return rec
}

type countingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{counts: make(map[string]int)}
}

func (m *countingMetrics) inc(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
}

func (m *countingMetrics) count(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[key]
}

func (m *countingMetrics) Purchase(outcome string) { m.inc("purchase/" + outcome) }

func (m *countingMetrics) Verification(matched bool) {
	m.inc(fmt.Sprintf("verification/%t", matched))
}

func (m *countingMetrics) StateChange(action, outcome string) {
	m.inc("state/" + action + "/" + outcome)
}
