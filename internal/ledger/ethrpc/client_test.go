package ethrpc

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethTypes "github.com/ethereum/go-ethereum/core/types"
	gethCrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidahmann/courseledger/internal/ledger"
	"github.com/davidahmann/courseledger/pkg/types"
)

var (
	owner    = common.HexToAddress("0x0000000000000000000000000000000000000001")
	contract = common.HexToAddress("0x0000000000000000000000000000000000000002")
	buyer    = common.HexToAddress("0xabcabcabcabcabcabcabcabcabcabcabcabcabca")
)

// fakeNode answers the eth_* calls the client makes by decoding contract
// calldata and running it against a local ledger.
type fakeNode struct {
	abi   abi.ABI
	local *ledger.Local

	mu            sync.Mutex
	receipts      map[common.Hash]*gethTypes.Receipt
	pendingPolls  int
	revertOnChain bool
	nonce         uint64
}

type callArgs struct {
	From  *common.Address `json:"from"`
	To    *common.Address `json:"to"`
	Data  hexutil.Bytes   `json:"data"`
	Input hexutil.Bytes   `json:"input"`
	Value *hexutil.Big    `json:"value"`
}

func (a callArgs) payload() []byte {
	if len(a.Input) > 0 {
		return a.Input
	}
	return a.Data
}

func (f *fakeNode) Call(ctx context.Context, args callArgs, block string) (hexutil.Bytes, error) {
	method, vals, err := f.decode(args.payload())
	if err != nil {
		return nil, err
	}
	switch method.Name {
	case ledger.OpGetCourseByHash:
		rec, err := f.local.GetCourseByHash(ctx, common.Hash(vals[0].([32]byte)))
		if err != nil {
			return nil, err
		}
		code, _ := rec.State.Code()
		return method.Outputs.Pack(courseTuple{
			Id:    new(big.Int).SetUint64(rec.ID),
			Price: rec.Price,
			Proof: rec.Proof,
			Owner: rec.Owner,
			State: code,
		})
	case ledger.OpGetCourseCount:
		n, err := f.local.GetCourseCount(ctx)
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(new(big.Int).SetUint64(n))
	case ledger.OpGetCourseHashAtIndex:
		h, err := f.local.GetCourseHashAtIndex(ctx, vals[0].(*big.Int).Uint64())
		if err != nil {
			return nil, errors.New("execution reverted")
		}
		return method.Outputs.Pack([32]byte(h))
	case ledger.OpGetContractOwner:
		o, err := f.local.GetContractOwner(ctx)
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(o)
	}
	return nil, fmt.Errorf("unexpected call %s", method.Name)
}

func (f *fakeNode) SendTransaction(ctx context.Context, args callArgs) (common.Hash, error) {
	method, vals, err := f.decode(args.payload())
	if err != nil {
		return common.Hash{}, err
	}
	opts := ledger.TxOpts{From: *args.From}
	if args.Value != nil {
		opts.Value = args.Value.ToInt()
	}
	switch method.Name {
	case ledger.OpPurchaseCourse:
		_, err = f.local.PurchaseCourse(ctx, vals[0].([16]byte), common.Hash(vals[1].([32]byte)), opts)
	case ledger.OpActivateCourse:
		_, err = f.local.ActivateCourse(ctx, common.Hash(vals[0].([32]byte)), opts)
	case ledger.OpDeactivateCourse:
		_, err = f.local.DeactivateCourse(ctx, common.Hash(vals[0].([32]byte)), opts)
	default:
		return common.Hash{}, fmt.Errorf("unexpected transaction %s", method.Name)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	status := gethTypes.ReceiptStatusSuccessful
	if err != nil {
		if !f.revertOnChain {
			return common.Hash{}, nodeError(err)
		}
		status = gethTypes.ReceiptStatusFailed
	}
	f.nonce++
	txHash := gethCrypto.Keccak256Hash(args.payload(), new(big.Int).SetUint64(f.nonce).Bytes())
	f.receipts[txHash] = &gethTypes.Receipt{Status: status, TxHash: txHash, Logs: []*gethTypes.Log{}}
	return txHash, nil
}

func (f *fakeNode) GetTransactionReceipt(ctx context.Context, txHash common.Hash) (*gethTypes.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pendingPolls > 0 {
		f.pendingPolls--
		return nil, nil
	}
	return f.receipts[txHash], nil
}

func (f *fakeNode) decode(data []byte) (*abi.Method, []interface{}, error) {
	if len(data) < 4 {
		return nil, nil, errors.New("short calldata")
	}
	method, err := f.abi.MethodById(data[:4])
	if err != nil {
		return nil, nil, err
	}
	vals, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, nil, err
	}
	return method, vals, nil
}

// nodeError phrases a ledger rejection the way a node reports a failed
// gas estimation.
func nodeError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return errors.New("insufficient funds for gas * price + value")
	case errors.Is(err, ledger.ErrCourseHasOwner):
		return errors.New("execution reverted: CourseHasOwner()")
	case errors.Is(err, ledger.ErrInvalidState):
		return errors.New("execution reverted: InvalidState()")
	case errors.Is(err, ledger.ErrNotContractOwner):
		return errors.New("execution reverted: OnlyOwner()")
	case errors.Is(err, ledger.ErrNotFound):
		return errors.New("execution reverted: CourseIsNotCreated()")
	}
	return errors.New("execution reverted")
}

func newTestClient(t *testing.T) (*Client, *fakeNode) {
	t.Helper()
	parsed, err := parseMarketplaceABI()
	require.NoError(t, err)

	local := ledger.NewLocal(ledger.NewInMemoryStore(), owner, contract, zerolog.Nop())
	require.NoError(t, local.Fund(buyer, big.NewInt(1_000_000)))
	node := &fakeNode{abi: parsed, local: local, receipts: make(map[common.Hash]*gethTypes.Receipt)}

	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("eth", node))
	t.Cleanup(server.Stop)

	c, err := New(rpc.DialInProc(server), contract, zerolog.Nop())
	require.NoError(t, err)
	c.SetPollInterval(time.Millisecond)
	t.Cleanup(c.Close)
	return c, node
}

func TestMethodSelectors(t *testing.T) {
	parsed, err := parseMarketplaceABI()
	require.NoError(t, err)

	want := map[string]string{
		ledger.OpPurchaseCourse:       "d76821cb",
		ledger.OpActivateCourse:       "39262572",
		ledger.OpDeactivateCourse:     "935d7e6d",
		ledger.OpGetCourseByHash:      "62e4e6ac",
		ledger.OpGetCourseCount:       "96cfda06",
		ledger.OpGetCourseHashAtIndex: "6d11290b",
		ledger.OpGetContractOwner:     "442890d5",
	}
	for name, sel := range want {
		m, ok := parsed.Methods[name]
		require.True(t, ok, name)
		assert.Equal(t, sel, hex.EncodeToString(m.ID), name)
	}
}

func TestPurchaseAndRead(t *testing.T) {
	ctx := context.Background()
	c, node := newTestClient(t)
	node.pendingPolls = 2

	var id [16]byte
	copy(id[:], "course-1")
	proof := common.HexToHash("0x942dd2a3f80e62972f0b1d99ee84d540e740406539d64e00b4031151442491f7")

	tx, err := c.PurchaseCourse(ctx, id, proof, ledger.TxOpts{From: buyer, Value: big.NewInt(500)})
	require.NoError(t, err)
	assert.NotEqual(t, common.Hash{}, tx)

	n, err := c.GetCourseCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	hash, err := c.GetCourseHashAtIndex(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "0x27deeccde9fac1bb4957ad1e78fd625a3f7e13f1b9fa317b732d4515e5b127f8", hash.Hex())

	rec, err := c.GetCourseByHash(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, buyer, rec.Owner)
	assert.Equal(t, proof, rec.Proof)
	assert.Equal(t, hash, rec.Hash)
	assert.Equal(t, int64(500), rec.Price.Int64())
	assert.Equal(t, types.StatePurchased, rec.State)

	missing, err := c.GetCourseByHash(ctx, common.Hash{0x42})
	require.NoError(t, err)
	assert.False(t, missing.Exists())

	got, err := c.GetContractOwner(ctx)
	require.NoError(t, err)
	assert.Equal(t, owner, got)
}

func TestRejectionsAreClassified(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestClient(t)

	var id [16]byte
	copy(id[:], "course-1")
	_, err := c.PurchaseCourse(ctx, id, common.Hash{}, ledger.TxOpts{From: buyer, Value: big.NewInt(1)})
	require.NoError(t, err)

	_, err = c.PurchaseCourse(ctx, id, common.Hash{}, ledger.TxOpts{From: buyer, Value: big.NewInt(1)})
	require.ErrorIs(t, err, ledger.ErrCourseHasOwner)

	copy(id[:], "course-2")
	_, err = c.PurchaseCourse(ctx, id, common.Hash{}, ledger.TxOpts{From: buyer, Value: big.NewInt(10_000_000)})
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	hash, err := c.GetCourseHashAtIndex(ctx, 0)
	require.NoError(t, err)
	_, err = c.ActivateCourse(ctx, hash, ledger.TxOpts{From: buyer})
	require.ErrorIs(t, err, ledger.ErrNotContractOwner)

	_, err = c.ActivateCourse(ctx, hash, ledger.TxOpts{From: owner})
	require.NoError(t, err)
	_, err = c.ActivateCourse(ctx, hash, ledger.TxOpts{From: owner})
	require.ErrorIs(t, err, ledger.ErrInvalidState)

	_, err = c.GetCourseHashAtIndex(ctx, 5)
	require.ErrorIs(t, err, ledger.ErrReverted)

	_, err = c.ActivateCourse(ctx, hash, ledger.TxOpts{})
	require.ErrorIs(t, err, ledger.ErrInvalidSender)
}

func TestFailedReceiptIsReverted(t *testing.T) {
	ctx := context.Background()
	c, node := newTestClient(t)
	node.revertOnChain = true

	_, err := c.DeactivateCourse(ctx, common.Hash{0x01}, ledger.TxOpts{From: owner})
	require.ErrorIs(t, err, ledger.ErrReverted)
	var rej *ledger.Rejection
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, ledger.OpDeactivateCourse, rej.Op)
}

func TestWaitMinedHonoursContext(t *testing.T) {
	c, node := newTestClient(t)
	node.pendingPolls = 1 << 30

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	var id [16]byte
	copy(id[:], "course-1")
	_, err := c.PurchaseCourse(ctx, id, common.Hash{}, ledger.TxOpts{From: buyer})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRejectionMapping(t *testing.T) {
	cases := map[string]error{
		"insufficient funds for gas * price + value": ledger.ErrInsufficientFunds,
		"execution reverted: CourseHasOwner()":       ledger.ErrCourseHasOwner,
		"execution reverted: InvalidState()":         ledger.ErrInvalidState,
		"execution reverted: OnlyOwner()":            ledger.ErrNotContractOwner,
		"execution reverted: CourseIsNotCreated()":   ledger.ErrNotFound,
		"execution reverted":                         ledger.ErrReverted,
	}
	for msg, want := range cases {
		err := rejection("op", errors.New(msg))
		assert.ErrorIs(t, err, want, msg)
	}
	plain := rejection("op", errors.New("connection refused"))
	assert.Nil(t, plain.Reason)
	assert.True(t, ledger.IsRejection(plain))
}
