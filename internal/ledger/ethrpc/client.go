// Package ethrpc binds the ledger Client interface to a deployed marketplace
// contract over Ethereum JSON-RPC. Writes are sent with eth_sendTransaction,
// so the sending account must be unlocked on the node.
package ethrpc

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethTypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"

	"github.com/davidahmann/courseledger/internal/ledger"
	"github.com/davidahmann/courseledger/pkg/types"
)

const DefaultPollInterval = time.Second

type Client struct {
	rpc      *rpc.Client
	eth      *ethclient.Client
	contract common.Address
	abi      abi.ABI
	poll     time.Duration
	log      zerolog.Logger
}

var _ ledger.Client = (*Client)(nil)

// Dial connects to the node at url.
func Dial(ctx context.Context, url string, contract common.Address, log zerolog.Logger) (*Client, error) {
	rc, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c, err := New(rc, contract, log)
	if err != nil {
		rc.Close()
		return nil, err
	}
	return c, nil
}

func New(rc *rpc.Client, contract common.Address, log zerolog.Logger) (*Client, error) {
	parsed, err := parseMarketplaceABI()
	if err != nil {
		return nil, fmt.Errorf("parse contract abi: %w", err)
	}
	return &Client{
		rpc:      rc,
		eth:      ethclient.NewClient(rc),
		contract: contract,
		abi:      parsed,
		poll:     DefaultPollInterval,
		log:      log.With().Str("component", "ethrpc").Str("contract", contract.Hex()).Logger(),
	}, nil
}

// SetPollInterval changes how often receipts are polled after a write.
func (c *Client) SetPollInterval(d time.Duration) {
	if d > 0 {
		c.poll = d
	}
}

func (c *Client) Close() {
	c.rpc.Close()
}

func (c *Client) GetCourseByHash(ctx context.Context, hash common.Hash) (types.LedgerRecord, error) {
	out, err := c.call(ctx, ledger.OpGetCourseByHash, [32]byte(hash))
	if err != nil {
		return types.LedgerRecord{}, err
	}
	course := *abi.ConvertType(out[0], new(courseTuple)).(*courseTuple)
	state, ok := types.CourseStateFromCode(course.State)
	if !ok {
		return types.LedgerRecord{}, &ledger.Rejection{
			Op:  ledger.OpGetCourseByHash,
			Err: fmt.Errorf("unknown course state code %d", course.State),
		}
	}
	price := course.Price
	if price == nil {
		price = new(big.Int)
	}
	return types.LedgerRecord{
		ID:    course.Id.Uint64(),
		Price: price,
		Owner: course.Owner,
		Hash:  hash,
		Proof: common.Hash(course.Proof),
		State: state,
	}, nil
}

func (c *Client) GetCourseCount(ctx context.Context) (uint64, error) {
	out, err := c.call(ctx, ledger.OpGetCourseCount)
	if err != nil {
		return 0, err
	}
	n := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	if !n.IsUint64() {
		return 0, &ledger.Rejection{Op: ledger.OpGetCourseCount, Err: fmt.Errorf("course count %s out of range", n)}
	}
	return n.Uint64(), nil
}

func (c *Client) GetCourseHashAtIndex(ctx context.Context, index uint64) (common.Hash, error) {
	out, err := c.call(ctx, ledger.OpGetCourseHashAtIndex, new(big.Int).SetUint64(index))
	if err != nil {
		return common.Hash{}, err
	}
	return common.Hash(*abi.ConvertType(out[0], new([32]byte)).(*[32]byte)), nil
}

func (c *Client) GetContractOwner(ctx context.Context) (common.Address, error) {
	out, err := c.call(ctx, ledger.OpGetContractOwner)
	if err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

func (c *Client) PurchaseCourse(ctx context.Context, courseID [16]byte, proof common.Hash, opts ledger.TxOpts) (common.Hash, error) {
	return c.transact(ctx, ledger.OpPurchaseCourse, opts, courseID, [32]byte(proof))
}

func (c *Client) ActivateCourse(ctx context.Context, hash common.Hash, opts ledger.TxOpts) (common.Hash, error) {
	return c.transact(ctx, ledger.OpActivateCourse, opts, [32]byte(hash))
}

func (c *Client) DeactivateCourse(ctx context.Context, hash common.Hash, opts ledger.TxOpts) (common.Hash, error) {
	return c.transact(ctx, ledger.OpDeactivateCourse, opts, [32]byte(hash))
}

func (c *Client) call(ctx context.Context, op string, args ...interface{}) ([]interface{}, error) {
	data, err := c.abi.Pack(op, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", op, err)
	}
	raw, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &c.contract, Data: data}, nil)
	if err != nil {
		return nil, rejection(op, err)
	}
	out, err := c.abi.Unpack(op, raw)
	if err != nil {
		return nil, &ledger.Rejection{Op: op, Err: fmt.Errorf("unpack: %w", err)}
	}
	return out, nil
}

type sendTxArgs struct {
	From  common.Address  `json:"from"`
	To    *common.Address `json:"to"`
	Data  hexutil.Bytes   `json:"data"`
	Value *hexutil.Big    `json:"value,omitempty"`
}

// transact submits a contract call from opts.From and waits for it to be
// mined. A mined transaction with a failed status is reported as reverted.
func (c *Client) transact(ctx context.Context, op string, opts ledger.TxOpts, args ...interface{}) (common.Hash, error) {
	if opts.From == (common.Address{}) {
		return common.Hash{}, &ledger.Rejection{Op: op, Reason: ledger.ErrInvalidSender}
	}
	data, err := c.abi.Pack(op, args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("pack %s: %w", op, err)
	}
	req := sendTxArgs{From: opts.From, To: &c.contract, Data: data}
	if opts.Value != nil && opts.Value.Sign() > 0 {
		req.Value = (*hexutil.Big)(opts.Value)
	}

	var txHash common.Hash
	if err := c.rpc.CallContext(ctx, &txHash, "eth_sendTransaction", req); err != nil {
		return common.Hash{}, rejection(op, err)
	}
	c.log.Debug().Str("op", op).Str("tx", txHash.Hex()).Str("from", opts.From.Hex()).Msg("transaction sent")

	receipt, err := c.waitMined(ctx, txHash)
	if err != nil {
		return txHash, &ledger.Rejection{Op: op, Err: err}
	}
	if receipt.Status == gethTypes.ReceiptStatusFailed {
		return txHash, &ledger.Rejection{Op: op, Reason: ledger.ErrReverted}
	}
	return txHash, nil
}

func (c *Client) waitMined(ctx context.Context, txHash common.Hash) (*gethTypes.Receipt, error) {
	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()
	for {
		receipt, err := c.eth.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
