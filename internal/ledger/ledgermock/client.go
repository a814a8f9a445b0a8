// Package ledgermock provides a testify mock of ledger.Client.
package ledgermock

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"

	"github.com/davidahmann/courseledger/internal/ledger"
	"github.com/davidahmann/courseledger/pkg/types"
)

type Client struct {
	mock.Mock
}

var _ ledger.Client = (*Client)(nil)

// NewClient returns a mock that asserts its expectations when t finishes.
func NewClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *Client {
	m := &Client{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *Client) GetCourseByHash(ctx context.Context, hash common.Hash) (types.LedgerRecord, error) {
	ret := m.Called(ctx, hash)
	return ret.Get(0).(types.LedgerRecord), ret.Error(1)
}

func (m *Client) GetCourseCount(ctx context.Context) (uint64, error) {
	ret := m.Called(ctx)
	return ret.Get(0).(uint64), ret.Error(1)
}

func (m *Client) GetCourseHashAtIndex(ctx context.Context, index uint64) (common.Hash, error) {
	ret := m.Called(ctx, index)
	return ret.Get(0).(common.Hash), ret.Error(1)
}

func (m *Client) GetContractOwner(ctx context.Context) (common.Address, error) {
	ret := m.Called(ctx)
	return ret.Get(0).(common.Address), ret.Error(1)
}

func (m *Client) PurchaseCourse(ctx context.Context, courseID [16]byte, proof common.Hash, opts ledger.TxOpts) (common.Hash, error) {
	ret := m.Called(ctx, courseID, proof, opts)
	return ret.Get(0).(common.Hash), ret.Error(1)
}

func (m *Client) ActivateCourse(ctx context.Context, hash common.Hash, opts ledger.TxOpts) (common.Hash, error) {
	ret := m.Called(ctx, hash, opts)
	return ret.Get(0).(common.Hash), ret.Error(1)
}

func (m *Client) DeactivateCourse(ctx context.Context, hash common.Hash, opts ledger.TxOpts) (common.Hash, error) {
	ret := m.Called(ctx, hash, opts)
	return ret.Get(0).(common.Hash), ret.Error(1)
}
