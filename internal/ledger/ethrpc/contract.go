package ethrpc

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// MarketplaceABI is the subset of the marketplace contract interface the
// client binds to.
const MarketplaceABI = `[
  {"type":"function","name":"purchaseCourse","stateMutability":"payable",
   "inputs":[{"name":"courseId","type":"bytes16"},{"name":"proof","type":"bytes32"}],"outputs":[]},
  {"type":"function","name":"activateCourse","stateMutability":"nonpayable",
   "inputs":[{"name":"courseHash","type":"bytes32"}],"outputs":[]},
  {"type":"function","name":"deactivateCourse","stateMutability":"nonpayable",
   "inputs":[{"name":"courseHash","type":"bytes32"}],"outputs":[]},
  {"type":"function","name":"getCourseByHash","stateMutability":"view",
   "inputs":[{"name":"courseHash","type":"bytes32"}],
   "outputs":[{"name":"","type":"tuple","components":[
     {"name":"id","type":"uint256"},
     {"name":"price","type":"uint256"},
     {"name":"proof","type":"bytes32"},
     {"name":"owner","type":"address"},
     {"name":"state","type":"uint8"}]}]},
  {"type":"function","name":"getCourseCount","stateMutability":"view",
   "inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getCourseHashAtIndex","stateMutability":"view",
   "inputs":[{"name":"index","type":"uint256"}],"outputs":[{"name":"","type":"bytes32"}]},
  {"type":"function","name":"getContractOwner","stateMutability":"view",
   "inputs":[],"outputs":[{"name":"","type":"address"}]}
]`

// courseTuple is the contract's Course struct as returned by getCourseByHash.
type courseTuple struct {
	Id    *big.Int
	Price *big.Int
	Proof [32]byte
	Owner common.Address
	State uint8
}

func parseMarketplaceABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(MarketplaceABI))
}
