package ledger

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/params"
)

var weiPerEther = big.NewRat(params.Ether, 1)

// ToWei converts a decimal ether amount such as "0.3" to wei. Signed amounts
// and amounts finer than one wei are rejected.
func ToWei(ether string) (*big.Int, error) {
	ether = strings.TrimSpace(ether)
	if !isDecimal(ether) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, ether)
	}
	r, ok := new(big.Rat).SetString(ether)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, ether)
	}
	r.Mul(r, weiPerEther)
	if !r.IsInt() {
		return nil, fmt.Errorf("%w: %q has sub-wei precision", ErrInvalidAmount, ether)
	}
	return new(big.Int).Set(r.Num()), nil
}

// FromWei renders wei as a decimal ether string without trailing zeros.
func FromWei(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	s := new(big.Rat).SetFrac(wei, big.NewInt(params.Ether)).FloatString(18)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}

// isDecimal accepts plain unsigned decimals like "12" or "0.25". big.Rat on
// its own would also take fractions, exponents and base prefixes.
func isDecimal(s string) bool {
	digits, dots := 0, 0
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
			digits++
		case c == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1 && s[0] != '.' && s[len(s)-1] != '.'
}
