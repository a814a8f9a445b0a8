package crypto

import (
	"regexp"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// HashStringLength is len("0x") plus 64 hex characters.
const HashStringLength = 2 + 2*common.HashLength

var hexRun = regexp.MustCompile(`[0-9A-Fa-f]{6}`)

// IsWellFormedHash is the loose lookup-key check: the right length and at
// least one run of six hex characters somewhere in the string. It does not
// prove the whole string is hex; see IsStrictHash.
func IsWellFormedHash(input string) bool {
	return len(input) == HashStringLength && hexRun.MatchString(input)
}

// IsStrictHash reports whether input is 0x followed by exactly 64 hex characters.
func IsStrictHash(input string) bool {
	if len(input) != HashStringLength || input[0] != '0' || (input[1] != 'x' && input[1] != 'X') {
		return false
	}
	for _, r := range input[2:] {
		if !isHexRune(r) {
			return false
		}
	}
	return true
}

// ParseHash validates input and decodes it into a 32-byte hash. With
// strict unset the loose check gates the input, but anything that then
// fails to decode is still rejected.
func ParseHash(input string, strict bool) (common.Hash, error) {
	ok := IsWellFormedHash(input)
	if strict {
		ok = IsStrictHash(input)
	}
	if !ok {
		return common.Hash{}, ErrMalformedHash
	}
	raw, err := hexutil.Decode(input)
	if err != nil || len(raw) != common.HashLength {
		return common.Hash{}, ErrMalformedHash
	}
	return common.BytesToHash(raw), nil
}
