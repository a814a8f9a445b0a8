package crypto

import (
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethCrypto "github.com/ethereum/go-ethereum/crypto"
)

// CourseIDSize is the width of the contract's bytes16 course id.
const CourseIDSize = 16

// CourseIDBytes encodes courseID as the contract's bytes16 value: the UTF-8
// bytes right-padded with zeros.
func CourseIDBytes(courseID string) ([CourseIDSize]byte, error) {
	var out [CourseIDSize]byte
	if courseID == "" {
		return out, ErrEmptyCourseID
	}
	if len(courseID) > CourseIDSize {
		return out, fmt.Errorf("%w: %q is %d bytes", ErrCourseIDTooLong, courseID, len(courseID))
	}
	copy(out[:], courseID)
	return out, nil
}

// HexCourseID returns the 0x-prefixed bytes16 encoding of courseID.
func HexCourseID(courseID string) (string, error) {
	id, err := CourseIDBytes(courseID)
	if err != nil {
		return "", err
	}
	return hexutil.Encode(id[:]), nil
}

// ComputeOrderIdentifier returns keccak256(bytes16(courseID) ‖ buyer), the
// key the ledger files a purchase under.
func ComputeOrderIdentifier(courseID string, buyer common.Address) (common.Hash, error) {
	id, err := CourseIDBytes(courseID)
	if err != nil {
		return common.Hash{}, err
	}
	return gethCrypto.Keccak256Hash(id[:], buyer.Bytes()), nil
}

// EmailDigest returns keccak256 of the email's UTF-8 bytes. A strict 0x hex
// string is hashed as the bytes it encodes, which is how browser wallets
// hash the same input.
func EmailDigest(email string) (common.Hash, error) {
	data := []byte(email)
	if raw, ok := strictHexBytes(email); ok {
		data = raw
	}
	if len(data) == 0 {
		return common.Hash{}, ErrEmptyEmail
	}
	return gethCrypto.Keccak256Hash(data), nil
}

// ComputeCommitment binds email to an order: keccak256(keccak256(email) ‖ orderID).
// Neither the email nor its digest ever leaves this function.
func ComputeCommitment(email string, orderID common.Hash) (common.Hash, error) {
	digest, err := EmailDigest(email)
	if err != nil {
		return common.Hash{}, err
	}
	return gethCrypto.Keccak256Hash(digest.Bytes(), orderID.Bytes()), nil
}

// RecomputeCommitment is ComputeCommitment under the name the verification
// side uses. The two must never diverge.
func RecomputeCommitment(email string, orderID common.Hash) (common.Hash, error) {
	return ComputeCommitment(email, orderID)
}

// ProofsEqual compares two commitments in constant time.
func ProofsEqual(a, b common.Hash) bool {
	return subtle.ConstantTimeCompare(a.Bytes(), b.Bytes()) == 1
}

func strictHexBytes(s string) ([]byte, bool) {
	if len(s) < 2 || s[0] != '0' || (s[1] != 'x' && s[1] != 'X') {
		return nil, false
	}
	body := s[2:]
	if strings.IndexFunc(body, func(r rune) bool { return !isHexRune(r) }) >= 0 {
		return nil, false
	}
	if len(body)%2 == 1 {
		body = "0" + body
	}
	out, err := hex.DecodeString(body)
	if err != nil {
		return nil, false
	}
	return out, true
}

func isHexRune(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}
