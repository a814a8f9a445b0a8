package crypto

import (
	"errors"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	gethCrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var (
	vectorBuyer   = common.HexToAddress("0xabcabcabcabcabcabcabcabcabcabcabcabcabca")
	vectorOrderID = common.HexToHash("0x27deeccde9fac1bb4957ad1e78fd625a3f7e13f1b9fa317b732d4515e5b127f8")
	vectorProof   = common.HexToHash("0x942dd2a3f80e62972f0b1d99ee84d540e740406539d64e00b4031151442491f7")
)

func TestOrderIdentifierVector(t *testing.T) {
	id, err := ComputeOrderIdentifier("course-1", vectorBuyer)
	require.NoError(t, err)
	require.Equal(t, vectorOrderID, id)
}

func TestCommitmentVector(t *testing.T) {
	digest, err := EmailDigest("a@b.com")
	require.NoError(t, err)
	require.Equal(t, common.HexToHash("0xc827b1d05735985b7a0506eced99d9a14ab5ebbf1cf41c22080ad8c28a296b26"), digest)

	proof, err := ComputeCommitment("a@b.com", vectorOrderID)
	require.NoError(t, err)
	require.Equal(t, vectorProof, proof)

	wrong, err := RecomputeCommitment("wrong@b.com", vectorOrderID)
	require.NoError(t, err)
	require.NotEqual(t, vectorProof, wrong)
}

func TestCommitmentHidesEmailDigest(t *testing.T) {
	digest, err := EmailDigest("a@b.com")
	require.NoError(t, err)
	proof, err := ComputeCommitment("a@b.com", vectorOrderID)
	require.NoError(t, err)

	assert.NotEqual(t, digest, proof)
	assert.NotContains(t, proof.Hex(), strings.TrimPrefix(digest.Hex(), "0x")[:16])
}

func TestCourseIDBytes(t *testing.T) {
	id, err := CourseIDBytes("course-1")
	require.NoError(t, err)
	require.Equal(t, []byte("course-1"), id[:8])
	require.Equal(t, make([]byte, 8), id[8:])

	hexID, err := HexCourseID("course-1")
	require.NoError(t, err)
	require.Equal(t, "0x636f757273652d310000000000000000", hexID)

	_, err = CourseIDBytes("0123456789abcdef")
	require.NoError(t, err)

	_, err = CourseIDBytes("0123456789abcdefX")
	require.True(t, errors.Is(err, ErrCourseIDTooLong))

	_, err = ComputeOrderIdentifier("", vectorBuyer)
	require.ErrorIs(t, err, ErrEmptyCourseID)
}

func TestEmailDigest(t *testing.T) {
	_, err := EmailDigest("")
	require.ErrorIs(t, err, ErrEmptyEmail)

	_, err = ComputeCommitment("", vectorOrderID)
	require.ErrorIs(t, err, ErrEmptyEmail)

	// hex input hashes as bytes
	got, err := EmailDigest("0x0102")
	require.NoError(t, err)
	require.Equal(t, gethCrypto.Keccak256Hash([]byte{0x01, 0x02}), got)

	got, err = EmailDigest("0x102")
	require.NoError(t, err)
	require.Equal(t, gethCrypto.Keccak256Hash([]byte{0x01, 0x02}), got)

	_, err = EmailDigest("0x")
	require.ErrorIs(t, err, ErrEmptyEmail)

	got, err = EmailDigest("0xnothex@b.com")
	require.NoError(t, err)
	require.Equal(t, gethCrypto.Keccak256Hash([]byte("0xnothex@b.com")), got)
}

func TestProofsEqual(t *testing.T) {
	require.True(t, ProofsEqual(vectorProof, vectorProof))
	require.False(t, ProofsEqual(vectorProof, vectorOrderID))
}

func courseIDGen() *rapid.Generator[string] {
	return rapid.StringMatching(`[a-z0-9-]{1,16}`)
}

func addressGen() *rapid.Generator[common.Address] {
	return rapid.Custom(func(t *rapid.T) common.Address {
		return common.BytesToAddress(rapid.SliceOfN(rapid.Byte(), common.AddressLength, common.AddressLength).Draw(t, "address"))
	})
}

func hashGen() *rapid.Generator[common.Hash] {
	return rapid.Custom(func(t *rapid.T) common.Hash {
		return common.BytesToHash(rapid.SliceOfN(rapid.Byte(), common.HashLength, common.HashLength).Draw(t, "hash"))
	})
}

func TestOrderIdentifierProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		idA := courseIDGen().Draw(t, "courseA")
		idB := courseIDGen().Draw(t, "courseB")
		buyerA := addressGen().Draw(t, "buyerA")
		buyerB := addressGen().Draw(t, "buyerB")

		first, err := ComputeOrderIdentifier(idA, buyerA)
		if err != nil {
			t.Fatalf("identifier: %v", err)
		}
		again, _ := ComputeOrderIdentifier(idA, buyerA)
		if first != again {
			t.Fatalf("identifier not deterministic")
		}

		other, _ := ComputeOrderIdentifier(idB, buyerB)
		if (idA != idB || buyerA != buyerB) && first == other {
			t.Fatalf("collision for (%q,%s) and (%q,%s)", idA, buyerA, idB, buyerB)
		}
	})
}

func TestCommitmentProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		email := rapid.StringMatching(`[a-z]{1,12}@[a-z]{1,8}\.com`).Draw(t, "email")
		otherEmail := rapid.StringMatching(`[a-z]{1,12}@[a-z]{1,8}\.com`).Draw(t, "otherEmail")
		orderID := hashGen().Draw(t, "orderID")
		otherID := hashGen().Draw(t, "otherID")

		proof, err := ComputeCommitment(email, orderID)
		if err != nil {
			t.Fatalf("commitment: %v", err)
		}
		again, _ := RecomputeCommitment(email, orderID)
		if proof != again {
			t.Fatalf("recompute diverged")
		}
		if email != otherEmail {
			if p, _ := ComputeCommitment(otherEmail, orderID); p == proof {
				t.Fatalf("email change kept proof")
			}
		}
		if orderID != otherID {
			if p, _ := ComputeCommitment(email, otherID); p == proof {
				t.Fatalf("order change kept proof")
			}
		}
	})
}
