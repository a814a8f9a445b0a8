package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// CourseDescriptor is a static catalog entry. Price is a decimal ether amount.
type CourseDescriptor struct {
	ID          string   `json:"id" yaml:"id"`
	Type        string   `json:"type,omitempty" yaml:"type"`
	Title       string   `json:"title" yaml:"title"`
	Slug        string   `json:"slug,omitempty" yaml:"slug"`
	Description string   `json:"description,omitempty" yaml:"description"`
	Image       string   `json:"image,omitempty" yaml:"image"`
	CoverImage  string   `json:"cover_image,omitempty" yaml:"cover_image"`
	Price       string   `json:"price" yaml:"price"`
	WSL         []string `json:"wsl,omitempty" yaml:"wsl"`
	CreatedAt   string   `json:"created_at,omitempty" yaml:"created_at"`
}

// Order is what a buyer submits at checkout. It is never persisted.
type Order struct {
	Email string `json:"email"`
	Price string `json:"price"`
}

type CourseState string

const (
	StatePurchased   CourseState = "purchased"
	StateActivated   CourseState = "activated"
	StateDeactivated CourseState = "deactivated"
)

var stateCodes = []CourseState{StatePurchased, StateActivated, StateDeactivated}

// CourseStateFromCode maps the contract's enum ordinal to a CourseState.
func CourseStateFromCode(code uint8) (CourseState, bool) {
	if int(code) >= len(stateCodes) {
		return "", false
	}
	return stateCodes[code], true
}

// Code returns the contract enum ordinal for s.
func (s CourseState) Code() (uint8, bool) {
	for i, st := range stateCodes {
		if st == s {
			return uint8(i), true
		}
	}
	return 0, false
}

// LedgerRecord mirrors the on-chain course struct. Hash is the order
// identifier and Proof the email commitment.
type LedgerRecord struct {
	ID    uint64         `json:"id"`
	Price *big.Int       `json:"price"`
	Owner common.Address `json:"owner"`
	Hash  common.Hash    `json:"hash"`
	Proof common.Hash    `json:"proof"`
	State CourseState    `json:"state"`
}

// Exists reports whether the record has a real owner. The zero address is
// the ledger's "no such record" sentinel.
func (r LedgerRecord) Exists() bool {
	return r.Owner != (common.Address{})
}

// OwnedCourseView is a catalog descriptor merged with its ledger record.
type OwnedCourseView struct {
	CourseDescriptor
	OwnedCourseID uint64         `json:"owned_course_id"`
	Hash          common.Hash    `json:"hash"`
	Proof         common.Hash    `json:"proof"`
	Owner         common.Address `json:"owner"`
	PaidPrice     string         `json:"paid_price"`
	State         CourseState    `json:"state"`
}
