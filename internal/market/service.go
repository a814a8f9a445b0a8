// Package market implements the purchase, verification and ownership
// read flows on top of a ledger client.
package market

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/davidahmann/courseledger/internal/ledger"
	"github.com/davidahmann/courseledger/internal/metrics"
)

const DefaultResultsSize = 1024

type Options struct {
	// StrictSearch requires search input to be 0x plus 64 hex characters.
	// When false only the loose length-and-hex-run check applies.
	StrictSearch bool
	ResultsSize  int
	Metrics      metrics.Market
	Logger       zerolog.Logger
}

type Service struct {
	ledger  ledger.Client
	results *VerificationResults
	metrics metrics.Market
	strict  bool
	log     zerolog.Logger
}

func NewService(client ledger.Client, opts Options) (*Service, error) {
	size := opts.ResultsSize
	if size == 0 {
		size = DefaultResultsSize
	}
	results, err := NewVerificationResults(size)
	if err != nil {
		return nil, fmt.Errorf("verification results: %w", err)
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.NewNoopCollector()
	}
	return &Service{
		ledger:  client,
		results: results,
		metrics: m,
		strict:  opts.StrictSearch,
		log:     opts.Logger.With().Str("component", "market").Logger(),
	}, nil
}

// Results exposes the latest verification outcome per order identifier.
func (s *Service) Results() *VerificationResults {
	return s.results
}

// IsAdmin reports whether account is the contract owner.
func (s *Service) IsAdmin(ctx context.Context, account common.Address) (bool, error) {
	if account == (common.Address{}) {
		return false, nil
	}
	owner, err := s.ledger.GetContractOwner(ctx)
	if err != nil {
		return false, err
	}
	return owner == account, nil
}
