package market

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/davidahmann/courseledger/internal/catalog"
	"github.com/davidahmann/courseledger/pkg/types"
)

// CourseListing is a catalog course as shown to one account.
type CourseListing struct {
	types.CourseDescriptor
	State       DisplayState           `json:"state"`
	Affordances []Affordance           `json:"affordances"`
	Owned       *types.OwnedCourseView `json:"owned,omitempty"`
}

// Listing derives the display state of every catalog course for account.
// The zero address means no wallet is connected and the ledger is not read.
func (s *Service) Listing(ctx context.Context, cat *catalog.Catalog, account common.Address) ([]CourseListing, error) {
	wallet := WalletNotConnected
	owned := OwnedCourseSet{}
	if account != (common.Address{}) {
		wallet = WalletConnected
		var err error
		if owned, err = s.OwnedCourses(ctx, cat, account); err != nil {
			return nil, err
		}
	}

	courses := cat.Courses()
	out := make([]CourseListing, 0, len(courses))
	for _, course := range courses {
		listing := CourseListing{CourseDescriptor: course}
		var record *types.LedgerRecord
		if view, ok := owned.Lookup[course.ID]; ok {
			listing.Owned = &view
			record = &types.LedgerRecord{Owner: view.Owner, State: view.State}
		}
		state, err := DeriveState(wallet, record)
		if err != nil {
			return nil, err
		}
		affordances, err := BuyerAffordances(state)
		if err != nil {
			return nil, err
		}
		listing.State = state
		listing.Affordances = affordances
		out = append(out, listing)
	}
	return out, nil
}
