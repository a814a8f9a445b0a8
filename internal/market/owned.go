package market

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/davidahmann/courseledger/internal/catalog"
	"github.com/davidahmann/courseledger/internal/crypto"
	"github.com/davidahmann/courseledger/pkg/types"
)

// OwnedCourseSet is a buyer's purchases in catalog order, plus a lookup by
// course id.
type OwnedCourseSet struct {
	Courses []types.OwnedCourseView
	Lookup  map[string]types.OwnedCourseView
}

// OwnedCourses reads, one course at a time, the record filed under each
// catalog course for account and keeps those with an owner.
func (s *Service) OwnedCourses(ctx context.Context, cat *catalog.Catalog, account common.Address) (OwnedCourseSet, error) {
	out := OwnedCourseSet{Lookup: make(map[string]types.OwnedCourseView)}
	if account == (common.Address{}) {
		return out, ErrNoAccount
	}
	for _, course := range cat.Courses() {
		hash, err := crypto.ComputeOrderIdentifier(course.ID, account)
		if err != nil {
			return OwnedCourseSet{}, err
		}
		rec, err := s.ledger.GetCourseByHash(ctx, hash)
		if err != nil {
			return OwnedCourseSet{}, err
		}
		view, ok := catalog.Normalize(course, rec)
		if !ok {
			continue
		}
		out.Courses = append(out.Courses, view)
		out.Lookup[course.ID] = view
	}
	return out, nil
}
