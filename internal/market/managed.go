package market

import (
	"context"

	"github.com/davidahmann/courseledger/internal/catalog"
	"github.com/davidahmann/courseledger/pkg/types"
)

// ManagedCourses lists every record on the ledger in index order. The views
// carry no catalog fields; records are keyed by hash only.
func (s *Service) ManagedCourses(ctx context.Context) ([]types.OwnedCourseView, error) {
	count, err := s.ledger.GetCourseCount(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]types.OwnedCourseView, 0, count)
	for i := uint64(0); i < count; i++ {
		hash, err := s.ledger.GetCourseHashAtIndex(ctx, i)
		if err != nil {
			return nil, err
		}
		rec, err := s.ledger.GetCourseByHash(ctx, hash)
		if err != nil {
			return nil, err
		}
		rec.Hash = hash
		if view, ok := catalog.Normalize(types.CourseDescriptor{}, rec); ok {
			out = append(out, view)
		}
	}
	return out, nil
}
