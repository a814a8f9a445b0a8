package market

import (
	"context"

	"github.com/davidahmann/courseledger/internal/catalog"
	"github.com/davidahmann/courseledger/internal/crypto"
	"github.com/davidahmann/courseledger/pkg/types"
)

// SearchCourse looks up a purchase by its order identifier. Malformed input
// and unknown identifiers both report found=false with no error; malformed
// input never reaches the ledger.
func (s *Service) SearchCourse(ctx context.Context, input string) (types.OwnedCourseView, bool, error) {
	hash, err := crypto.ParseHash(input, s.strict)
	if err != nil {
		s.log.Debug().Str("input", input).Msg("search input rejected")
		return types.OwnedCourseView{}, false, nil
	}
	rec, err := s.ledger.GetCourseByHash(ctx, hash)
	if err != nil {
		return types.OwnedCourseView{}, false, err
	}
	rec.Hash = hash
	view, ok := catalog.Normalize(types.CourseDescriptor{}, rec)
	return view, ok, nil
}
