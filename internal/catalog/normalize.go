package catalog

import (
	"github.com/davidahmann/courseledger/internal/ledger"
	"github.com/davidahmann/courseledger/pkg/types"
)

// Normalize merges a catalog entry with its ledger record. It reports false
// when the record has no owner, which the ledger uses for "no purchase".
func Normalize(entry types.CourseDescriptor, record types.LedgerRecord) (types.OwnedCourseView, bool) {
	if !record.Exists() {
		return types.OwnedCourseView{}, false
	}
	return types.OwnedCourseView{
		CourseDescriptor: entry,
		OwnedCourseID:    record.ID,
		Hash:             record.Hash,
		Proof:            record.Proof,
		Owner:            record.Owner,
		PaidPrice:        ledger.FromWei(record.Price),
		State:            record.State,
	}, true
}
