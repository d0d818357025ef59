package projection

import (
	"sort"

	"github.com/samber/lo"

	"zinka/contract"
	"zinka/domain"
)

// Timeline materializes a messages snapshot oldest-first, with
// timestamp-pending messages ordered before all resolved ones.
func Timeline(snap contract.Snapshot) []domain.Message {
	messages := lo.Map(snap.Docs, func(doc contract.Document, _ int) domain.Message {
		return domain.MessageFromDoc(doc.ID, doc.Data)
	})
	sort.SliceStable(messages, func(i, j int) bool {
		return tick(messages[i].Timestamp) < tick(messages[j].Timestamp)
	})
	return messages
}
