// Package projection builds local ordered views from store snapshots.
// Handles materialization and ordering only; it does not subscribe or
// interact with the store.
package projection

import (
	"sort"
	"time"

	"github.com/samber/lo"

	"zinka/contract"
	"zinka/domain"
)

// tick collapses a possibly-pending timestamp to a comparable instant.
// A write whose server time has not materialized yet sorts as older than
// any resolved one.
func tick(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return t.UnixNano()
}

// ChatList materializes a chats snapshot, newest activity first. The
// ordering is entirely client-side; two chats updated within the same
// clock tick keep no guaranteed relative order across deliveries.
func ChatList(snap contract.Snapshot) []domain.Chat {
	chats := lo.Map(snap.Docs, func(doc contract.Document, _ int) domain.Chat {
		return domain.ChatFromDoc(doc.ID, doc.Data)
	})
	sort.SliceStable(chats, func(i, j int) bool {
		return tick(chats[i].Timestamp) > tick(chats[j].Timestamp)
	})
	return chats
}
