package projection

import (
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"zinka/contract"
	"zinka/domain"
)

func chatDoc(id string, at any) contract.Document {
	data := map[string]any{"type": "group", "name": id, "lastMessage": ""}
	if at != nil {
		data["timestamp"] = at
	}
	return contract.Document{ID: id, Data: data}
}

func messageDoc(id string, at any) contract.Document {
	data := map[string]any{"sender": "u1", "text": id, "kind": "text"}
	if at != nil {
		data["timestamp"] = at
	}
	return contract.Document{ID: id, Data: data}
}

func TestChatList_SortsNewestFirst(t *testing.T) {
	req := require.New(t)
	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	snap := contract.Snapshot{Docs: []contract.Document{
		chatDoc("old", base),
		chatDoc("new", base.Add(time.Hour)),
		chatDoc("mid", base.Add(time.Minute)),
	}}

	chats := ChatList(snap)
	req.Equal([]string{"new", "mid", "old"},
		lo.Map(chats, func(c domain.Chat, _ int) string { return c.Name }))
}

func TestChatList_PendingTimestampSortsOldest(t *testing.T) {
	req := require.New(t)
	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	snap := contract.Snapshot{Docs: []contract.Document{
		chatDoc("pending", nil),
		chatDoc("resolved", base),
	}}

	chats := ChatList(snap)
	req.Equal("resolved", chats[0].Name)
	req.Equal("pending", chats[1].Name)
	req.Nil(chats[1].Timestamp)
}

func TestTimeline_SortsOldestFirst(t *testing.T) {
	req := require.New(t)
	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	// Snapshots arrive unordered; JSON-decoded documents carry RFC3339
	// strings instead of time values, both must materialize the same.
	snap := contract.Snapshot{Docs: []contract.Document{
		messageDoc("third", base.Add(2*time.Second).Format(time.RFC3339Nano)),
		messageDoc("first", base),
		messageDoc("second", base.Add(time.Second)),
	}}

	messages := Timeline(snap)
	req.Equal("first", messages[0].Text)
	req.Equal("second", messages[1].Text)
	req.Equal("third", messages[2].Text)
}

func TestTimeline_PendingMessagesComeFirst(t *testing.T) {
	req := require.New(t)
	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	snap := contract.Snapshot{Docs: []contract.Document{
		messageDoc("resolved", base),
		messageDoc("pending", nil),
	}}

	messages := Timeline(snap)
	req.Equal("pending", messages[0].Text)
	req.Nil(messages[0].Timestamp)
	req.Equal("resolved", messages[1].Text)
}
