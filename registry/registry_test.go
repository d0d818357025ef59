package registry

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"zinka/contract"
	"zinka/domain"
	"zinka/infrastructure/store"
)

type capture struct {
	mu   sync.Mutex
	last []domain.Chat
}

func (c *capture) listener(chats []domain.Chat) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = chats
}

func (c *capture) ids() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return lo.Map(c.last, func(chat domain.Chat, _ int) string { return chat.ID })
}

func newTestRegistry(t *testing.T) (*ChatRegistry, contract.DocumentStore, contract.Paths) {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	docs := store.NewBadgerStore(db, slog.Default(), 16)
	paths := contract.NewPaths("app-test")
	r := NewChatRegistry(docs, paths, slog.Default())
	t.Cleanup(r.Stop)
	return r, docs, paths
}

func seedChat(t *testing.T, docs contract.DocumentStore, paths contract.Paths, id string, participants []string, at time.Time) {
	t.Helper()
	err := docs.Create(context.Background(), paths.Chat(id), map[string]any{
		"type":         "group",
		"name":         id,
		"participants": participants,
		"lastMessage":  "",
		"timestamp":    at,
	})
	require.NoError(t, err)
}

func TestChatRegistry_SeesOnlyOwnChats(t *testing.T) {
	req := require.New(t)
	r, docs, paths := newTestRegistry(t)
	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	seedChat(t, docs, paths, "mine-old", []string{"u1", "u2"}, base)
	seedChat(t, docs, paths, "mine-new", []string{"u1", "u3"}, base.Add(time.Hour))
	seedChat(t, docs, paths, "foreign", []string{"u2", "u3"}, base)

	var got capture
	r.OnChange(got.listener)
	_, err := r.Start("u1")
	req.NoError(err)

	// Newest activity first, the foreign chat never visible.
	req.Eventually(func() bool {
		ids := got.ids()
		return len(ids) == 2 && ids[0] == "mine-new" && ids[1] == "mine-old"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestChatRegistry_ReordersOnUpdate(t *testing.T) {
	req := require.New(t)
	r, docs, paths := newTestRegistry(t)
	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	seedChat(t, docs, paths, "a", []string{"u1"}, base.Add(time.Hour))
	seedChat(t, docs, paths, "b", []string{"u1"}, base)

	var got capture
	r.OnChange(got.listener)
	_, err := r.Start("u1")
	req.NoError(err)
	req.Eventually(func() bool {
		ids := got.ids()
		return len(ids) == 2 && ids[0] == "a"
	}, 2*time.Second, 10*time.Millisecond)

	// A send bumps the chat's timestamp; the list must re-sort.
	err = docs.Set(context.Background(), paths.Chat("b"), map[string]any{
		"lastMessage": "ping",
		"timestamp":   contract.ServerTimestamp,
	}, true)
	req.NoError(err)

	req.Eventually(func() bool {
		ids := got.ids()
		return len(ids) == 2 && ids[0] == "b"
	}, 2*time.Second, 10*time.Millisecond)

	chat, ok := r.Chat("b")
	req.True(ok)
	req.Equal("ping", chat.LastMessage)
}

func TestChatRegistry_StopClearsAndSilences(t *testing.T) {
	req := require.New(t)
	r, docs, paths := newTestRegistry(t)

	seedChat(t, docs, paths, "a", []string{"u1"}, time.Now().UTC())
	_, err := r.Start("u1")
	req.NoError(err)
	req.Eventually(func() bool { return len(r.Chats()) == 1 }, 2*time.Second, 10*time.Millisecond)

	r.Stop()
	req.Empty(r.Chats())

	// Writes after shutdown must not resurrect the list.
	seedChat(t, docs, paths, "late", []string{"u1"}, time.Now().UTC())
	time.Sleep(50 * time.Millisecond)
	req.Empty(r.Chats())
}
