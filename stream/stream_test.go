package stream

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"zinka/contract"
	"zinka/domain"
	"zinka/errors"
	"zinka/infrastructure/store"
)

type stubSender struct {
	session domain.Session
	profile domain.Profile
}

func (s stubSender) Session() domain.Session { return s.session }
func (s stubSender) Profile() domain.Profile { return s.profile }

type capture struct {
	mu   sync.Mutex
	last []domain.Message
}

func (c *capture) listener(messages []domain.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = messages
}

func (c *capture) snapshot() []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

func newTestStream(t *testing.T) (*MessageStream, contract.DocumentStore, contract.Paths) {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	docs := store.NewBadgerStore(db, slog.Default(), 16)
	paths := contract.NewPaths("app-test")
	sender := stubSender{
		session: domain.Session{PrincipalID: "u1", Ready: true},
		profile: domain.Profile{FirstName: "Alice", Username: "alice"},
	}
	s := NewMessageStream(docs, paths, sender, slog.Default())
	t.Cleanup(s.Stop)
	return s, docs, paths
}

func seedChat(t *testing.T, docs contract.DocumentStore, paths contract.Paths, id string) domain.Chat {
	t.Helper()
	chat := domain.Chat{
		ID:           id,
		Kind:         domain.ChatPrivate,
		Participants: []string{"u1", "u2"},
	}
	require.NoError(t, docs.Create(context.Background(), paths.Chat(id), chat.Doc()))
	return chat
}

func TestSend_ValidatesInput(t *testing.T) {
	ctx := context.Background()
	s, docs, paths := newTestStream(t)

	t.Run("should reject without a selected chat", func(t *testing.T) {
		require.ErrorIs(t, s.Send(ctx, "hello"), errors.ErrNoChatSelected)
	})

	t.Run("should reject blank text", func(t *testing.T) {
		chat := seedChat(t, docs, paths, "c1")
		require.NoError(t, s.Select(&chat))
		require.ErrorIs(t, s.Send(ctx, "   \t"), errors.ErrEmptyMessage)
	})
}

func TestSend_AppendsAndBumpsPreview(t *testing.T) {
	ctx := context.Background()
	req := require.New(t)
	s, docs, paths := newTestStream(t)
	chat := seedChat(t, docs, paths, "c1")

	var got capture
	s.OnChange(got.listener)
	req.NoError(s.Select(&chat))

	req.NoError(s.Send(ctx, "hello"))

	req.Eventually(func() bool {
		return len(got.snapshot()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	msg := got.snapshot()[0]
	req.Equal("u1", msg.Sender)
	req.Equal("alice", msg.SenderUsername)
	req.Equal("hello", msg.Text)
	req.Equal(domain.MessageText, msg.Kind)
	req.NotNil(msg.Timestamp, "server time must be resolved in the read-back")

	stored, err := docs.Get(ctx, paths.Chat("c1"))
	req.NoError(err)
	req.Equal("hello", stored.Data["lastMessage"])
}

func TestSelect_SwitchClearsImmediately(t *testing.T) {
	ctx := context.Background()
	req := require.New(t)
	s, docs, paths := newTestStream(t)
	first := seedChat(t, docs, paths, "c1")
	second := seedChat(t, docs, paths, "c2")

	var got capture
	s.OnChange(got.listener)
	req.NoError(s.Select(&first))
	req.NoError(s.Send(ctx, "only in c1"))
	req.Eventually(func() bool { return len(got.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)

	// Switching yields the empty list synchronously, before any snapshot
	// of the new chat lands.
	req.NoError(s.Select(&second))
	req.Empty(s.Messages())

	req.NoError(s.Send(ctx, "hi c2"))
	req.Eventually(func() bool {
		snap := got.snapshot()
		return len(snap) == 1 && snap[0].Text == "hi c2"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSelected_IsDetachedFromCallers(t *testing.T) {
	req := require.New(t)
	s, docs, paths := newTestStream(t)
	chat := seedChat(t, docs, paths, "c1")

	req.NoError(s.Select(&chat))
	chat.ID = "mutated-after-select"
	req.Equal("c1", s.Selected().ID)

	s.Selected().ID = "mutated-view"
	req.Equal("c1", s.Selected().ID)
}

func TestSelect_NilCancelsSubscription(t *testing.T) {
	ctx := context.Background()
	req := require.New(t)
	s, docs, paths := newTestStream(t)
	chat := seedChat(t, docs, paths, "c1")

	req.NoError(s.Select(&chat))
	req.NoError(s.Send(ctx, "hello"))
	req.NoError(s.Select(nil))

	req.Nil(s.Selected())
	req.Empty(s.Messages())
	req.ErrorIs(s.Send(ctx, "again"), errors.ErrNoChatSelected)
}
