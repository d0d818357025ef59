package composer

import (
	"context"
	"log/slog"
	"testing"

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

func newTestStore(t *testing.T) (contract.DocumentStore, contract.Paths) {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return store.NewBadgerStore(db, slog.Default(), 16), contract.NewPaths("app-test")
}

func TestStartPrivateChat_IsIdempotentAcrossBothSides(t *testing.T) {
	ctx := context.Background()
	req := require.New(t)
	docs, paths := newTestStore(t)

	alice := stubSender{
		session: domain.Session{PrincipalID: "u1", Ready: true},
		profile: domain.Profile{FirstName: "Alice", Username: "alice"},
	}
	bob := stubSender{
		session: domain.Session{PrincipalID: "u2", Ready: true},
		profile: domain.Profile{FirstName: "Bob", Username: "bob"},
	}

	first, err := NewChatComposer(docs, paths, alice, slog.Default()).
		StartPrivateChat(ctx, domain.PublicProfile{PrincipalID: "u2", Username: "bob", FirstName: "Bob"})
	req.NoError(err)

	second, err := NewChatComposer(docs, paths, bob, slog.Default()).
		StartPrivateChat(ctx, domain.PublicProfile{PrincipalID: "u1", Username: "alice", FirstName: "Alice"})
	req.NoError(err)

	// Both sides converge on the single chat for the pair.
	req.Equal(first.ID, second.ID)
	req.ElementsMatch([]string{"u1", "u2"}, second.Participants)

	snap, err := docs.Query(ctx, paths.Chats(), nil)
	req.NoError(err)
	req.Len(snap.Docs, 1)
}

func TestStartPrivateChat_RejectsSelf(t *testing.T) {
	ctx := context.Background()
	docs, paths := newTestStore(t)
	me := stubSender{session: domain.Session{PrincipalID: "u1"}}

	_, err := NewChatComposer(docs, paths, me, slog.Default()).
		StartPrivateChat(ctx, domain.PublicProfile{PrincipalID: "u1"})
	require.ErrorIs(t, err, errors.ErrValidation)
}

func TestCreateGroupOrChannel(t *testing.T) {
	ctx := context.Background()
	docs, paths := newTestStore(t)
	me := stubSender{
		session: domain.Session{PrincipalID: "u1", Ready: true},
		profile: domain.Profile{FirstName: "Alice", Username: "alice"},
	}
	composer := NewChatComposer(docs, paths, me, slog.Default())

	t.Run("should reject a blank name", func(t *testing.T) {
		_, err := composer.CreateGroupOrChannel(ctx, "   ", "", domain.ChatGroup)
		require.ErrorIs(t, err, errors.ErrValidation)
	})

	t.Run("should reject the private kind", func(t *testing.T) {
		_, err := composer.CreateGroupOrChannel(ctx, "pair", "", domain.ChatPrivate)
		require.ErrorIs(t, err, errors.ErrValidation)
	})

	t.Run("should create a channel with the creator as sole member", func(t *testing.T) {
		req := require.New(t)
		chat, err := composer.CreateGroupOrChannel(ctx, "announcements", "ship logs", domain.ChatChannel)
		req.NoError(err)
		req.NotEmpty(chat.ID)
		req.Equal([]string{"u1"}, chat.Participants)
		req.Equal("u1", chat.Creator)

		stored, err := docs.Get(ctx, paths.Chat(chat.ID))
		req.NoError(err)
		req.Equal("channel", stored.Data["type"])
		req.Equal("announcements", stored.Data["name"])
	})
}
