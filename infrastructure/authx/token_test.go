package authx

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"zinka/errors"
)

func newTestAuth() *TokenAuthenticator {
	return NewTokenAuthenticator([]byte("test-secret"), time.Hour, slog.Default())
}

func TestSignInAnonymously(t *testing.T) {
	req := require.New(t)
	auth := newTestAuth()

	first, err := auth.SignInAnonymously(context.Background())
	req.NoError(err)
	req.True(strings.HasPrefix(first, "anon_"))

	second, err := auth.SignInAnonymously(context.Background())
	req.NoError(err)
	req.NotEqual(first, second)
}

func TestTokenRoundTrip(t *testing.T) {
	req := require.New(t)
	auth := newTestAuth()

	token, err := auth.IssueToken("u1")
	req.NoError(err)

	principal, err := auth.SignInWithToken(context.Background(), token)
	req.NoError(err)
	req.Equal("u1", principal)
}

func TestSignInWithToken_Rejections(t *testing.T) {
	req := require.New(t)
	auth := newTestAuth()

	t.Run("should reject a malformed token", func(t *testing.T) {
		_, err := auth.SignInWithToken(context.Background(), "not-a-token")
		req.ErrorIs(err, errors.ErrAuthFailure)
	})

	t.Run("should reject a token signed with another secret", func(t *testing.T) {
		other := NewTokenAuthenticator([]byte("other-secret"), time.Hour, slog.Default())
		token, err := other.IssueToken("u1")
		req.NoError(err)

		_, err = auth.SignInWithToken(context.Background(), token)
		req.ErrorIs(err, errors.ErrAuthFailure)
	})

	t.Run("should reject an expired token", func(t *testing.T) {
		expired := NewTokenAuthenticator([]byte("test-secret"), -time.Hour, slog.Default())
		token, err := expired.IssueToken("u1")
		req.NoError(err)

		_, err = auth.SignInWithToken(context.Background(), token)
		req.ErrorIs(err, errors.ErrAuthFailure)
	})
}

func TestOnAuthStateChange(t *testing.T) {
	req := require.New(t)
	auth := newTestAuth()

	type event struct {
		principal string
		signedIn  bool
	}
	var events []event
	sub := auth.OnAuthStateChange(func(principal string, signedIn bool) {
		events = append(events, event{principal, signedIn})
	})

	// Registration fires immediately with the current (empty) state.
	req.Len(events, 1)
	req.False(events[0].signedIn)

	principal, err := auth.SignInAnonymously(context.Background())
	req.NoError(err)
	req.Len(events, 2)
	req.Equal(event{principal, true}, events[1])

	req.NoError(auth.SignOut(context.Background()))
	req.Len(events, 3)
	req.Equal(event{"", false}, events[2])

	sub.Cancel()
	_, err = auth.SignInAnonymously(context.Background())
	req.NoError(err)
	req.Len(events, 3)
}

func TestOnAuthStateChange_LateRegistrationSeesSession(t *testing.T) {
	req := require.New(t)
	auth := newTestAuth()

	principal, err := auth.SignInAnonymously(context.Background())
	req.NoError(err)

	var seen string
	var signedIn bool
	auth.OnAuthStateChange(func(p string, in bool) {
		seen = p
		signedIn = in
	})
	req.Equal(principal, seen)
	req.True(signedIn)
}
