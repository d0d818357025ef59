package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrivateChatID_IsOrderIndependent(t *testing.T) {
	req := require.New(t)
	req.Equal(PrivateChatID("u1", "u2"), PrivateChatID("u2", "u1"))
	req.NotEqual(PrivateChatID("u1", "u2"), PrivateChatID("u1", "u3"))
}

func TestChat_DisplayName(t *testing.T) {
	chat := Chat{
		Kind:         ChatPrivate,
		Participants: []string{"u1", "u2"},
		ParticipantInfo: map[string]ParticipantInfo{
			"u1": {Username: "alice", FirstName: "Alice", LastName: "A"},
			"u2": {Username: "bob", FirstName: "Bob"},
		},
	}

	t.Run("should name a private chat after the peer", func(t *testing.T) {
		require.Equal(t, "Bob", chat.DisplayName("u1"))
		require.Equal(t, "Alice A", chat.DisplayName("u2"))
		require.Equal(t, "B", chat.Initial("u1"))
	})

	t.Run("should fall back when the snapshot is missing", func(t *testing.T) {
		bare := Chat{Kind: ChatPrivate, Participants: []string{"u1", "u2"}}
		require.Equal(t, "Private chat", bare.DisplayName("u1"))
	})

	t.Run("should use the chat name for groups", func(t *testing.T) {
		group := Chat{Kind: ChatGroup, Name: "launch crew"}
		require.Equal(t, "launch crew", group.DisplayName("u1"))
	})
}

func TestDefaultProfile(t *testing.T) {
	req := require.New(t)
	profile := DefaultProfile("ABCDEF-long-principal")
	req.Equal("user_abcdef", profile.Username)
	req.True(profile.Privacy.Searchable)
	req.NotEmpty(profile.FirstName)
}
