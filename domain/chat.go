package domain

import (
	"sort"
	"strings"
	"time"
)

type ChatKind string

const (
	ChatPrivate ChatKind = "private"
	ChatGroup   ChatKind = "group"
	ChatChannel ChatKind = "channel"
)

func (k ChatKind) Valid() bool {
	switch k {
	case ChatPrivate, ChatGroup, ChatChannel:
		return true
	}
	return false
}

// ParticipantInfo is the denormalized identity snapshot frozen into a chat
// at creation time. It may go stale if a participant later edits their
// profile; chats never refresh it.
type ParticipantInfo struct {
	Username  string
	FirstName string
	LastName  string
}

// Chat is a conversation co-referenced by all its participants.
// LastMessage and Timestamp are concurrently overwritten by every
// participant on send, last write wins. A nil Timestamp means the
// server-assigned time of the latest write is not visible yet.
type Chat struct {
	ID              string
	Kind            ChatKind
	Participants    []string
	ParticipantInfo map[string]ParticipantInfo
	LastMessage     string
	Timestamp       *time.Time

	// Group/channel only.
	Name        string
	Description string
	Creator     string
}

// PrivateChatID derives the single allowed id for a private pair.
// Sorting the principals makes creation idempotent for both sides.
func PrivateChatID(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return "p_" + pair[0] + "__" + pair[1]
}

// OtherParticipant returns the peer of a private chat, or "" when the
// viewer is not a participant or the chat is not private.
func (c Chat) OtherParticipant(viewerID string) string {
	if c.Kind != ChatPrivate {
		return ""
	}
	for _, p := range c.Participants {
		if p != viewerID {
			return p
		}
	}
	return ""
}

// DisplayName resolves the header title of a chat for a given viewer:
// the peer's snapshot name for private chats, the chat name otherwise.
func (c Chat) DisplayName(viewerID string) string {
	if c.Kind != ChatPrivate {
		return c.Name
	}
	other := c.OtherParticipant(viewerID)
	info, ok := c.ParticipantInfo[other]
	if other == "" || !ok {
		return "Private chat"
	}
	name := strings.TrimSpace(info.FirstName + " " + info.LastName)
	if name == "" {
		name = info.Username
	}
	return name
}

// Initial is the single-rune avatar fallback for a chat header.
func (c Chat) Initial(viewerID string) string {
	name := c.DisplayName(viewerID)
	if name == "" {
		return "?"
	}
	return strings.ToUpper(string([]rune(name)[0]))
}
