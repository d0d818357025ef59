// Package composer creates conversations, deduplicating private pairs.
package composer

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"

	"zinka/contract"
	"zinka/domain"
	"zinka/errors"
	"zinka/stream"
)

// ChatComposer creates Chat documents. Private chats are keyed by the
// sorted principal pair, so creation is idempotent and both sides of a
// pair racing each other converge on the same document.
type ChatComposer struct {
	store  contract.DocumentStore
	paths  contract.Paths
	sender stream.Sender
	log    *slog.Logger
}

func NewChatComposer(store contract.DocumentStore, paths contract.Paths, sender stream.Sender, log *slog.Logger) *ChatComposer {
	return &ChatComposer{store: store, paths: paths, sender: sender, log: log}
}

// StartPrivateChat opens the one private chat with another principal,
// creating it if absent. The participantInfo snapshot is frozen at
// creation time; later profile edits do not retroactively update it.
func (c *ChatComposer) StartPrivateChat(ctx context.Context, other domain.PublicProfile) (domain.Chat, error) {
	session := c.sender.Session()
	if session.PrincipalID == "" {
		return domain.Chat{}, errors.ErrNotSignedIn
	}
	if other.PrincipalID == "" || other.PrincipalID == session.PrincipalID {
		return domain.Chat{}, fmt.Errorf("%w: cannot start a chat with yourself", errors.ErrValidation)
	}

	me := c.sender.Profile()
	id := domain.PrivateChatID(session.PrincipalID, other.PrincipalID)
	chat := domain.Chat{
		ID:           id,
		Kind:         domain.ChatPrivate,
		Participants: []string{session.PrincipalID, other.PrincipalID},
		ParticipantInfo: map[string]domain.ParticipantInfo{
			session.PrincipalID: {Username: me.Username, FirstName: me.FirstName, LastName: me.LastName},
			other.PrincipalID:   {Username: other.Username, FirstName: other.FirstName, LastName: other.LastName},
		},
	}
	doc := chat.Doc()
	doc["timestamp"] = contract.ServerTimestamp

	err := c.store.Create(ctx, c.paths.Chat(id), doc)
	switch {
	case err == nil:
		c.log.Info("Created private chat", "chat", id)
		return chat, nil
	case stderrors.Is(err, errors.ErrAlreadyExists):
		// The pair already has its chat, possibly created by the other
		// side a moment ago. Reuse it.
		existing, getErr := c.store.Get(ctx, c.paths.Chat(id))
		if getErr != nil {
			return domain.Chat{}, fmt.Errorf("%w: opening existing chat: %v", errors.ErrSyncFailure, getErr)
		}
		return domain.ChatFromDoc(existing.ID, existing.Data), nil
	}
	return domain.Chat{}, fmt.Errorf("%w: chat creation: %v", errors.ErrSyncFailure, err)
}

// CreateGroupOrChannel creates a group or channel with the creator as
// sole initial participant.
func (c *ChatComposer) CreateGroupOrChannel(ctx context.Context, name, description string, kind domain.ChatKind) (domain.Chat, error) {
	session := c.sender.Session()
	if session.PrincipalID == "" {
		return domain.Chat{}, errors.ErrNotSignedIn
	}
	if strings.TrimSpace(name) == "" {
		return domain.Chat{}, fmt.Errorf("%w: name is required", errors.ErrValidation)
	}
	if !kind.Valid() || kind == domain.ChatPrivate {
		return domain.Chat{}, fmt.Errorf("%w: kind must be group or channel", errors.ErrValidation)
	}

	me := c.sender.Profile()
	chat := domain.Chat{
		Kind:         kind,
		Name:         name,
		Description:  description,
		Creator:      session.PrincipalID,
		Participants: []string{session.PrincipalID},
		ParticipantInfo: map[string]domain.ParticipantInfo{
			session.PrincipalID: {Username: me.Username, FirstName: me.FirstName, LastName: me.LastName},
		},
	}
	doc := chat.Doc()
	doc["timestamp"] = contract.ServerTimestamp

	id, err := c.store.Add(ctx, c.paths.Chats(), doc)
	if err != nil {
		return domain.Chat{}, fmt.Errorf("%w: %s creation: %v", errors.ErrSyncFailure, kind, err)
	}
	chat.ID = id
	c.log.Info("Created chat", "chat", id, "kind", kind)
	return chat, nil
}
