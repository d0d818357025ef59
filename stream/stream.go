// Package stream live-synchronizes one selected conversation's message
// history at a time.
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"zinka/contract"
	"zinka/domain"
	"zinka/errors"
	"zinka/projection"
)

// Sender supplies the identity stamped onto outgoing messages.
// *identity.IdentityStore satisfies it.
type Sender interface {
	Session() domain.Session
	Profile() domain.Profile
}

type Listener func(messages []domain.Message)

// MessageStream follows the append-only message set of the selected
// chat. Switching chats cancels the previous subscription before any new
// work, and yields an empty list immediately for the new chat.
type MessageStream struct {
	mu        sync.Mutex
	store     contract.DocumentStore
	paths     contract.Paths
	sender    Sender
	log       *slog.Logger
	selected  *domain.Chat
	messages  []domain.Message
	listeners []Listener
	notify    contract.ErrorHandler
	sub       contract.Subscription
	epoch     int
}

func NewMessageStream(store contract.DocumentStore, paths contract.Paths, sender Sender, log *slog.Logger) *MessageStream {
	return &MessageStream{store: store, paths: paths, sender: sender, log: log}
}

func (m *MessageStream) OnChange(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

func (m *MessageStream) NotifyFailures(h contract.ErrorHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notify = h
}

// Select switches the stream to a chat, or to none when chat is nil.
// The previous handle is invalidated synchronously first; the empty list
// is emitted before the first snapshot of the new chat arrives.
func (m *MessageStream) Select(chat *domain.Chat) error {
	if chat != nil {
		// Detach from the caller's value; later caller mutations must not
		// reach the stream.
		copied := *chat
		chat = &copied
	}
	m.mu.Lock()
	if sub := m.sub; sub != nil {
		sub.Cancel()
		m.sub = nil
	}
	m.epoch++
	epoch := m.epoch
	m.selected = chat
	m.messages = nil
	listeners := make([]Listener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	for _, l := range listeners {
		l(nil)
	}
	if chat == nil {
		return nil
	}

	sub, err := m.store.Subscribe(m.paths.Messages(chat.ID), nil,
		func(snap contract.Snapshot) {
			m.apply(epoch, snap)
		}, func(err error) {
			m.surface(fmt.Errorf("%w: message subscription: %v", errors.ErrSyncFailure, err))
		})
	if err != nil {
		return fmt.Errorf("%w: message subscribe: %v", errors.ErrSyncFailure, err)
	}

	m.mu.Lock()
	// A concurrent reselect may have raced us; hand the handle over only
	// if this epoch is still current.
	if epoch != m.epoch {
		m.mu.Unlock()
		sub.Cancel()
		return nil
	}
	m.sub = sub
	m.mu.Unlock()
	return nil
}

// Send appends a text message to the selected chat and bumps the parent
// chat's preview. The two writes are sequential, not a transaction: if
// the preview update fails after a successful append, the chat summary
// is stale until the next send, surfaced as a sync failure rather than
// an error.
func (m *MessageStream) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.ErrEmptyMessage
	}
	m.mu.Lock()
	selected := m.selected
	m.mu.Unlock()
	if selected == nil {
		return errors.ErrNoChatSelected
	}
	session := m.sender.Session()
	if session.PrincipalID == "" {
		return errors.ErrNotSignedIn
	}

	msg := domain.Message{
		Sender:         session.PrincipalID,
		SenderUsername: m.sender.Profile().Username,
		Text:           text,
		Kind:           domain.MessageText,
	}
	doc := msg.Doc()
	doc["timestamp"] = contract.ServerTimestamp
	if _, err := m.store.Add(ctx, m.paths.Messages(selected.ID), doc); err != nil {
		return fmt.Errorf("%w: message append: %v", errors.ErrSyncFailure, err)
	}

	err := m.store.Set(ctx, m.paths.Chat(selected.ID), map[string]any{
		"lastMessage": text,
		"timestamp":   contract.ServerTimestamp,
	}, true)
	if err != nil {
		m.surface(fmt.Errorf("%w: chat preview update: %v", errors.ErrSyncFailure, err))
	}
	return nil
}

func (m *MessageStream) apply(epoch int, snap contract.Snapshot) {
	messages := projection.Timeline(snap)
	m.mu.Lock()
	if epoch != m.epoch {
		m.mu.Unlock()
		m.log.Debug("Dropping stale messages snapshot", "epoch", epoch)
		return
	}
	m.messages = messages
	listeners := make([]Listener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()
	for _, l := range listeners {
		l(messages)
	}
}

func (m *MessageStream) surface(err error) {
	m.mu.Lock()
	notify := m.notify
	m.mu.Unlock()
	m.log.Warn("Message sync failure", "error", err)
	if notify != nil {
		notify(err)
	}
}

// Stop deselects and cancels any live subscription.
func (m *MessageStream) Stop() {
	_ = m.Select(nil)
}

// Selected returns the currently followed chat, or nil. The returned
// value is a copy, like Messages.
func (m *MessageStream) Selected() *domain.Chat {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.selected == nil {
		return nil
	}
	chat := *m.selected
	return &chat
}

// Messages returns the current ascending timeline.
func (m *MessageStream) Messages() []domain.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Message, len(m.messages))
	copy(out, m.messages)
	return out
}
