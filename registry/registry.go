// Package registry live-synchronizes the set of conversations a
// principal belongs to.
package registry

import (
	"fmt"
	"log/slog"
	"sync"

	"zinka/contract"
	"zinka/domain"
	"zinka/errors"
	"zinka/projection"
)

// Listener receives the freshly materialized chat list after every
// snapshot. Delivered on the store's notification goroutine.
type Listener func(chats []domain.Chat)

// ChatRegistry subscribes to the chats whose participants contain the
// principal and re-materializes the full visible list on every
// notification. It terminates only on sign-out or explicit shutdown.
type ChatRegistry struct {
	mu        sync.RWMutex
	store     contract.DocumentStore
	paths     contract.Paths
	log       *slog.Logger
	chats     []domain.Chat
	listeners []Listener
	notify    contract.ErrorHandler
	sub       contract.Subscription
	epoch     int
}

func NewChatRegistry(store contract.DocumentStore, paths contract.Paths, log *slog.Logger) *ChatRegistry {
	return &ChatRegistry{store: store, paths: paths, log: log}
}

func (r *ChatRegistry) OnChange(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// NotifyFailures installs the non-blocking sink for transport failures.
func (r *ChatRegistry) NotifyFailures(h contract.ErrorHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notify = h
}

// Start opens the live query for one principal. Any previous
// subscription is invalidated first, so a late-arriving snapshot for a
// stale principal is discarded rather than applied.
func (r *ChatRegistry) Start(principalID string) (contract.Subscription, error) {
	r.mu.Lock()
	if r.sub != nil {
		r.sub.Cancel()
		r.sub = nil
	}
	r.epoch++
	epoch := r.epoch
	r.mu.Unlock()

	sub, err := r.store.Subscribe(r.paths.Chats(), []contract.Filter{
		{Field: "participants", Op: contract.OpContains, Value: principalID},
	}, func(snap contract.Snapshot) {
		r.apply(epoch, snap)
	}, func(err error) {
		r.surface(fmt.Errorf("%w: chat subscription: %v", errors.ErrSyncFailure, err))
	})
	if err != nil {
		return nil, fmt.Errorf("%w: chat subscribe: %v", errors.ErrSyncFailure, err)
	}

	r.mu.Lock()
	r.sub = sub
	r.mu.Unlock()
	return sub, nil
}

func (r *ChatRegistry) apply(epoch int, snap contract.Snapshot) {
	chats := projection.ChatList(snap)
	r.mu.Lock()
	if epoch != r.epoch {
		r.mu.Unlock()
		r.log.Debug("Dropping stale chats snapshot", "epoch", epoch)
		return
	}
	r.chats = chats
	listeners := make([]Listener, len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.Unlock()
	for _, l := range listeners {
		l(chats)
	}
}

func (r *ChatRegistry) surface(err error) {
	r.mu.RLock()
	notify := r.notify
	r.mu.RUnlock()
	r.log.Warn("Chat sync failure", "error", err)
	if notify != nil {
		notify(err)
	}
}

// Stop cancels the live query and clears the cached list.
func (r *ChatRegistry) Stop() {
	r.mu.Lock()
	sub := r.sub
	r.sub = nil
	r.epoch++
	r.chats = nil
	r.mu.Unlock()
	if sub != nil {
		sub.Cancel()
	}
}

// Chats returns the current materialized list, newest activity first.
func (r *ChatRegistry) Chats() []domain.Chat {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Chat, len(r.chats))
	copy(out, r.chats)
	return out
}

// Chat looks a chat up by id in the materialized list.
func (r *ChatRegistry) Chat(id string) (domain.Chat, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.chats {
		if c.ID == id {
			return c, true
		}
	}
	return domain.Chat{}, false
}
