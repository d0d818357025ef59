// Package runtime composes the sync components into a single lifecycle.
// It contains no business logic or domain rules.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"zinka/contract"
	"zinka/domain"
	"zinka/errors"
	"zinka/identity"
	"zinka/registry"
	"zinka/stream"
)

// Orchestrator wires auth readiness to the chat subscription and
// selected-chat changes to the message subscription, and owns the
// cancellation ordering on sign-out: messages first, then chats, then
// control returns to the identity store.
type Orchestrator struct {
	mu       sync.Mutex
	log      *slog.Logger
	identity *identity.IdentityStore
	registry *registry.ChatRegistry
	stream   *stream.MessageStream
	notify   contract.ErrorHandler
	started  bool
}

func NewOrchestrator(log *slog.Logger, ids *identity.IdentityStore,
	reg *registry.ChatRegistry, str *stream.MessageStream) *Orchestrator {
	return &Orchestrator{log: log, identity: ids, registry: reg, stream: str}
}

// NotifyFailures installs the sink receiving non-blocking sync failure
// notifications from every component. Must be called before Start.
func (o *Orchestrator) NotifyFailures(h contract.ErrorHandler) {
	o.mu.Lock()
	o.notify = h
	o.mu.Unlock()
	o.registry.NotifyFailures(h)
	o.stream.NotifyFailures(h)
}

// Start drives the whole lifecycle: auth ready -> profile loaded ->
// chats subscribed; the selected-chat message subscription follows
// SelectChat calls. Idempotent.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return
	}
	o.started = true
	o.mu.Unlock()

	o.identity.OnStateChange(func(state identity.State, session domain.Session) {
		switch state {
		case identity.StateReady:
			if _, err := o.registry.Start(session.PrincipalID); err != nil {
				o.surface(err)
			}
		case identity.StateUnauthenticated:
			o.teardown()
		case identity.StateFailed:
			o.surface(o.identity.Err())
		}
	})

	o.log.Info("Starting sync orchestrator")
	o.identity.Start(ctx)
}

// SelectChat restarts the message stream on a chat from the registry's
// current list.
func (o *Orchestrator) SelectChat(chatID string) error {
	chat, ok := o.registry.Chat(chatID)
	if !ok {
		return fmt.Errorf("%w: chat %s", errors.ErrNotFound, chatID)
	}
	return o.stream.Select(&chat)
}

// SignOut tears both subscriptions down and clears all cached lists
// before handing control back to the identity store.
func (o *Orchestrator) SignOut(ctx context.Context) error {
	o.teardown()
	return o.identity.SignOut(ctx)
}

// Stop shuts the whole tree down without touching the remote session.
func (o *Orchestrator) Stop() {
	o.log.Info("Stopping sync orchestrator")
	o.teardown()
	o.identity.Stop()
}

func (o *Orchestrator) teardown() {
	o.stream.Stop()
	o.registry.Stop()
}

func (o *Orchestrator) surface(err error) {
	if err == nil {
		return
	}
	o.mu.Lock()
	notify := o.notify
	o.mu.Unlock()
	o.log.Warn("Orchestrator surfaced failure", "error", err)
	if notify != nil {
		notify(err)
	}
}
