package services

import (
	"context"

	"zinka/composer"
	"zinka/domain"
	"zinka/identity"
	"zinka/registry"
	"zinka/runtime"
	"zinka/stream"
)

// IMessengerService is the command surface the UI layer talks to. The
// UI consumes state through the components' listeners and issues
// commands through here.
type IMessengerService interface {
	SendMessage(ctx context.Context, text string) error
	SelectChat(chatID string) error
	StartPrivateChat(ctx context.Context, other domain.PublicProfile) (domain.Chat, error)
	CreateGroupOrChannel(ctx context.Context, name, description string, kind domain.ChatKind) (domain.Chat, error)
	SaveProfile(ctx context.Context, candidate domain.Profile) (domain.Profile, error)
	Search(ctx context.Context, query string) ([]domain.PublicProfile, error)
	SignOut(ctx context.Context) error

	Session() domain.Session
	Profile() domain.Profile
	Chats() []domain.Chat
	Messages() []domain.Message
	SelectedChat() *domain.Chat
}

type MessengerService struct {
	orchestrator *runtime.Orchestrator
	identity     *identity.IdentityStore
	directory    *identity.UsernameDirectory
	registry     *registry.ChatRegistry
	stream       *stream.MessageStream
	composer     *composer.ChatComposer
}

func NewMessengerService(o *runtime.Orchestrator, ids *identity.IdentityStore,
	dir *identity.UsernameDirectory, reg *registry.ChatRegistry,
	str *stream.MessageStream, cmp *composer.ChatComposer) *MessengerService {
	return &MessengerService{
		orchestrator: o,
		identity:     ids,
		directory:    dir,
		registry:     reg,
		stream:       str,
		composer:     cmp,
	}
}

func (s *MessengerService) SendMessage(ctx context.Context, text string) error {
	return s.stream.Send(ctx, text)
}

func (s *MessengerService) SelectChat(chatID string) error {
	return s.orchestrator.SelectChat(chatID)
}

// StartPrivateChat opens (or creates) the pair chat and selects it.
func (s *MessengerService) StartPrivateChat(ctx context.Context, other domain.PublicProfile) (domain.Chat, error) {
	chat, err := s.composer.StartPrivateChat(ctx, other)
	if err != nil {
		return domain.Chat{}, err
	}
	return chat, s.stream.Select(&chat)
}

// CreateGroupOrChannel creates the chat and selects it.
func (s *MessengerService) CreateGroupOrChannel(ctx context.Context, name, description string, kind domain.ChatKind) (domain.Chat, error) {
	chat, err := s.composer.CreateGroupOrChannel(ctx, name, description, kind)
	if err != nil {
		return domain.Chat{}, err
	}
	return chat, s.stream.Select(&chat)
}

func (s *MessengerService) SaveProfile(ctx context.Context, candidate domain.Profile) (domain.Profile, error) {
	return s.identity.SaveProfile(ctx, candidate)
}

func (s *MessengerService) Search(ctx context.Context, query string) ([]domain.PublicProfile, error) {
	return s.directory.Search(ctx, query, s.identity.Session().PrincipalID)
}

func (s *MessengerService) SignOut(ctx context.Context) error {
	return s.orchestrator.SignOut(ctx)
}

func (s *MessengerService) Session() domain.Session { return s.identity.Session() }

func (s *MessengerService) Profile() domain.Profile { return s.identity.Profile() }

func (s *MessengerService) Chats() []domain.Chat { return s.registry.Chats() }

func (s *MessengerService) Messages() []domain.Message { return s.stream.Messages() }

func (s *MessengerService) SelectedChat() *domain.Chat { return s.stream.Selected() }
