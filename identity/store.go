package identity

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"

	"zinka/contract"
	"zinka/domain"
	"zinka/errors"
)

type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticating
	StateAuthenticated
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// StateListener observes session lifecycle transitions. Listeners run on
// the delivery goroutine of the auth collaborator; they must not block.
type StateListener func(state State, session domain.Session)

// IdentityStore owns the authenticated session and the private/public
// profile duality.
//
// Lifecycle: Unauthenticated -> Authenticating -> Authenticated ->
// Ready(profile loaded), back to Unauthenticated on sign-out. A failed
// sign-in exchange parks the store in StateFailed; there is no automatic
// retry, the caller decides.
type IdentityStore struct {
	mu        sync.Mutex
	auth      contract.Authenticator
	store     contract.DocumentStore
	directory *UsernameDirectory
	paths     contract.Paths
	log       *slog.Logger

	bootstrapToken string

	state     State
	session   domain.Session
	profile   domain.Profile
	fresh     bool
	lastErr   error
	listeners []StateListener
	authSub   contract.Subscription
}

func NewIdentityStore(auth contract.Authenticator, store contract.DocumentStore,
	directory *UsernameDirectory, paths contract.Paths, log *slog.Logger) *IdentityStore {
	return &IdentityStore{
		auth:      auth,
		store:     store,
		directory: directory,
		paths:     paths,
		log:       log,
	}
}

// WithBootstrapToken makes the first sign-in exchange a supplied
// credential instead of a fresh anonymous identity.
func (s *IdentityStore) WithBootstrapToken(token string) *IdentityStore {
	s.bootstrapToken = token
	return s
}

func (s *IdentityStore) OnStateChange(l StateListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Start registers with the auth collaborator and drives the first
// sign-in. It returns immediately; progress is reported to listeners.
func (s *IdentityStore) Start(ctx context.Context) {
	sub := s.auth.OnAuthStateChange(func(principalID string, signedIn bool) {
		if signedIn {
			s.handleSignedIn(ctx, principalID)
			return
		}
		s.handleSignedOut(ctx)
	})
	s.mu.Lock()
	s.authSub = sub
	s.mu.Unlock()
}

// Stop releases the auth subscription without touching the session.
func (s *IdentityStore) Stop() {
	s.mu.Lock()
	sub := s.authSub
	s.authSub = nil
	s.mu.Unlock()
	if sub != nil {
		sub.Cancel()
	}
}

func (s *IdentityStore) handleSignedOut(ctx context.Context) {
	s.mu.Lock()
	s.session = domain.Session{}
	s.profile = domain.Profile{}
	s.fresh = false
	s.mu.Unlock()
	s.setState(StateUnauthenticated)

	// No session: exchange for one. The auth collaborator answers with a
	// signed-in notification, which resumes the lifecycle.
	s.setState(StateAuthenticating)
	var err error
	if s.bootstrapToken != "" {
		_, err = s.auth.SignInWithToken(ctx, s.bootstrapToken)
	} else {
		_, err = s.auth.SignInAnonymously(ctx)
	}
	if err != nil {
		s.mu.Lock()
		s.lastErr = fmt.Errorf("%w: %v", errors.ErrAuthFailure, err)
		s.mu.Unlock()
		s.log.Error("Sign-in exchange failed", "error", err)
		s.setState(StateFailed)
	}
}

func (s *IdentityStore) handleSignedIn(ctx context.Context, principalID string) {
	s.mu.Lock()
	s.session = domain.Session{PrincipalID: principalID}
	s.mu.Unlock()
	s.setState(StateAuthenticated)

	if _, err := s.LoadOrBootstrapProfile(ctx, principalID); err != nil {
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		s.log.Error("Profile load failed", "principal", principalID, "error", err)
		s.setState(StateFailed)
		return
	}

	s.mu.Lock()
	s.session.Ready = true
	s.mu.Unlock()
	s.setState(StateReady)
}

// LoadOrBootstrapProfile fetches the private profile, constructing and
// persisting the default one (plus its public projection) for a brand-new
// principal.
func (s *IdentityStore) LoadOrBootstrapProfile(ctx context.Context, principalID string) (domain.Profile, error) {
	doc, err := s.store.Get(ctx, s.paths.Profile(principalID))
	switch {
	case err == nil:
		profile := domain.ProfileFromDoc(doc.Data)
		s.mu.Lock()
		s.profile = profile
		s.fresh = false
		s.mu.Unlock()
		return profile, nil
	case !stderrors.Is(err, errors.ErrNotFound):
		return domain.Profile{}, fmt.Errorf("%w: profile fetch: %v", errors.ErrSyncFailure, err)
	}

	profile := domain.DefaultProfile(principalID)
	if err := s.store.Set(ctx, s.paths.Profile(principalID), profile.Doc(), false); err != nil {
		return domain.Profile{}, fmt.Errorf("%w: profile bootstrap: %v", errors.ErrSyncFailure, err)
	}
	if err := s.publishProjection(ctx, principalID, profile); err != nil {
		return domain.Profile{}, err
	}
	// The derived default name is unique in practice; a lost claim here
	// only weakens conflict detection until the first rename.
	if err := s.directory.Reserve(ctx, profile.Username, principalID); err != nil {
		s.log.Warn("Default username claim failed", "username", profile.Username, "error", err)
	}

	s.mu.Lock()
	s.profile = profile
	s.fresh = true
	s.mu.Unlock()
	s.log.Info("Bootstrapped default profile", "principal", principalID, "username", profile.Username)
	return profile, nil
}

// SaveProfile validates and commits a profile edit, keeping the public
// projection in step with the searchable switch.
//
// The private commit and the projection write are two store calls, not a
// transaction: a reader may transiently observe one updated and the
// other not.
func (s *IdentityStore) SaveProfile(ctx context.Context, candidate domain.Profile) (domain.Profile, error) {
	s.mu.Lock()
	session := s.session
	previous := s.profile
	s.mu.Unlock()
	if session.PrincipalID == "" {
		return domain.Profile{}, errors.ErrNotSignedIn
	}

	candidate.Username = CleanUsername(candidate.Username)
	if err := ValidateProfile(candidate); err != nil {
		return domain.Profile{}, err
	}

	renamed := candidate.Username != previous.Username
	if renamed {
		if err := s.directory.Reserve(ctx, candidate.Username, session.PrincipalID); err != nil {
			return domain.Profile{}, err
		}
	}

	if err := s.store.Set(ctx, s.paths.Profile(session.PrincipalID), candidate.Doc(), true); err != nil {
		if renamed {
			// The profile never carried the new name; give the claim back.
			s.directory.Release(ctx, candidate.Username)
		}
		return domain.Profile{}, fmt.Errorf("%w: profile commit: %v", errors.ErrSyncFailure, err)
	}
	if err := s.publishProjection(ctx, session.PrincipalID, candidate); err != nil {
		return domain.Profile{}, err
	}
	if renamed {
		s.directory.Release(ctx, previous.Username)
	}

	s.mu.Lock()
	s.profile = candidate
	s.fresh = false
	s.mu.Unlock()
	return candidate, nil
}

// publishProjection enforces the invariant: projection exists iff the
// profile is searchable, with fields mirroring the private profile.
func (s *IdentityStore) publishProjection(ctx context.Context, principalID string, profile domain.Profile) error {
	path := s.paths.PublicUser(principalID)
	if profile.Privacy.Searchable {
		if err := s.store.Set(ctx, path, profile.Public(principalID).Doc(), true); err != nil {
			return fmt.Errorf("%w: projection publish: %v", errors.ErrSyncFailure, err)
		}
		return nil
	}
	if err := s.store.Delete(ctx, path); err != nil && !stderrors.Is(err, errors.ErrNotFound) {
		return fmt.Errorf("%w: projection removal: %v", errors.ErrSyncFailure, err)
	}
	return nil
}

// SignOut invalidates the session. Dependent subscriptions are released
// by the orchestrator reacting to the Unauthenticated transition; the
// auth collaborator then issues a fresh anonymous identity.
func (s *IdentityStore) SignOut(ctx context.Context) error {
	if err := s.auth.SignOut(ctx); err != nil {
		return fmt.Errorf("%w: sign-out: %v", errors.ErrAuthFailure, err)
	}
	return nil
}

func (s *IdentityStore) Session() domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

func (s *IdentityStore) Profile() domain.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

func (s *IdentityStore) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err reports the surfaced error of the last failed exchange or load.
func (s *IdentityStore) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// NewlyBootstrapped reports whether the current profile was created with
// defaults during this session. Consumers use it to push the principal
// straight into profile editing.
func (s *IdentityStore) NewlyBootstrapped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fresh
}

func (s *IdentityStore) setState(next State) {
	s.mu.Lock()
	s.state = next
	session := s.session
	listeners := make([]StateListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()
	for _, l := range listeners {
		l(next, session)
	}
}
