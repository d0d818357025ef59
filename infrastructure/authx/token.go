// Package authx provides the token-based implementation of the auth
// collaborator: anonymous identities plus signed bootstrap credentials.
package authx

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"zinka/contract"
	"zinka/errors"
)

// PrincipalClaims is the payload of a bootstrap credential.
type PrincipalClaims struct {
	PrincipalID string `json:"principal_id"`
	jwt.RegisteredClaims
}

// TokenAuthenticator issues anonymous principals and exchanges HS256
// tokens for persistent ones. Listeners are notified of every session
// change, and once with the current state at registration time.
type TokenAuthenticator struct {
	mu        sync.Mutex
	secret    []byte
	duration  time.Duration
	log       *slog.Logger
	current   string
	listeners map[uint64]contract.AuthStateListener
	nextID    uint64
}

func NewTokenAuthenticator(secret []byte, tokenDuration time.Duration, log *slog.Logger) *TokenAuthenticator {
	return &TokenAuthenticator{
		secret:    secret,
		duration:  tokenDuration,
		log:       log,
		listeners: make(map[uint64]contract.AuthStateListener),
	}
}

func (a *TokenAuthenticator) SignInAnonymously(_ context.Context) (string, error) {
	principal := "anon_" + uuid.NewString()
	a.setCurrent(principal)
	a.log.Info("Issued anonymous identity", "principal", principal)
	return principal, nil
}

func (a *TokenAuthenticator) SignInWithToken(_ context.Context, token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &PrincipalClaims{}, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrAuthFailure, err)
	}
	claims, ok := parsed.Claims.(*PrincipalClaims)
	if !ok || !parsed.Valid || claims.PrincipalID == "" {
		return "", fmt.Errorf("%w: invalid credential", errors.ErrAuthFailure)
	}
	a.setCurrent(claims.PrincipalID)
	return claims.PrincipalID, nil
}

func (a *TokenAuthenticator) SignOut(_ context.Context) error {
	a.setCurrent("")
	return nil
}

// IssueToken mints a bootstrap credential for a principal, so a
// persistent identity can be carried across processes.
func (a *TokenAuthenticator) IssueToken(principalID string) (string, error) {
	claims := &PrincipalClaims{
		PrincipalID: principalID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(a.duration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "zinka",
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *TokenAuthenticator) OnAuthStateChange(listener contract.AuthStateListener) contract.Subscription {
	a.mu.Lock()
	a.nextID++
	id := a.nextID
	a.listeners[id] = listener
	current := a.current
	a.mu.Unlock()

	listener(current, current != "")
	return &listenerHandle{auth: a, id: id}
}

func (a *TokenAuthenticator) setCurrent(principal string) {
	a.mu.Lock()
	a.current = principal
	listeners := make([]contract.AuthStateListener, 0, len(a.listeners))
	for _, l := range a.listeners {
		listeners = append(listeners, l)
	}
	a.mu.Unlock()
	for _, l := range listeners {
		l(principal, principal != "")
	}
}

type listenerHandle struct {
	auth *TokenAuthenticator
	id   uint64
}

func (h *listenerHandle) Cancel() {
	h.auth.mu.Lock()
	delete(h.auth.listeners, h.id)
	h.auth.mu.Unlock()
}
