package identity

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/samber/lo"

	"zinka/contract"
	"zinka/domain"
	"zinka/errors"
)

// UsernameDirectory enforces username uniqueness against the public
// projections. Ownership of a name is materialized as a claim document
// keyed by the normalized username itself, written with a must-not-exist
// precondition, so two principals can never both pass the check.
type UsernameDirectory struct {
	store contract.DocumentStore
	paths contract.Paths
	log   *slog.Logger
}

func NewUsernameDirectory(store contract.DocumentStore, paths contract.Paths, log *slog.Logger) *UsernameDirectory {
	return &UsernameDirectory{store: store, paths: paths, log: log}
}

// Reserve claims a cleaned username for a principal. Reserving a name the
// principal already holds is a no-op.
func (d *UsernameDirectory) Reserve(ctx context.Context, username, principalID string) error {
	claim := map[string]any{"principal": principalID}
	err := d.store.Create(ctx, d.paths.UsernameClaim(username), claim)
	if err == nil {
		return nil
	}
	if !stderrors.Is(err, errors.ErrAlreadyExists) {
		return fmt.Errorf("%w: reserving %q: %v", errors.ErrSyncFailure, username, err)
	}
	doc, getErr := d.store.Get(ctx, d.paths.UsernameClaim(username))
	if getErr == nil {
		if holder, _ := doc.Data["principal"].(string); holder == principalID {
			return nil
		}
	}
	return errors.ErrUsernameTaken
}

// Release drops a claim after a rename committed. Best effort: a missing
// claim is not an error.
func (d *UsernameDirectory) Release(ctx context.Context, username string) {
	if username == "" {
		return
	}
	err := d.store.Delete(ctx, d.paths.UsernameClaim(username))
	if err != nil && !stderrors.Is(err, errors.ErrNotFound) {
		d.log.Warn("Releasing username claim failed", "username", username, "error", err)
	}
}

// Search resolves an exact (case-normalized) username against the public
// projections, excluding the asking principal. Principals with
// searchable=false have no projection and therefore never appear.
func (d *UsernameDirectory) Search(ctx context.Context, query, excluding string) ([]domain.PublicProfile, error) {
	username := CleanUsername(query)
	if username == "" {
		return nil, nil
	}
	snap, err := d.store.Query(ctx, d.paths.PublicUsers(), []contract.Filter{
		{Field: "username", Op: contract.OpEqual, Value: username},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: username search: %v", errors.ErrSyncFailure, err)
	}
	return lo.FilterMap(snap.Docs, func(doc contract.Document, _ int) (domain.PublicProfile, bool) {
		if doc.ID == excluding {
			return domain.PublicProfile{}, false
		}
		return domain.PublicProfileFromDoc(doc.ID, doc.Data), true
	}), nil
}
