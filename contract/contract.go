//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import "context"

// Authenticator is the auth collaborator. Implementations deliver the
// current principal (or none) to registered listeners; a listener fires
// once with the current state at registration time.
type Authenticator interface {
	SignInAnonymously(ctx context.Context) (string, error)
	SignInWithToken(ctx context.Context, token string) (string, error)
	SignOut(ctx context.Context) error
	OnAuthStateChange(listener AuthStateListener) Subscription
}

// AuthStateListener receives the current principal id, or signedIn=false
// when no session exists.
type AuthStateListener func(principalID string, signedIn bool)

// Document is one stored record addressed by the last path segment.
type Document struct {
	ID   string
	Data map[string]any
}

// Snapshot is a point-in-time delivery of a query result set. Documents
// carry no ordering guarantee; consumers re-materialize and sort.
type Snapshot struct {
	Docs []Document
}

type FilterOp int

const (
	// OpEqual matches an exact field value.
	OpEqual FilterOp = iota
	// OpContains matches membership in an array field.
	OpContains
)

type Filter struct {
	Field string
	Op    FilterOp
	Value any
}

// Subscription is the cancel handle of a live query. After Cancel
// returns, no new snapshot delivery starts for this handle.
type Subscription interface {
	Cancel()
}

type SnapshotHandler func(Snapshot)
type ErrorHandler func(error)

// serverTime is the sentinel write value resolved to a concrete
// timestamp by the store at commit, not by the client.
type serverTime struct{}

var ServerTimestamp = serverTime{}

// DocumentStore is the document-store collaborator, addressed by
// hierarchical slash-separated paths under a tenant namespace.
//
// Every call is a round trip to the store; within one subscription,
// snapshots arrive in the order the store emits them, but no ordering is
// guaranteed between a local write and its read-back notification.
type DocumentStore interface {
	Get(ctx context.Context, path string) (Document, error)
	Set(ctx context.Context, path string, data map[string]any, merge bool) error
	// Create writes with a must-not-exist precondition and fails with
	// ErrAlreadyExists otherwise. This is the store's only atomic
	// conditional operation.
	Create(ctx context.Context, path string, data map[string]any) error
	Delete(ctx context.Context, path string) error
	Add(ctx context.Context, collection string, data map[string]any) (string, error)
	Query(ctx context.Context, collection string, filters []Filter) (Snapshot, error)
	Subscribe(collection string, filters []Filter, onSnapshot SnapshotHandler, onError ErrorHandler) (Subscription, error)
}
