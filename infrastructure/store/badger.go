// Package store provides a BadgerDB-backed implementation of the
// document-store collaborator: path-keyed JSON documents, collection
// prefix scans, and change notification fanout to live subscriptions.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"zinka/contract"
	"zinka/errors"
)

// Keys are "doc:" + full slash-separated path. A collection scan walks
// the "doc:{collection}/" prefix and skips keys whose remainder still
// contains a slash, so subcollections never leak into their parent.
const keyPrefix = "doc:"

type BadgerStore struct {
	db  *badger.DB
	log *slog.Logger

	// commitMu spans every commit and its notification re-query, so
	// subscribers observe snapshots in commit order.
	commitMu sync.Mutex

	subMu  sync.RWMutex
	subs   map[uint64]*subscription
	nextID uint64
	buffer int
}

func NewBadgerStore(db *badger.DB, log *slog.Logger, notificationBuffer int) *BadgerStore {
	if notificationBuffer <= 0 {
		notificationBuffer = 16
	}
	return &BadgerStore{
		db:     db,
		log:    log,
		subs:   make(map[uint64]*subscription),
		buffer: notificationBuffer,
	}
}

func docKey(path string) []byte {
	return []byte(keyPrefix + path)
}

func docID(path string) string {
	return path[strings.LastIndex(path, "/")+1:]
}

func parentCollection(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return ""
	}
	return path[:idx]
}

func readDoc(txn *badger.Txn, path string) (map[string]any, error) {
	item, err := txn.Get(docKey(path))
	if err != nil {
		return nil, err
	}
	var data map[string]any
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &data)
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *BadgerStore) Get(_ context.Context, path string) (contract.Document, error) {
	var data map[string]any
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		data, err = readDoc(txn, path)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return contract.Document{}, fmt.Errorf("%w: %s", errors.ErrNotFound, path)
	}
	if err != nil {
		return contract.Document{}, err
	}
	return contract.Document{ID: docID(path), Data: data}, nil
}

func (s *BadgerStore) Set(_ context.Context, path string, data map[string]any, merge bool) error {
	resolved := resolveServerTime(data, time.Now().UTC())
	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	err := s.db.Update(func(txn *badger.Txn) error {
		doc := resolved
		if merge {
			if existing, err := readDoc(txn, path); err == nil {
				for k, v := range resolved {
					existing[k] = v
				}
				doc = existing
			}
		}
		bytes, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		return txn.Set(docKey(path), bytes)
	})
	if err != nil {
		return err
	}
	s.notify(path)
	return nil
}

// Create writes with a must-not-exist precondition, atomically within
// one transaction. This backs idempotent private-chat creation and
// username claims.
func (s *BadgerStore) Create(_ context.Context, path string, data map[string]any) error {
	resolved := resolveServerTime(data, time.Now().UTC())
	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(docKey(path)); err == nil {
			return errors.ErrAlreadyExists
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		bytes, err := json.Marshal(resolved)
		if err != nil {
			return err
		}
		return txn.Set(docKey(path), bytes)
	})
	if err != nil {
		return err
	}
	s.notify(path)
	return nil
}

func (s *BadgerStore) Delete(_ context.Context, path string) error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(docKey(path)); err == badger.ErrKeyNotFound {
			return fmt.Errorf("%w: %s", errors.ErrNotFound, path)
		}
		return txn.Delete(docKey(path))
	})
	if err != nil {
		return err
	}
	s.notify(path)
	return nil
}

func (s *BadgerStore) Add(ctx context.Context, collection string, data map[string]any) (string, error) {
	id := uuid.NewString()
	if err := s.Create(ctx, collection+"/"+id, data); err != nil {
		return "", err
	}
	return id, nil
}

func (s *BadgerStore) Query(_ context.Context, collection string, filters []contract.Filter) (contract.Snapshot, error) {
	return s.query(collection, filters)
}

func (s *BadgerStore) query(collection string, filters []contract.Filter) (contract.Snapshot, error) {
	var snap contract.Snapshot
	prefix := []byte(keyPrefix + collection + "/")
	err := s.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			rest := string(item.Key()[len(prefix):])
			if strings.Contains(rest, "/") {
				continue
			}
			var data map[string]any
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &data)
			})
			if err != nil {
				return err
			}
			if matches(data, filters) {
				snap.Docs = append(snap.Docs, contract.Document{ID: rest, Data: data})
			}
		}
		return nil
	})
	return snap, err
}

// Subscribe opens a live query. The handler fires once with the current
// result set, then again after every commit touching the collection, in
// commit order. Consecutive pending snapshots may be coalesced; each
// delivery is a full re-materialization, so nothing is lost.
func (s *BadgerStore) Subscribe(collection string, filters []contract.Filter,
	onSnapshot contract.SnapshotHandler, onError contract.ErrorHandler) (contract.Subscription, error) {
	sub := &subscription{
		store:      s,
		collection: collection,
		filters:    filters,
		onSnapshot: onSnapshot,
		onError:    onError,
		ch:         make(chan delivery, s.buffer),
		quit:       make(chan struct{}),
	}

	s.subMu.Lock()
	s.nextID++
	sub.id = s.nextID
	s.subs[sub.id] = sub
	s.subMu.Unlock()

	go sub.run()

	// Taken so the first snapshot cannot interleave with a concurrent
	// commit's re-query and land out of order.
	s.commitMu.Lock()
	snap, err := s.query(collection, filters)
	sub.push(delivery{snap: snap, err: err})
	s.commitMu.Unlock()
	return sub, nil
}

func (s *BadgerStore) notify(path string) {
	collection := parentCollection(path)

	s.subMu.RLock()
	var matching []*subscription
	for _, sub := range s.subs {
		if sub.collection == collection {
			matching = append(matching, sub)
		}
	}
	s.subMu.RUnlock()

	for _, sub := range matching {
		snap, err := s.query(sub.collection, sub.filters)
		sub.push(delivery{snap: snap, err: err})
	}
}

func (s *BadgerStore) drop(id uint64) {
	s.subMu.Lock()
	delete(s.subs, id)
	s.subMu.Unlock()
}

type delivery struct {
	snap contract.Snapshot
	err  error
}

type subscription struct {
	id         uint64
	store      *BadgerStore
	collection string
	filters    []contract.Filter
	onSnapshot contract.SnapshotHandler
	onError    contract.ErrorHandler

	ch     chan delivery
	quit   chan struct{}
	pushMu sync.Mutex
	mu     sync.Mutex
	done   bool
}

func (s *subscription) run() {
	for {
		select {
		case d := <-s.ch:
			s.mu.Lock()
			done := s.done
			s.mu.Unlock()
			if done {
				return
			}
			if d.err != nil {
				if s.onError != nil {
					s.onError(d.err)
				}
				continue
			}
			s.onSnapshot(d.snap)
		case <-s.quit:
			return
		}
	}
}

// push enqueues in commit order, evicting the oldest pending delivery
// when the consumer lags.
func (s *subscription) push(d delivery) {
	s.pushMu.Lock()
	defer s.pushMu.Unlock()
	for {
		select {
		case s.ch <- d:
			return
		default:
			select {
			case <-s.ch:
			default:
			}
		}
	}
}

// Cancel synchronously invalidates the handle: once it returns, no new
// snapshot delivery starts.
func (s *subscription) Cancel() {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return
	}
	s.done = true
	close(s.quit)
	s.mu.Unlock()
	s.store.drop(s.id)
}

// resolveServerTime deep-copies a document, replacing the server-time
// sentinel with the commit instant. Resolution happens store-side, never
// on the client.
func resolveServerTime(data map[string]any, now time.Time) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		switch vv := v.(type) {
		case map[string]any:
			out[k] = resolveServerTime(vv, now)
		default:
			if v == contract.ServerTimestamp {
				out[k] = now
				continue
			}
			out[k] = v
		}
	}
	return out
}

func matches(data map[string]any, filters []contract.Filter) bool {
	for _, f := range filters {
		switch f.Op {
		case contract.OpEqual:
			if !equalValue(data[f.Field], f.Value) {
				return false
			}
		case contract.OpContains:
			if !containsValue(data[f.Field], f.Value) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func equalValue(field, want any) bool {
	return reflect.DeepEqual(field, want)
}

func containsValue(field, want any) bool {
	items, ok := field.([]any)
	if !ok {
		return false
	}
	for _, item := range items {
		if reflect.DeepEqual(item, want) {
			return true
		}
	}
	return false
}
