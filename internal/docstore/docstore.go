// Package docstore implements the document-store backend the tracker talks
// to: per-user namespaces holding named collections of JSON documents, with
// push-based change subscriptions and an anonymous sign-in surface.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

type (
	// Document is one stored record. The store assigns the ID; Timestamp is
	// the creation instant and the collection's descending ordering key.
	Document struct {
		ID        string
		Timestamp time.Time
		Data      json.RawMessage
	}

	// SnapshotFunc receives the full current collection, ordered by timestamp
	// descending, after every change. Callbacks never receive deltas; callers
	// replace their local copy wholesale.
	SnapshotFunc func(docs []Document)

	// Store is the document-store surface scoped to per-user namespaces.
	Store interface {
		// Add stores data under a freshly assigned id and returns that id.
		Add(ctx context.Context, uid, collection string, ts time.Time, data json.RawMessage) (string, error)
		// List returns the full collection ordered by timestamp descending.
		List(ctx context.Context, uid, collection string) ([]Document, error)
		// Update replaces the data of an existing document.
		Update(ctx context.Context, uid, collection, id string, data json.RawMessage) error
		// Delete removes a document by id.
		Delete(ctx context.Context, uid, collection, id string) error
		// DeleteAll removes every document in the collection.
		DeleteAll(ctx context.Context, uid, collection string) error
		// Subscribe registers fn for change pushes on (uid, collection) and
		// returns an unsubscribe function. fn is called once with the current
		// collection before Subscribe returns.
		Subscribe(uid, collection string, fn SnapshotFunc) (func(), error)
		Close() error
	}

	// Authenticator is the anonymous-auth surface of the store.
	Authenticator interface {
		// SignInAnonymously returns a stable anonymous uid, creating one on
		// first use. Returns ErrAnonymousAuthDisabled when the store has the
		// feature turned off.
		SignInAnonymously(ctx context.Context) (string, error)
	}

	// AuthStore combines storage and sign-in. Both concrete stores satisfy it.
	AuthStore interface {
		Store
		Authenticator
	}
)

var (
	// ErrNotFound is returned for update/delete against an unknown document.
	ErrNotFound = errors.New("document not found")
	// ErrAnonymousAuthDisabled mirrors the backend's feature-disabled auth error.
	ErrAnonymousAuthDisabled = errors.New("anonymous authentication is not enabled")
)
