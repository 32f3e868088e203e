package docstore

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store used for the memory backend and tests.
type MemoryStore struct {
	mu            sync.Mutex
	docs          map[string][]Document // keyed by uid/collection
	anonymousUID  string
	anonymousAuth bool
	hub           *hub
}

var (
	_ Store         = (*MemoryStore)(nil)
	_ Authenticator = (*MemoryStore)(nil)
)

// NewMemory returns an empty in-memory store with anonymous auth enabled.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		docs:          make(map[string][]Document),
		anonymousAuth: true,
		hub:           newHub(),
	}
}

// SetAnonymousAuth toggles the anonymous sign-in feature, mirroring the
// backend console switch the original error taxonomy classifies.
func (s *MemoryStore) SetAnonymousAuth(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.anonymousAuth = enabled
}

func (s *MemoryStore) SignInAnonymously(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.anonymousAuth {
		return "", ErrAnonymousAuthDisabled
	}
	if s.anonymousUID == "" {
		s.anonymousUID = uuid.NewString()
	}
	return s.anonymousUID, nil
}

func (s *MemoryStore) Add(_ context.Context, uid, collection string, ts time.Time, data json.RawMessage) (string, error) {
	id := uuid.NewString()

	s.mu.Lock()
	key := subKey(uid, collection)
	s.docs[key] = append(s.docs[key], Document{ID: id, Timestamp: ts, Data: append(json.RawMessage(nil), data...)})
	snapshot := s.snapshotLocked(key)
	s.mu.Unlock()

	s.hub.publish(uid, collection, snapshot)
	return id, nil
}

func (s *MemoryStore) List(_ context.Context, uid, collection string) ([]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(subKey(uid, collection)), nil
}

func (s *MemoryStore) Update(_ context.Context, uid, collection, id string, data json.RawMessage) error {
	s.mu.Lock()
	key := subKey(uid, collection)
	found := false
	for i := range s.docs[key] {
		if s.docs[key][i].ID == id {
			s.docs[key][i].Data = append(json.RawMessage(nil), data...)
			found = true
			break
		}
	}
	if !found {
		s.mu.Unlock()
		return ErrNotFound
	}
	snapshot := s.snapshotLocked(key)
	s.mu.Unlock()

	s.hub.publish(uid, collection, snapshot)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, uid, collection, id string) error {
	s.mu.Lock()
	key := subKey(uid, collection)
	found := false
	for i := range s.docs[key] {
		if s.docs[key][i].ID == id {
			s.docs[key] = append(s.docs[key][:i], s.docs[key][i+1:]...)
			found = true
			break
		}
	}
	if !found {
		s.mu.Unlock()
		return ErrNotFound
	}
	snapshot := s.snapshotLocked(key)
	s.mu.Unlock()

	s.hub.publish(uid, collection, snapshot)
	return nil
}

func (s *MemoryStore) DeleteAll(_ context.Context, uid, collection string) error {
	s.mu.Lock()
	key := subKey(uid, collection)
	s.docs[key] = nil
	s.mu.Unlock()

	s.hub.publish(uid, collection, nil)
	return nil
}

// Subscribe registers fn and delivers the current collection right away, so
// a change landing before the subscription attached is not lost until the
// next mutation.
func (s *MemoryStore) Subscribe(uid, collection string, fn SnapshotFunc) (func(), error) {
	cancel := s.hub.subscribe(uid, collection, fn)

	s.mu.Lock()
	snapshot := s.snapshotLocked(subKey(uid, collection))
	s.mu.Unlock()
	fn(snapshot)

	return cancel, nil
}

func (s *MemoryStore) Close() error { return nil }

// snapshotLocked copies the collection ordered by timestamp descending.
func (s *MemoryStore) snapshotLocked(key string) []Document {
	out := make([]Document, len(s.docs[key]))
	copy(out, s.docs[key])
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}
