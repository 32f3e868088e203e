// Package backend is the client facade over the document store. It owns the
// anonymous-auth lifecycle and the tri-state readiness protocol; every data
// operation fails fast until authentication has completed.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/morkdaniel/budget-tracker/internal/core"
	"github.com/morkdaniel/budget-tracker/internal/docstore"
)

// State is the facade's readiness tri-state. Transitions are driven solely by
// authentication outcomes, never by callers.
type State int32

const (
	StateUninitialized State = iota
	StateAuthenticating
	StateReady
)

func (s State) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

// DefaultRetryDelay is the fixed pause before re-running the whole
// authentication flow after a failure. There is no backoff growth and no
// attempt cap; authentication retries until it succeeds.
const DefaultRetryDelay = 5 * time.Second

// ErrNotReady is returned by every data operation attempted before
// authentication completes. Callers surface it and do not retry.
var ErrNotReady = errors.New("backend not ready")

// NotifyFunc receives user-facing status messages. kind is one of
// "success", "error", "info".
type NotifyFunc func(kind, text string)

// ChangePublisher mirrors mutations onto an external event bus so companion
// processes can react. Implementations must be safe to call concurrently.
type ChangePublisher interface {
	PublishChange(ctx context.Context, userID, collection, op, docID string) error
}

// Client wraps the document store with the authenticated-session lifecycle.
type Client struct {
	store      docstore.Store
	auth       docstore.Authenticator
	bus        ChangePublisher // optional
	notify     NotifyFunc      // optional
	retryDelay time.Duration

	mu         sync.Mutex
	state      State
	uid        string
	readyCh    chan struct{}
	retryTimer *time.Timer
	closed     bool
}

// Option configures a Client.
type Option func(*Client)

// WithRetryDelay overrides the fixed auth retry delay (tests use short delays).
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.retryDelay = d }
}

// WithNotify registers a sink for user-facing status messages.
func WithNotify(fn NotifyFunc) Option {
	return func(c *Client) { c.notify = fn }
}

// WithChangePublisher mirrors successful mutations onto bus.
func WithChangePublisher(bus ChangePublisher) Option {
	return func(c *Client) { c.bus = bus }
}

// New builds a facade over store and auth. Call Authenticate to start the
// session; until it succeeds every data operation returns ErrNotReady.
func New(store docstore.Store, auth docstore.Authenticator, opts ...Option) *Client {
	c := &Client{
		store:      store,
		auth:       auth,
		retryDelay: DefaultRetryDelay,
		readyCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Authenticate runs the anonymous sign-in flow. It is idempotent: calling it
// while ready is a no-op. On failure the error is classified, surfaced, and
// the whole flow is re-scheduled once after the fixed retry delay.
func (c *Client) Authenticate(ctx context.Context) {
	c.mu.Lock()
	if c.closed || c.state == StateReady {
		c.mu.Unlock()
		return
	}
	c.state = StateAuthenticating
	c.mu.Unlock()

	uid, err := c.auth.SignInAnonymously(ctx)
	if err != nil {
		c.handleAuthError(ctx, err)
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.uid = uid
	if c.state != StateReady {
		c.state = StateReady
		close(c.readyCh)
	}
	c.mu.Unlock()

	slog.InfoContext(ctx, "Authenticated with backend", "user_id", uid)
}

// handleAuthError maps the failure to a user-facing message and schedules
// exactly one retry of the whole authentication flow.
func (c *Client) handleAuthError(ctx context.Context, err error) {
	var nerr net.Error
	var msg string
	switch {
	case errors.Is(err, docstore.ErrAnonymousAuthDisabled):
		msg = "Backend connection failed. Anonymous sign-in is not enabled on the backend."
	case errors.As(err, &nerr):
		msg = "Backend connection failed. Network error, check your connection."
	default:
		msg = "Backend connection failed. Please try again."
	}
	slog.ErrorContext(ctx, "Authentication failed", "error", err, "retry_in", c.retryDelay)
	c.say("error", msg)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.state = StateUninitialized
	c.retryTimer = time.AfterFunc(c.retryDelay, func() {
		c.Authenticate(context.Background())
	})
}

// Ready reports whether authentication has completed.
func (c *Client) Ready() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateReady
}

// State returns the current readiness state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ReadySignal is closed once when authentication succeeds; UserID carries the
// authenticated principal afterwards. Listeners use it instead of polling.
func (c *Client) ReadySignal() <-chan struct{} {
	return c.readyCh
}

// UserID returns the authenticated anonymous uid, or "" before readiness.
func (c *Client) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uid
}

// Close cancels any pending auth retry. Subscriptions are cancelled by their
// own unsubscribe functions.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.retryTimer != nil {
		c.retryTimer.Stop()
	}
}

func (c *Client) say(kind, text string) {
	if c.notify != nil {
		c.notify(kind, text)
	}
}

func (c *Client) session() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReady {
		return "", ErrNotReady
	}
	return c.uid, nil
}

// publish mirrors a mutation onto the event bus. Failures are logged and
// never fail the operation; the local write already succeeded.
func (c *Client) publish(ctx context.Context, uid, collection, op, docID string) {
	if c.bus == nil {
		return
	}
	if err := c.bus.PublishChange(ctx, uid, collection, op, docID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish change event",
			"collection", collection, "op", op, "doc_id", docID, "error", err)
	}
}

// ListEntries returns all entries ordered by timestamp descending.
func (c *Client) ListEntries(ctx context.Context) ([]core.Entry, error) {
	uid, err := c.session()
	if err != nil {
		return nil, err
	}
	docs, err := c.store.List(ctx, uid, core.CollectionExpenses)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return decodeEntries(ctx, docs), nil
}

// AddEntry stores a pending-write draft and returns the assigned id. The
// caller's local state is untouched; the subscription echo carries the new
// entry back.
func (c *Client) AddEntry(ctx context.Context, draft core.Entry) (string, error) {
	uid, err := c.session()
	if err != nil {
		return "", err
	}
	if draft.ID != "" {
		return "", fmt.Errorf("draft already has id %q", draft.ID)
	}
	if err := draft.Validate(); err != nil {
		return "", err
	}

	data, err := json.Marshal(draft)
	if err != nil {
		return "", fmt.Errorf("encode entry: %w", err)
	}
	id, err := c.store.Add(ctx, uid, core.CollectionExpenses, draft.Timestamp, data)
	if err != nil {
		return "", fmt.Errorf("add entry: %w", err)
	}
	c.publish(ctx, uid, core.CollectionExpenses, "create", id)
	return id, nil
}

// UpdateEntry replaces the fields of an existing entry.
func (c *Client) UpdateEntry(ctx context.Context, id string, e core.Entry) error {
	uid, err := c.session()
	if err != nil {
		return err
	}
	if err := e.Validate(); err != nil {
		return err
	}

	e.ID = "" // the id lives on the document, not in its data
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	if err := c.store.Update(ctx, uid, core.CollectionExpenses, id, data); err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	c.publish(ctx, uid, core.CollectionExpenses, "update", id)
	return nil
}

// DeleteEntry removes an entry by id.
func (c *Client) DeleteEntry(ctx context.Context, id string) error {
	uid, err := c.session()
	if err != nil {
		return err
	}
	if err := c.store.Delete(ctx, uid, core.CollectionExpenses, id); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	c.publish(ctx, uid, core.CollectionExpenses, "delete", id)
	return nil
}

// SubscribeEntries delivers the full entry collection, timestamp-descending,
// on every change. The returned function cancels the subscription.
func (c *Client) SubscribeEntries(fn func([]core.Entry)) (func(), error) {
	uid, err := c.session()
	if err != nil {
		return nil, err
	}
	return c.store.Subscribe(uid, core.CollectionExpenses, func(docs []docstore.Document) {
		fn(decodeEntries(context.Background(), docs))
	})
}

// ListReflections returns all reflections ordered by timestamp descending.
func (c *Client) ListReflections(ctx context.Context) ([]core.Reflection, error) {
	uid, err := c.session()
	if err != nil {
		return nil, err
	}
	docs, err := c.store.List(ctx, uid, core.CollectionReflections)
	if err != nil {
		return nil, fmt.Errorf("list reflections: %w", err)
	}
	return decodeReflections(ctx, docs), nil
}

// SaveReflections replaces the stored reflection set wholesale: the original
// client clears the collection and re-adds what it holds locally.
func (c *Client) SaveReflections(ctx context.Context, all []core.Reflection) error {
	uid, err := c.session()
	if err != nil {
		return err
	}
	if err := c.store.DeleteAll(ctx, uid, core.CollectionReflections); err != nil {
		return fmt.Errorf("clear reflections: %w", err)
	}
	for _, r := range all {
		r.ID = ""
		data, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode reflection: %w", err)
		}
		if _, err := c.store.Add(ctx, uid, core.CollectionReflections, r.Timestamp, data); err != nil {
			return fmt.Errorf("add reflection: %w", err)
		}
	}
	c.publish(ctx, uid, core.CollectionReflections, "save", "")
	return nil
}

// SubscribeReflections delivers the full reflection collection on every change.
func (c *Client) SubscribeReflections(fn func([]core.Reflection)) (func(), error) {
	uid, err := c.session()
	if err != nil {
		return nil, err
	}
	return c.store.Subscribe(uid, core.CollectionReflections, func(docs []docstore.Document) {
		fn(decodeReflections(context.Background(), docs))
	})
}

func decodeEntries(ctx context.Context, docs []docstore.Document) []core.Entry {
	entries := make([]core.Entry, 0, len(docs))
	for _, doc := range docs {
		var e core.Entry
		if err := json.Unmarshal(doc.Data, &e); err != nil {
			slog.WarnContext(ctx, "Skipping undecodable entry document", "doc_id", doc.ID, "error", err)
			continue
		}
		e.ID = doc.ID
		if e.Timestamp.IsZero() {
			e.Timestamp = doc.Timestamp
		}
		entries = append(entries, e)
	}
	return entries
}

func decodeReflections(ctx context.Context, docs []docstore.Document) []core.Reflection {
	reflections := make([]core.Reflection, 0, len(docs))
	for _, doc := range docs {
		var r core.Reflection
		if err := json.Unmarshal(doc.Data, &r); err != nil {
			slog.WarnContext(ctx, "Skipping undecodable reflection document", "doc_id", doc.ID, "error", err)
			continue
		}
		r.ID = doc.ID
		if r.Timestamp.IsZero() {
			r.Timestamp = doc.Timestamp
		}
		reflections = append(reflections, r)
	}
	return reflections
}
