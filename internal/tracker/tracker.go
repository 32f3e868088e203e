// Package tracker holds the application state: a read-only local mirror of
// the backend collections, the readiness gate that defers work until the
// backend session is usable, and the interaction logic that turns form
// submissions into backend calls.
//
// Local state is mutated only by the initial bulk load and by subscription
// callbacks. User actions go to the backend first; the UI reflects them when
// the change is echoed back through the subscription.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/morkdaniel/budget-tracker/internal/core"
)

// Backend is the slice of the client facade the tracker needs.
type Backend interface {
	Ready() bool
	ReadySignal() <-chan struct{}
	UserID() string

	ListEntries(ctx context.Context) ([]core.Entry, error)
	AddEntry(ctx context.Context, draft core.Entry) (string, error)
	UpdateEntry(ctx context.Context, id string, e core.Entry) error
	DeleteEntry(ctx context.Context, id string) error
	SubscribeEntries(fn func([]core.Entry)) (func(), error)

	ListReflections(ctx context.Context) ([]core.Reflection, error)
	SaveReflections(ctx context.Context, all []core.Reflection) error
	SubscribeReflections(fn func([]core.Reflection)) (func(), error)
}

var (
	// ErrConnectionTimeout means readiness never arrived within the gate's
	// attempt budget. Terminal for the gate; the facade may still be retrying
	// authentication underneath.
	ErrConnectionTimeout = errors.New("backend connection timeout")
	// ErrConfirmationRequired means a delete was attempted without the
	// explicit user confirmation step.
	ErrConfirmationRequired = errors.New("delete requires confirmation")
	// ErrUnknownEntry means an edit referenced an id not present locally.
	ErrUnknownEntry = errors.New("unknown entry")
)

const (
	// DefaultPollInterval and DefaultMaxAttempts bound the readiness gate:
	// 100 checks spaced 100ms apart, ten seconds in total.
	DefaultPollInterval = 100 * time.Millisecond
	DefaultMaxAttempts  = 100

	// SourceLabel stamps export documents with their origin.
	SourceLabel = "budget-tracker"
)

// EntryForm carries raw form fields for a create or edit submission.
// EditingID is empty in create mode and holds the edited entry's id otherwise.
type EntryForm struct {
	Name      string
	Amount    string
	Category  string
	Date      string
	EditingID string
}

// SubmitResult reports what a submission did.
type SubmitResult struct {
	Updated bool
	ID      string
}

// Tracker wires the gate, the local mirror and the interaction logic.
type Tracker struct {
	backend      Backend
	pollInterval time.Duration
	maxAttempts  int

	mu          sync.RWMutex
	entries     []core.Entry
	reflections []core.Reflection
	uiReady     bool
	timedOut    bool
	unsubs      []func()

	events *eventHub
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithGate overrides the readiness gate's spacing and attempt budget.
func WithGate(interval time.Duration, attempts int) Option {
	return func(t *Tracker) {
		t.pollInterval = interval
		t.maxAttempts = attempts
	}
}

// New builds a Tracker over the given backend facade.
func New(b Backend, opts ...Option) *Tracker {
	t := &Tracker{
		backend:      b,
		pollInterval: DefaultPollInterval,
		maxAttempts:  DefaultMaxAttempts,
		events:       newEventHub(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Run is the readiness gate: it waits for the backend session, performs the
// one-time bulk load, attaches the live subscriptions and marks the UI ready.
// If readiness never arrives within the attempt budget it surfaces a single
// timeout message and stops; no data load is attempted.
func (t *Tracker) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for attempts := 0; ; {
		if t.backend.Ready() {
			return t.connect(ctx)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.backend.ReadySignal():
			return t.connect(ctx)
		case <-ticker.C:
			attempts++
			if attempts >= t.maxAttempts {
				t.mu.Lock()
				t.timedOut = true
				t.mu.Unlock()
				slog.ErrorContext(ctx, "Backend connection timeout",
					"attempts", t.maxAttempts, "interval", t.pollInterval)
				t.Notify("error", "Backend connection timeout. Please refresh the page.")
				return ErrConnectionTimeout
			}
		}
	}
}

// connect performs the one-time bulk load (both collections in parallel) and
// wires the subscriptions that keep the mirror fresh from then on.
func (t *Tracker) connect(ctx context.Context) error {
	var (
		entries     []core.Entry
		reflections []core.Reflection
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		entries, err = t.backend.ListEntries(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		reflections, err = t.backend.ListReflections(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		slog.ErrorContext(ctx, "Initial data load failed", "error", err)
		t.Notify("error", "Error loading data from backend")
		return fmt.Errorf("bulk load: %w", err)
	}

	t.mu.Lock()
	t.entries = entries
	t.reflections = reflections
	t.mu.Unlock()

	unsubEntries, err := t.backend.SubscribeEntries(func(latest []core.Entry) {
		t.mu.Lock()
		t.entries = latest
		t.mu.Unlock()
		t.events.broadcast(Event{Type: EventChange, Data: core.CollectionExpenses})
	})
	if err != nil {
		return fmt.Errorf("subscribe entries: %w", err)
	}
	unsubReflections, err := t.backend.SubscribeReflections(func(latest []core.Reflection) {
		t.mu.Lock()
		t.reflections = latest
		t.mu.Unlock()
		t.events.broadcast(Event{Type: EventChange, Data: core.CollectionReflections})
	})
	if err != nil {
		unsubEntries()
		return fmt.Errorf("subscribe reflections: %w", err)
	}

	t.mu.Lock()
	t.unsubs = append(t.unsubs, unsubEntries, unsubReflections)
	t.uiReady = true
	t.mu.Unlock()

	slog.InfoContext(ctx, "Backend ready, data loaded",
		"user_id", t.backend.UserID(),
		"entries", len(entries), "reflections", len(reflections))
	t.Notify("success", "Connected to backend")
	t.events.broadcast(Event{Type: EventChange, Data: core.CollectionExpenses})
	return nil
}

// Close cancels the live subscriptions. Called once at teardown.
func (t *Tracker) Close() {
	t.mu.Lock()
	unsubs := t.unsubs
	t.unsubs = nil
	t.mu.Unlock()
	for _, unsub := range unsubs {
		unsub()
	}
	t.events.close()
}

// Ready reports whether the gate has completed the bulk load.
func (t *Tracker) Ready() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.uiReady
}

// TimedOut reports whether the gate exhausted its attempt budget.
func (t *Tracker) TimedOut() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.timedOut
}

// Snapshot returns copies of the mirrored collections.
func (t *Tracker) Snapshot() ([]core.Entry, []core.Reflection) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	entries := make([]core.Entry, len(t.entries))
	copy(entries, t.entries)
	reflections := make([]core.Reflection, len(t.reflections))
	copy(reflections, t.reflections)
	return entries, reflections
}

// SubmitEntry validates the form and either creates a draft or updates the
// edited entry, depending on EditingID. Local state is never touched; the
// subscription echo reflects the change.
func (t *Tracker) SubmitEntry(ctx context.Context, f EntryForm) (SubmitResult, error) {
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return SubmitResult{}, core.ErrEmptyName
	}
	cents, err := core.ParseAmountToCents(f.Amount)
	if err != nil {
		return SubmitResult{}, err
	}
	date, err := core.ParseDate(f.Date)
	if err != nil {
		return SubmitResult{}, err
	}
	category := strings.TrimSpace(f.Category)
	if category == "" {
		category = core.DefaultCategory
	}

	if f.EditingID != "" {
		t.mu.RLock()
		var existing *core.Entry
		for i := range t.entries {
			if t.entries[i].ID == f.EditingID {
				e := t.entries[i]
				existing = &e
				break
			}
		}
		t.mu.RUnlock()
		if existing == nil {
			return SubmitResult{}, ErrUnknownEntry
		}

		updated := *existing
		updated.Name = name
		updated.Amount = core.Money{Cents: cents}
		updated.Category = category
		updated.Date = date
		updated.Timestamp = time.Now()
		if err := t.backend.UpdateEntry(ctx, f.EditingID, updated); err != nil {
			return SubmitResult{}, err
		}
		return SubmitResult{Updated: true, ID: f.EditingID}, nil
	}

	draft := core.Entry{
		Name:      name,
		Amount:    core.Money{Cents: cents},
		Category:  category,
		Date:      date,
		Timestamp: time.Now(),
	}
	id, err := t.backend.AddEntry(ctx, draft)
	if err != nil {
		return SubmitResult{}, err
	}
	return SubmitResult{ID: id}, nil
}

// DeleteEntry removes an entry after explicit confirmation.
func (t *Tracker) DeleteEntry(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return ErrConfirmationRequired
	}
	return t.backend.DeleteEntry(ctx, id)
}

// SaveReflection stores content for the current week. Any locally held
// reflection for the same week is discarded before the push, so the week
// holds at most one; the subscription echo supersedes the local edit.
func (t *Tracker) SaveReflection(ctx context.Context, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return core.ErrEmptyContent
	}

	now := time.Now()
	week := core.WeekOf(now)
	reflection := core.Reflection{Week: week, Content: content, Timestamp: now}

	t.mu.Lock()
	kept := make([]core.Reflection, 0, len(t.reflections)+1)
	for _, r := range t.reflections {
		if r.Week != week {
			kept = append(kept, r)
		}
	}
	kept = append(kept, reflection)
	t.reflections = kept
	pushed := make([]core.Reflection, len(kept))
	copy(pushed, kept)
	t.mu.Unlock()

	return t.backend.SaveReflections(ctx, pushed)
}

// CurrentReflection returns this week's reflection, if one is held locally.
func (t *Tracker) CurrentReflection(now time.Time) (core.Reflection, bool) {
	week := core.WeekOf(now)
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, r := range t.reflections {
		if r.Week == week {
			return r, true
		}
	}
	return core.Reflection{}, false
}

// Notify records a user-facing message and pushes it to watchers.
func (t *Tracker) Notify(kind, text string) {
	t.events.broadcast(Event{Type: EventNotice, Kind: kind, Data: text})
}
