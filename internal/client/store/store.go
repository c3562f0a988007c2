// Package store holds the in-memory client state container.
//
// A Store is constructed explicitly by the composition root and passed to its
// consumers. Every mutation goes through Set (or Reset), which merges the
// patch under a single lock and then notifies listeners synchronously with
// the new snapshot. Durable persistence and remote sync are observers
// registered through OnChange; the store itself performs no I/O.
package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/mindshift/internal/client/models"
)

// Listener receives the full snapshot after each committed mutation.
// Listeners must not call Set synchronously.
type Listener func(State)

type Store struct {
	mu        sync.Mutex
	state     State
	listeners map[uint64]Listener
	nextID    uint64
	now       func() time.Time
}

type Option func(*Store)

// WithClock overrides the time source used to stamp new records.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New constructs a store starting from initial, typically the result of
// persist.Load.
func New(initial State, opts ...Option) *Store {
	s := &Store{
		state:     initial.clone(),
		listeners: map[uint64]Listener{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the current snapshot. It never blocks on I/O.
func (s *Store) Get() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// OnChange registers l and returns a function that removes it.
func (s *Store) OnChange(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// Set merges p into the state. Either the whole patch commits or, on a
// validation error, nothing does. An empty patch commits nothing and fires
// no listeners.
func (s *Store) Set(p Patch) (State, error) {
	if p.IsEmpty() {
		return s.Get(), nil
	}

	s.mu.Lock()
	next, err := apply(s.state, p, s.now())
	if err != nil {
		s.mu.Unlock()
		return State{}, err
	}
	next.Revision = s.state.Revision + 1
	s.state = next
	snap, listeners := s.snapshotLocked()
	s.mu.Unlock()

	notify(listeners, snap)
	return snap, nil
}

// Reset clears every non-default field: the user is dropped, settings return
// to defaults, records are emptied and transient flags cleared.
func (s *Store) Reset() State {
	s.mu.Lock()
	next := DefaultState()
	next.Revision = s.state.Revision + 1
	s.state = next
	snap, listeners := s.snapshotLocked()
	s.mu.Unlock()

	notify(listeners, snap)
	return snap
}

func (s *Store) snapshotLocked() (State, []Listener) {
	listeners := make([]Listener, 0, len(s.listeners))
	for id := uint64(0); id < s.nextID; id++ {
		if l, ok := s.listeners[id]; ok {
			listeners = append(listeners, l)
		}
	}
	return s.state.clone(), listeners
}

func notify(listeners []Listener, snap State) {
	for _, l := range listeners {
		l(snap.clone())
	}
}

func apply(cur State, p Patch, now time.Time) (State, error) {
	next := cur.clone()

	if p.ClearUser {
		next.User = nil
	}
	if p.User != nil {
		var (
			u   models.UserProfile
			err error
		)
		if next.User == nil {
			u, err = p.User.Create(now)
		} else {
			u, err = p.User.Apply(*next.User)
		}
		if err != nil {
			return cur, fmt.Errorf("user: %w", err)
		}
		next.User = &u
	}

	if p.Settings != nil {
		settings, err := p.Settings.Apply(next.Settings)
		if err != nil {
			return cur, fmt.Errorf("settings: %w", err)
		}
		next.Settings = settings
	}

	for id, gp := range p.Goals {
		if gp.IsDelete() {
			delete(next.Goals, id)
			continue
		}
		g, ok := next.Goals[id]
		if !ok {
			g = models.Goal{ID: id, CreatedAt: now.UTC()}
		}
		g, err := gp.Apply(g)
		if err != nil {
			return cur, fmt.Errorf("goal %s: %w", id, err)
		}
		next.Goals[id] = g
	}

	for id, jp := range p.Journal {
		if jp.IsDelete() {
			delete(next.Journal, id)
			continue
		}
		j, ok := next.Journal[id]
		if !ok {
			j = models.JournalEntry{ID: id, CreatedAt: now.UTC()}
		}
		j, err := jp.Apply(j)
		if err != nil {
			return cur, fmt.Errorf("journal %s: %w", id, err)
		}
		next.Journal[id] = j
	}

	if p.Loading != nil {
		next.Loading = *p.Loading
	}
	if p.Syncing != nil {
		next.Syncing = *p.Syncing
	}

	return next, nil
}
