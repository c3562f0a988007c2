// Package memory is an in-process remote.DocumentStore. The CLI uses it as
// its offline backend and tests use its failure injection.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/mindshift/internal/client/remote"
)

// ErrInjected is the default error of FailWrites and FailWatches.
var ErrInjected = errors.New("injected failure")

// ErrClosed is returned by every call after Close.
var ErrClosed = errors.New("memory document store closed")

// WriteHook runs before a write is applied. A non-nil error fails the write.
type WriteHook func(ctx context.Context, scope, docID string, fields remote.Fields) error

type Store struct {
	mu       sync.Mutex
	docs     map[string]map[string]remote.Fields
	watchers map[*watcher]struct{}
	closed   bool

	failWrites  int
	failWatches int
	failErr     error
	hook        WriteHook
	writes      int
}

var _ remote.DocumentStore = (*Store)(nil)

func New() *Store {
	return &Store{
		docs:     map[string]map[string]remote.Fields{},
		watchers: map[*watcher]struct{}{},
	}
}

func (s *Store) Write(ctx context.Context, scope, docID string, fields remote.Fields) error {
	s.mu.Lock()
	hook := s.hook
	s.mu.Unlock()
	if hook != nil {
		if err := hook(ctx, scope, docID, fields); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.writes++
	if s.failWrites > 0 {
		s.failWrites--
		return s.failErr
	}

	scoped, ok := s.docs[scope]
	if !ok {
		scoped = map[string]remote.Fields{}
		s.docs[scope] = scoped
	}
	scoped[docID] = remote.Merge(scoped[docID], fields)

	change := remote.Change{DocID: docID, Fields: fields.Clone()}
	for w := range s.watchers {
		if w.scope == scope {
			w.push(change)
		}
	}
	return nil
}

func (s *Store) Read(ctx context.Context, scope, docID string) (remote.Fields, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	doc, ok := s.docs[scope][docID]
	if !ok {
		return nil, remote.ErrNotFound
	}
	return doc.Clone(), nil
}

func (s *Store) Watch(ctx context.Context, scope string) (<-chan remote.Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if s.failWatches > 0 {
		s.failWatches--
		return nil, s.failErr
	}

	w := newWatcher(scope)
	for id, doc := range s.docs[scope] {
		w.push(remote.Change{DocID: id, Fields: doc.Clone()})
	}
	s.watchers[w] = struct{}{}

	go func() {
		w.run(ctx)
		s.mu.Lock()
		delete(s.watchers, w)
		s.mu.Unlock()
	}()
	return w.out, nil
}

// Close drops every watcher. Later calls fail with ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for w := range s.watchers {
		w.drop()
	}
	return nil
}

// FailWrites makes the next n writes fail with err (ErrInjected if nil).
func (s *Store) FailWrites(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWrites = n
	s.failErr = orInjected(err)
}

// FailWatches makes the next n Watch calls fail with err (ErrInjected if nil).
func (s *Store) FailWatches(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWatches = n
	s.failErr = orInjected(err)
}

// SetWriteHook installs h; nil removes it.
func (s *Store) SetWriteHook(h WriteHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = h
}

// DropWatchers closes every open watch channel, as a lost connection would.
func (s *Store) DropWatchers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for w := range s.watchers {
		w.drop()
	}
}

// Writes counts attempted writes that reached the store, failed ones included.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Watchers returns the number of live subscriptions.
func (s *Store) Watchers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watchers)
}

func orInjected(err error) error {
	if err == nil {
		return ErrInjected
	}
	return err
}

// watcher buffers changes without bound so that Write never blocks on a slow
// reader, and forwards them in order.
type watcher struct {
	scope string
	out   chan remote.Change

	mu      sync.Mutex
	queue   []remote.Change
	signal  chan struct{}
	dropped chan struct{}
	once    sync.Once
}

func newWatcher(scope string) *watcher {
	return &watcher{
		scope:   scope,
		out:     make(chan remote.Change),
		signal:  make(chan struct{}, 1),
		dropped: make(chan struct{}),
	}
}

func (w *watcher) push(c remote.Change) {
	w.mu.Lock()
	w.queue = append(w.queue, c)
	w.mu.Unlock()
	select {
	case w.signal <- struct{}{}:
	default:
	}
}

func (w *watcher) drop() {
	w.once.Do(func() { close(w.dropped) })
}

func (w *watcher) run(ctx context.Context) {
	defer close(w.out)
	for {
		w.mu.Lock()
		var (
			next remote.Change
			ok   bool
		)
		if len(w.queue) > 0 {
			next, ok = w.queue[0], true
			w.queue = w.queue[1:]
		}
		w.mu.Unlock()

		if !ok {
			select {
			case <-w.signal:
				continue
			case <-w.dropped:
				return
			case <-ctx.Done():
				return
			}
		}

		select {
		case w.out <- next:
		case <-w.dropped:
			return
		case <-ctx.Done():
			return
		}
	}
}
