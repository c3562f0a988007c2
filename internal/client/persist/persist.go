// Package persist mirrors the durable subset of the store to local storage.
//
// Writer is registered as a store observer: on every committed mutation that
// changes the persisted subset it schedules a write on a background goroutine
// and returns immediately. Only the newest pending payload is kept, so a burst
// of mutations results in at most one queued write. Failures are logged and
// otherwise ignored; the in-memory store stays authoritative.
package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/mindshift/internal/client/repositories/snapshot"
	"github.com/dmitrijs2005/mindshift/internal/client/store"
	"github.com/dmitrijs2005/mindshift/internal/common"
	"github.com/dmitrijs2005/mindshift/internal/logging"
)

const writeTimeout = 5 * time.Second

// ErrClosed is returned by Flush after Close.
var ErrClosed = errors.New("persist writer closed")

// Observable is the part of *store.Store the writer subscribes to.
type Observable interface {
	OnChange(store.Listener) (unsubscribe func())
}

type Writer struct {
	repo   snapshot.Repository
	key    string
	logger logging.Logger

	mu        sync.Mutex
	lastRev   uint64
	last      []byte
	pending   []byte
	scheduled uint64
	written   uint64
	progress  chan struct{}
	closed    bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

// NewWriter starts the background writer. Call Close to stop it.
func NewWriter(repo snapshot.Repository, logger logging.Logger) *Writer {
	w := &Writer{
		repo:     repo,
		key:      common.StateSnapshotKey,
		logger:   logger.With("component", "persist"),
		progress: make(chan struct{}),
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.run()
	return w
}

// Register subscribes the writer to s and returns the unsubscribe function.
// The current snapshot should be passed to Seed first so that an unchanged
// startup state is not rewritten.
func (w *Writer) Register(s Observable) (unsubscribe func()) {
	return s.OnChange(w.Observe)
}

// Seed records st as already durable.
func (w *Writer) Seed(st store.State) {
	payload, err := json.Marshal(st.PersistedSubset())
	if err != nil {
		return
	}
	w.mu.Lock()
	w.last = payload
	w.lastRev = st.Revision
	w.mu.Unlock()
}

// Observe schedules a durable write of st's persisted subset if it differs
// from the last scheduled one. It never blocks on I/O.
func (w *Writer) Observe(st store.State) {
	payload, err := json.Marshal(st.PersistedSubset())
	if err != nil {
		w.logger.Error(context.Background(), "encode snapshot", "error", err)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || (st.Revision != 0 && st.Revision < w.lastRev) {
		return
	}
	w.lastRev = st.Revision
	if bytes.Equal(payload, w.last) {
		return
	}
	w.last = payload
	w.pending = payload
	w.scheduled++

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Flush waits until every write scheduled before the call has been attempted.
func (w *Writer) Flush(ctx context.Context) error {
	for {
		w.mu.Lock()
		if w.closed && w.written < w.scheduled {
			w.mu.Unlock()
			return ErrClosed
		}
		if w.written >= w.scheduled {
			w.mu.Unlock()
			return nil
		}
		progress := w.progress
		w.mu.Unlock()

		select {
		case <-progress:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close drains the pending write and stops the background goroutine.
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.stop)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Writer) run() {
	defer close(w.done)
	for {
		select {
		case <-w.wake:
			w.writePending()
		case <-w.stop:
			w.writePending()
			return
		}
	}
}

func (w *Writer) writePending() {
	w.mu.Lock()
	payload, seq := w.pending, w.scheduled
	w.pending = nil
	w.mu.Unlock()

	if payload != nil {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := w.repo.Set(ctx, w.key, payload); err != nil {
			w.logger.Warn(ctx, "state not persisted",
				"error", fmt.Errorf("%w: %w", common.ErrPersistenceWrite, err))
		}
		cancel()
	}

	w.mu.Lock()
	if seq > w.written {
		w.written = seq
	}
	close(w.progress)
	w.progress = make(chan struct{})
	w.mu.Unlock()
}

// Load rehydrates the startup state from repo. Stored fields win over
// defaults and defaults fill anything the stored payload lacks. A missing,
// unreadable or malformed payload yields the default state; the problem is
// logged but never returned.
func Load(ctx context.Context, repo snapshot.Repository, logger logging.Logger) store.State {
	st := store.DefaultState()

	raw, err := repo.Get(ctx, common.StateSnapshotKey)
	if err != nil {
		logger.Warn(ctx, "read persisted state", "error", err)
		return st
	}
	if raw == nil {
		return st
	}

	p, err := decode(raw)
	if err != nil {
		logger.Debug(ctx, "ignoring persisted state", "error", err)
		return st
	}

	st.User = p.User
	st.Settings = p.Settings
	return st
}

func decode(raw []byte) (store.Persisted, error) {
	p := store.DefaultState().PersistedSubset()
	if err := json.Unmarshal(raw, &p); err != nil {
		return store.Persisted{}, fmt.Errorf("%w: %w", common.ErrMalformedPersistedData, err)
	}
	if p.User != nil {
		if err := p.User.Validate(); err != nil {
			return store.Persisted{}, fmt.Errorf("%w: %w", common.ErrMalformedPersistedData, err)
		}
	}
	if err := p.Settings.Validate(); err != nil {
		return store.Persisted{}, fmt.Errorf("%w: %w", common.ErrMalformedPersistedData, err)
	}
	return p, nil
}
