// Package remotesync keeps the local store and a remote document store in
// step for one authenticated scope at a time.
//
// Received changes go through a bounded queue and are applied one at a time
// by a single loop. Local changes are pushed per document: at most one write
// per document is in flight, newer pushes coalesce into a pending slot and
// supersede the write in flight. A write that exhausts its retries is
// reported once and dropped; the local state is kept as is.
//
// Every attach bumps a generation counter. A change received under an older
// generation is discarded, so nothing from a previous identity reaches the
// store after Detach returns.
package remotesync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/mindshift/internal/client/remote"
	"github.com/dmitrijs2005/mindshift/internal/common"
	"github.com/dmitrijs2005/mindshift/internal/logging"
	"github.com/sethvargo/go-retry"
)

var (
	// ErrNotAttached is returned by Push and Fetch without a scope.
	ErrNotAttached = errors.New("sync adapter not attached")

	// ErrEmptyScope is returned by Attach for an empty identity.
	ErrEmptyScope = errors.New("empty sync scope")
)

// ApplyFunc merges one received document into local state. It is never
// called concurrently with itself and must not call back into the adapter.
type ApplyFunc func(docID string, fields remote.Fields) error

type Adapter struct {
	docs   remote.DocumentStore
	apply  ApplyFunc
	opts   Options
	logger logging.Logger

	// lifeMu serializes Attach and Detach.
	lifeMu sync.Mutex

	mu      sync.Mutex
	scope   string
	ctx     context.Context
	cancel  context.CancelFunc
	writers map[string]*docWriter
	busy    int
	busySeq uint64

	// applyMu is held for the duration of every apply. gen is only read and
	// written under it.
	applyMu sync.Mutex
	gen     uint64

	busyMu        sync.Mutex
	busyDelivered uint64

	wg sync.WaitGroup
}

type docWriter struct {
	docID    string
	pending  remote.Fields
	abort    context.CancelFunc
	inflight bool
}

func New(docs remote.DocumentStore, apply ApplyFunc, logger logging.Logger, opts Options) *Adapter {
	return &Adapter{
		docs:   docs,
		apply:  apply,
		opts:   opts.withDefaults(),
		logger: logger.With("component", "sync"),
	}
}

// Attach opens a live subscription for identity and starts applying what
// it delivers. An existing attachment is detached first.
func (a *Adapter) Attach(identity string) error {
	if identity == "" {
		return ErrEmptyScope
	}

	a.lifeMu.Lock()
	defer a.lifeMu.Unlock()

	a.detach()

	ctx, cancel := context.WithCancel(context.Background())

	a.mu.Lock()
	a.applyMu.Lock()
	a.gen++
	gen := a.gen
	a.applyMu.Unlock()

	a.scope = identity
	a.ctx = ctx
	a.cancel = cancel
	a.writers = map[string]*docWriter{}
	a.mu.Unlock()

	queue := make(chan remote.Change, a.opts.QueueSize)
	a.wg.Add(2)
	go a.subscribe(ctx, identity, queue)
	go a.process(ctx, gen, queue)

	a.logger.Info(ctx, "attached", "scope", identity, "generation", gen)
	return nil
}

// Detach stops the subscription and every writer and waits for them to
// exit. A change being applied when Detach is called finishes first; none
// is applied afterwards. Pending writes are dropped. Calling Detach when not
// attached does nothing.
func (a *Adapter) Detach() {
	a.lifeMu.Lock()
	defer a.lifeMu.Unlock()
	a.detach()
}

func (a *Adapter) detach() {
	a.mu.Lock()
	if a.cancel == nil {
		a.mu.Unlock()
		return
	}
	cancel, scope := a.cancel, a.scope
	a.cancel, a.ctx, a.scope, a.writers = nil, nil, "", nil

	a.applyMu.Lock()
	a.gen++
	a.applyMu.Unlock()
	a.mu.Unlock()

	cancel()
	a.wg.Wait()

	a.logger.Info(context.Background(), "detached", "scope", scope)
}

// Scope returns the attached identity or "".
func (a *Adapter) Scope() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.scope
}

// Push schedules a partial write of docID. It returns at once; delivery
// failures are reported through Options.OnFailure.
func (a *Adapter) Push(docID string, fields remote.Fields) error {
	if len(fields) == 0 {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel == nil {
		return ErrNotAttached
	}

	w, ok := a.writers[docID]
	if !ok {
		w = &docWriter{docID: docID}
		a.writers[docID] = w
	}
	w.pending = remote.Merge(w.pending, fields)

	if w.inflight {
		// Superseded: the writer folds the aborted fields under the pending
		// ones and starts over.
		if w.abort != nil {
			w.abort()
		}
		return nil
	}

	w.inflight = true
	a.setBusyLocked(+1)
	a.wg.Add(1)
	go a.runWriter(a.ctx, a.scope, w)
	return nil
}

// Fetch reads docID of the attached scope.
func (a *Adapter) Fetch(ctx context.Context, docID string) (remote.Fields, error) {
	scope := a.Scope()
	if scope == "" {
		return nil, ErrNotAttached
	}
	return a.docs.Read(ctx, scope, docID)
}

func (a *Adapter) runWriter(ctx context.Context, scope string, w *docWriter) {
	defer a.wg.Done()

	for {
		a.mu.Lock()
		if len(w.pending) == 0 || ctx.Err() != nil {
			w.inflight = false
			w.pending = nil
			a.setBusyLocked(-1)
			a.mu.Unlock()
			a.deliverBusy()
			return
		}
		fields := w.pending
		w.pending = nil
		wctx, abort := context.WithCancel(ctx)
		w.abort = abort
		a.mu.Unlock()
		a.deliverBusy()

		attempts, err := a.write(wctx, scope, w.docID, fields)
		superseded := err != nil && wctx.Err() != nil && ctx.Err() == nil
		abort()

		a.mu.Lock()
		w.abort = nil
		if superseded {
			w.pending = remote.Merge(fields, w.pending)
		}
		a.mu.Unlock()

		switch {
		case superseded:
			a.logger.Debug(ctx, "write superseded", "doc", w.docID, "attempts", attempts)
		case err != nil && ctx.Err() == nil:
			failure := SyncFailure{
				Kind:     FailureWrite,
				Scope:    scope,
				DocID:    w.docID,
				Attempts: attempts,
				Err:      fmt.Errorf("%w: %w", common.ErrSyncWrite, err),
			}
			a.logger.Warn(ctx, "write failed", "doc", w.docID, "attempts", attempts, "error", err)
			a.notify(failure)
		}
	}
}

func (a *Adapter) write(ctx context.Context, scope, docID string, fields remote.Fields) (int, error) {
	attempts := 0
	b := retry.WithMaxRetries(uint64(a.opts.MaxAttempts-1), a.opts.backoff())
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempts++
		if err := a.docs.Write(ctx, scope, docID, fields); err != nil {
			if ctx.Err() != nil {
				return err
			}
			a.logger.Debug(ctx, "write attempt failed", "doc", docID, "attempt", attempts, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	return attempts, err
}

func (a *Adapter) subscribe(ctx context.Context, scope string, queue chan<- remote.Change) {
	defer a.wg.Done()

	failures := 0
	b := a.opts.backoff()
	failed := func(err error) {
		failures++
		if failures == a.opts.ResubscribeAttempts {
			a.notify(SyncFailure{
				Kind:     FailureSubscription,
				Scope:    scope,
				Attempts: failures,
				Err:      fmt.Errorf("%w: %w", common.ErrSubscriptionDropped, err),
			})
		}
	}

	for {
		ch, err := a.docs.Watch(ctx, scope)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			a.logger.Warn(ctx, "subscribe failed", "scope", scope, "attempt", failures+1, "error", err)
			failed(err)
			if !sleep(ctx, b) {
				return
			}
			continue
		}
		if failures > 0 {
			a.logger.Info(ctx, "resubscribed", "scope", scope, "after", failures)
		}

		opened := time.Now()
		if !forward(ctx, ch, queue) {
			return
		}
		a.logger.Warn(ctx, "subscription lost", "scope", scope, "error", common.ErrSubscriptionDropped)

		// The streak only ends once a subscription has held.
		if time.Since(opened) >= a.opts.StableAfter {
			failures = 0
			b = a.opts.backoff()
		} else {
			failed(errors.New("subscription closed early"))
		}
		if !sleep(ctx, b) {
			return
		}
	}
}

// forward copies changes into queue until ch closes (true) or ctx is done
// (false).
func forward(ctx context.Context, ch <-chan remote.Change, queue chan<- remote.Change) bool {
	for {
		select {
		case c, ok := <-ch:
			if !ok {
				return ctx.Err() == nil
			}
			select {
			case queue <- c:
			case <-ctx.Done():
				return false
			}
		case <-ctx.Done():
			return false
		}
	}
}

func (a *Adapter) process(ctx context.Context, gen uint64, queue <-chan remote.Change) {
	defer a.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-queue:
			a.applyChange(ctx, gen, c)
		}
	}
}

func (a *Adapter) applyChange(ctx context.Context, gen uint64, c remote.Change) {
	a.applyMu.Lock()
	defer a.applyMu.Unlock()

	if a.gen != gen {
		return
	}
	if err := a.apply(c.DocID, c.Fields); err != nil {
		a.logger.Warn(ctx, "remote change rejected", "doc", c.DocID, "error", err)
	}
}

func (a *Adapter) notify(f SyncFailure) {
	if a.opts.OnFailure != nil {
		a.opts.OnFailure(f)
	}
}

func (a *Adapter) setBusyLocked(delta int) {
	before := a.busy > 0
	a.busy += delta
	if (a.busy > 0) != before {
		a.busySeq++
	}
}

// deliverBusy reports the latest busy state unless a newer report already
// went out.
func (a *Adapter) deliverBusy() {
	if a.opts.OnBusy == nil {
		return
	}
	a.mu.Lock()
	seq, busy := a.busySeq, a.busy > 0
	a.mu.Unlock()

	a.busyMu.Lock()
	defer a.busyMu.Unlock()
	if seq <= a.busyDelivered {
		return
	}
	a.busyDelivered = seq
	a.opts.OnBusy(busy)
}

func sleep(ctx context.Context, b retry.Backoff) bool {
	d, _ := b.Next()
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
