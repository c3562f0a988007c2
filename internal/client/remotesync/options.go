package remotesync

import (
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
)

// Options tunes the adapter. Zero fields take the DefaultOptions value.
type Options struct {
	// QueueSize bounds the number of received changes waiting to be applied.
	QueueSize int

	// MaxAttempts is the number of tries of one write before it is reported.
	MaxAttempts int

	BackoffBase time.Duration
	BackoffMax  time.Duration

	// ResubscribeAttempts is the number of consecutive failed subscription
	// attempts after which a failure is reported. Retrying continues.
	ResubscribeAttempts int

	// StableAfter is how long a subscription must stay open to end a failure
	// streak. One that drops sooner counts as a failed attempt.
	StableAfter time.Duration

	// OnFailure receives every surfaced failure. It is called from adapter
	// goroutines and must not block for long.
	OnFailure func(SyncFailure)

	// OnBusy reports whether any document write is pending or in flight.
	OnBusy func(busy bool)
}

func DefaultOptions() Options {
	return Options{
		QueueSize:           64,
		MaxAttempts:         5,
		BackoffBase:         200 * time.Millisecond,
		BackoffMax:          10 * time.Second,
		ResubscribeAttempts: 5,
		StableAfter:         10 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.QueueSize <= 0 {
		o.QueueSize = d.QueueSize
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = d.MaxAttempts
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = d.BackoffBase
	}
	if o.BackoffMax < o.BackoffBase {
		o.BackoffMax = max(d.BackoffMax, o.BackoffBase)
	}
	if o.ResubscribeAttempts <= 0 {
		o.ResubscribeAttempts = d.ResubscribeAttempts
	}
	if o.StableAfter <= 0 {
		o.StableAfter = d.StableAfter
	}
	return o
}

func (o Options) backoff() retry.Backoff {
	return retry.WithCappedDuration(o.BackoffMax, retry.NewExponential(o.BackoffBase))
}

// FailureKind tells write failures from subscription failures.
type FailureKind int

const (
	FailureWrite FailureKind = iota + 1
	FailureSubscription
)

func (k FailureKind) String() string {
	switch k {
	case FailureWrite:
		return "write"
	case FailureSubscription:
		return "subscription"
	}
	return "unknown"
}

// SyncFailure is surfaced once per write that exhausted its retries and once
// per streak of failed resubscriptions. Local state is never rolled back.
type SyncFailure struct {
	Kind     FailureKind
	Scope    string
	DocID    string
	Attempts int
	Err      error
}

func (f SyncFailure) Error() string {
	if f.DocID == "" {
		return fmt.Sprintf("sync %s failed for %s after %d attempts: %v", f.Kind, f.Scope, f.Attempts, f.Err)
	}
	return fmt.Sprintf("sync %s of %s failed for %s after %d attempts: %v", f.Kind, f.DocID, f.Scope, f.Attempts, f.Err)
}

func (f SyncFailure) Unwrap() error { return f.Err }
