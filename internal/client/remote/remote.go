// Package remote defines the document-store contract the sync adapter talks
// to, and the helpers that map model patches to and from flat field sets.
//
// A document is identified by a scope (the authenticated identity) and a
// document id. Writes are partial: the given fields replace the stored ones
// and every other field is kept. Grouped fields travel as dotted paths
// ("notifications.dailyReminder") so a backend that merges one level deep
// still merges settings field by field.
package remote

import (
	"context"

	"github.com/dmitrijs2005/mindshift/internal/common"
)

// ErrNotFound is returned by Read for a document that was never written.
var ErrNotFound = common.ErrNotFound

// Fields is a flat set of document fields keyed by dotted path.
type Fields map[string]any

// Clone returns a shallow copy of f.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Merge returns base with every field of top written over it. Neither input
// is modified.
func Merge(base, top Fields) Fields {
	out := make(Fields, len(base)+len(top))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range top {
		out[k] = v
	}
	return out
}

// Change is one document delivered by a watch: either its full contents, as
// part of the initial snapshot, or the fields of a single write.
type Change struct {
	DocID  string
	Fields Fields
}

// DocumentStore is a remote, scoped document database.
type DocumentStore interface {
	// Write merges fields into the document, creating it if needed.
	Write(ctx context.Context, scope, docID string, fields Fields) error

	// Read returns every field of the document or ErrNotFound.
	Read(ctx context.Context, scope, docID string) (Fields, error)

	// Watch emits the current documents of scope followed by every later
	// write, in commit order. The channel is closed when ctx is done or the
	// subscription is lost.
	Watch(ctx context.Context, scope string) (<-chan Change, error)

	Close() error
}
