// Package snapshot stores opaque values by key in the local SQLite database.
//
// The client keeps two entries there: the persisted state snapshot and the
// session token used for silent sign-in (see common.StateSnapshotKey and
// common.SessionTokenKey). Values are written with an upsert, so a Set never
// fails because a key already exists.
package snapshot
