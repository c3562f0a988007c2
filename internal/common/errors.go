// Package common defines shared constants and sentinel errors used across
// the mindshift client layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Durable local storage could not be written. Logged, never surfaced.
	ErrPersistenceWrite = errors.New("persistence write failed")

	// Stored snapshot could not be decoded or validated. Defaults are used.
	ErrMalformedPersistedData = errors.New("malformed persisted data")

	// Remote write exhausted its retry budget.
	ErrSyncWrite = errors.New("sync write failed")

	// Remote subscription was lost.
	ErrSubscriptionDropped = errors.New("subscription dropped")

	// Identity could not be established.
	ErrAuthFailure = errors.New("authentication failed")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired = errors.New("token expired")
)
