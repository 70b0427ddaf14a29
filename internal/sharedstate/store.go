// Package sharedstate provides the flat key-value store that editor sessions
// coordinate through. Values are whole serialized JSON documents read and
// written as a unit; read-modify-write races between sessions are tolerated by
// the callers (TTL pruning self-heals stale claims).
package sharedstate

import "context"

// Store is the shared state abstraction. Get reports whether the key existed.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
