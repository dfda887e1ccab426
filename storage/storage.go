package storage

import "context"

// Initer is optionally implemented by T to initialize zero-value fields
// (e.g., nil maps) after deserialization or when the backing store is empty.
type Initer interface {
	Init()
}

// Store provides locked read/modify/write access to a document store.
// T is the top-level document managed by the store.
//
// Update is the engine's single-document atomic conditional update: the
// closure observes the current document under the store lock, checks its
// preconditions, and either mutates it or aborts by returning an error.
// Nothing is persisted on abort. Concurrent callers — including other
// processes on the same host — are serialized by the lock, so no two
// updates can both act on the same stale view.
type Store[T any] interface {
	// With loads the document under lock and passes it to fn.
	// If *T implements Initer, Init() is called before fn.
	// The lock is held for the duration of fn.
	With(ctx context.Context, fn func(*T) error) error
	// Update performs a read-modify-write under lock.
	// If fn returns nil the document is atomically persisted.
	Update(ctx context.Context, fn func(*T) error) error
}
