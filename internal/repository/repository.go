// Package repository defines the transactional scope contract every
// postgres repository implementation honors, grounded on the teacher's
// pool.Begin/tx.Rollback-deferred/tx.Commit service-layer pattern — hoisted
// here into a reusable WithinTx so every service uses the same shape instead
// of re-deriving it per call site.
package repository

import "context"

// Transactor exposes a scoped transactional context. Every mutating service
// call is wrapped in exactly one call to WithinTx. fn receives a context
// that carries the active transaction; repository methods invoked with that
// context observe the transaction's own uncommitted writes.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
