package store

import (
	"context"
	"sync"
)

// Lazy defers client construction until the first remote operation is
// actually needed. Get is idempotent: every call after the first returns
// the same handle, so a dry run that never touches the remote store never
// connects.
type Lazy struct {
	dial func(ctx context.Context) (Client, error)

	once   sync.Once
	client Client
	err    error
}

// NewLazy wraps a dial function in a lazily-connecting handle.
func NewLazy(dial func(ctx context.Context) (Client, error)) *Lazy {
	return &Lazy{dial: dial}
}

// Get returns the connected client, dialing exactly once.
func (l *Lazy) Get(ctx context.Context) (Client, error) {
	l.once.Do(func() {
		l.client, l.err = l.dial(ctx)
	})
	return l.client, l.err
}
