package build

import (
	"context"
	"sync"
)

// Lock is the single mutual exclusion token guarding the output directory and
// the active build artifact. Rebuilds and request handlers share it.
//
// Blocked acquirers are admitted in arrival order.
type Lock struct {
	token chan struct{}
}

// NewLock returns an unheld Lock.
func NewLock() *Lock {
	return &Lock{token: make(chan struct{}, 1)}
}

// Acquire blocks until the lock is held or ctx is done. The returned release
// func is safe to call more than once.
func (l *Lock) Acquire(ctx context.Context) (release func(), err error) {
	select {
	case l.token <- struct{}{}:
	case <-ctx.Done():
		return func() {}, ctx.Err()
	}
	var once sync.Once
	return func() { once.Do(func() { <-l.token }) }, nil
}

// TryAcquire takes the lock only when it is free.
func (l *Lock) TryAcquire() (release func(), ok bool) {
	select {
	case l.token <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-l.token }) }, true
	default:
		return func() {}, false
	}
}

// With runs fn while holding the lock.
func (l *Lock) With(ctx context.Context, fn func() error) error {
	release, err := l.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}
