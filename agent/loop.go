// Package agent drives a service's songs through retrieval one at a time,
// asking a human whenever an item cannot be settled on its own
package agent

import (
	"context"
	"errors"
	"sync"
)

// ErrLoopStopped is returned by Run once the loop has been stopped
var ErrLoopStopped = errors.New("loop stopped")

// Loop is a single threaded event loop: posted functions run one
// after the other on the goroutine calling Run. State owned by the
// loop must only be touched from posted functions
type Loop struct {
	events chan func()
	done   chan struct{}
	once   sync.Once
}

func NewLoop() *Loop {
	return &Loop{
		events: make(chan func(), 64),
		done:   make(chan struct{}),
	}
}

// Post schedules fn on the loop, it is safe to call from any goroutine.
// Functions posted after Stop are discarded
func (loop *Loop) Post(fn func()) {
	select {
	case <-loop.done:
	case loop.events <- fn:
	}
}

// Call posts fn and waits for it to have run,
// it must never be called from within the loop
func (loop *Loop) Call(fn func()) bool {
	ran := make(chan struct{})
	loop.Post(func() {
		fn()
		close(ran)
	})
	select {
	case <-ran:
		return true
	case <-loop.done:
		return false
	}
}

// Run drains the loop until ctx is done or Stop is called
func (loop *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-loop.done:
			return ErrLoopStopped
		case fn := <-loop.events:
			fn()
		}
	}
}

func (loop *Loop) Stop() {
	loop.once.Do(func() { close(loop.done) })
}
