package agent

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/streambinder/hymnal/config"
	"github.com/streambinder/hymnal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resolverFunc func(ctx context.Context, item entity.WorkItem, seq int) (string, error)

func (fn resolverFunc) Resolve(ctx context.Context, item entity.WorkItem, seq int) (string, error) {
	return fn(ctx, item, seq)
}

type confirmation struct {
	item   entity.WorkItem
	reason string
}

type surface chan confirmation

func (surface surface) Confirm(item entity.WorkItem, reason string) {
	surface <- confirmation{item, reason}
}

func (surface surface) next(t *testing.T) confirmation {
	select {
	case confirmation := <-surface:
		return confirmation
	case <-time.After(5 * time.Second):
		require.FailNow(t, "no confirmation requested")
		return confirmation{}
	}
}

func running(t *testing.T) *Loop {
	loop := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = loop.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		loop.Stop()
	})
	return loop
}

// numbered resolves every item to "{seq}. {query}장.pptx"
var numbered = resolverFunc(func(_ context.Context, item entity.WorkItem, seq int) (string, error) {
	return fmt.Sprintf("%d. %s장.pptx", seq, item.Query), nil
})

func newScheduler(loop *Loop, resolver AutoResolver, surface Surface, hooks Hooks) *Scheduler {
	return NewScheduler(context.Background(), Options{
		Loop:     loop,
		Resolver: resolver,
		Surface:  surface,
		Unit:     "장",
		Auto:     true,
		Hooks:    hooks,
		Logger:   config.NullLogger(),
	})
}

func snapshot(t *testing.T, loop *Loop, scheduler *Scheduler) State {
	var state State
	require.True(t, loop.Call(func() { state = scheduler.Snapshot() }))
	return state
}

func TestSchedulerMixed(t *testing.T) {
	var (
		loop    = running(t)
		confirm = make(surface, 4)
		items   []entity.WorkItem
		idle    atomic.Bool
	)
	scheduler := newScheduler(loop, numbered, confirm, Hooks{
		Item: func(item entity.WorkItem) { items = append(items, item) },
		Idle: func() { idle.Store(true) },
	})

	var err error
	require.True(t, loop.Call(func() {
		err = scheduler.Start(Command{Before: []string{"28"}, After: []string{"make me glad"}})
	}))
	require.NoError(t, err)

	confirmation := confirm.next(t)
	assert.Equal(t, "make me glad", confirmation.item.Query)
	assert.Equal(t, entity.TargetAfter, confirmation.item.Target)
	assert.Equal(t, ReasonInteractive, confirmation.reason)

	state := snapshot(t, loop, scheduler)
	assert.True(t, state.Running)
	assert.True(t, state.Suspended)
	require.NotNil(t, state.Current)
	assert.Equal(t, "make me glad", state.Current.Query)
	assert.Empty(t, state.Queue)
	assert.False(t, idle.Load())

	var consumed bool
	require.True(t, loop.Call(func() { consumed = scheduler.ManualTransfer("2. make me glad.pptx") }))
	assert.True(t, consumed)

	var buckets map[entity.Target][]string
	require.True(t, loop.Call(func() { buckets = scheduler.Buckets() }))
	assert.Equal(t, []string{"1. 28장.pptx"}, buckets[entity.TargetBefore])
	assert.Equal(t, []string{"2. make me glad.pptx"}, buckets[entity.TargetAfter])

	state = snapshot(t, loop, scheduler)
	assert.False(t, state.Running)
	assert.False(t, state.Suspended)
	assert.Nil(t, state.Current)
	assert.True(t, idle.Load())

	// the numeric item never waited for anyone
	require.True(t, loop.Call(func() {
		for _, item := range items {
			if item.Query == "28" {
				assert.NotEqual(t, entity.StateAwaitingConfirmation, item.State)
			}
		}
		assert.Equal(t, entity.StateDone, items[len(items)-1].State)
	}))
}

func TestSchedulerFallback(t *testing.T) {
	var (
		loop    = running(t)
		confirm = make(surface, 4)
		failing = resolverFunc(func(context.Context, entity.WorkItem, int) (string, error) {
			return "", entity.ErrNoResults
		})
	)
	scheduler := newScheduler(loop, failing, confirm, Hooks{})
	require.True(t, loop.Call(func() { assert.NoError(t, scheduler.Start(Command{Before: []string{"28장"}})) }))

	confirmation := confirm.next(t)
	assert.Equal(t, ReasonFallback, confirmation.reason)
	assert.Equal(t, "28장", confirmation.item.Query)
	assert.Equal(t, "not found", confirmation.item.Reason)
	assert.True(t, snapshot(t, loop, scheduler).Suspended)

	var consumed bool
	require.True(t, loop.Call(func() {
		consumed = scheduler.DownloadComplete(0, []entity.Failure{{Query: "28장", Reason: "not found"}}, nil)
	}))
	assert.True(t, consumed)
	assert.False(t, snapshot(t, loop, scheduler).Running)
}

func TestSchedulerSequence(t *testing.T) {
	var (
		loop  = running(t)
		seqs  []int
		mixed = resolverFunc(func(ctx context.Context, item entity.WorkItem, seq int) (string, error) {
			seqs = append(seqs, seq)
			return numbered(ctx, item, seq)
		})
	)
	idle := make(chan struct{})
	scheduler := newScheduler(loop, mixed, make(surface, 1), Hooks{Idle: func() { close(idle) }})
	require.True(t, loop.Call(func() {
		assert.NoError(t, scheduler.Start(Command{Before: []string{"28", "29"}, After: []string{"30"}}))
	}))

	select {
	case <-idle:
	case <-time.After(5 * time.Second):
		require.FailNow(t, "agent never went idle")
	}

	var buckets map[entity.Target][]string
	require.True(t, loop.Call(func() { buckets = scheduler.Buckets() }))
	assert.Equal(t, []string{"1. 28장.pptx", "2. 29장.pptx"}, buckets[entity.TargetBefore])
	assert.Equal(t, []string{"3. 30장.pptx"}, buckets[entity.TargetAfter])
	assert.Equal(t, []int{1, 2, 3}, seqs)
	require.True(t, loop.Call(func() { assert.Equal(t, 4, scheduler.Seq()) }))
}

func TestSchedulerSequenceReserved(t *testing.T) {
	var (
		loop    = running(t)
		confirm = make(surface, 4)
		release = make(chan struct{})
		handed  = make(chan int, 1)
		blocked = resolverFunc(func(ctx context.Context, item entity.WorkItem, seq int) (string, error) {
			handed <- seq
			<-release
			return numbered(ctx, item, seq)
		})
	)
	scheduler := newScheduler(loop, blocked, confirm, Hooks{})
	require.True(t, loop.Call(func() { assert.NoError(t, scheduler.Start(Command{Before: []string{"28"}, After: []string{"실로암"}})) }))
	assert.Equal(t, 1, <-handed)

	// files handed over while 28 is in flight take no number from it
	var reserved int
	require.True(t, loop.Call(func() {
		assert.False(t, scheduler.DownloadComplete(1, nil, []string{"x.pptx"}))
		reserved = scheduler.Reserve()
		scheduler.Release(reserved)
	}))
	assert.Equal(t, 2, reserved)
	close(release)

	assert.Equal(t, "실로암", confirm.next(t).item.Query)
	var buckets map[entity.Target][]string
	require.True(t, loop.Call(func() {
		buckets = scheduler.Buckets()
		assert.Equal(t, 2, scheduler.Reserve())
	}))
	assert.Equal(t, []string{"1. 28장.pptx"}, buckets[entity.TargetBefore])
	assert.Equal(t, []string{"x.pptx"}, buckets[entity.TargetAfter])
}

func TestSchedulerFallbackKeepsSequence(t *testing.T) {
	var (
		loop    = running(t)
		confirm = make(surface, 4)
		failing = resolverFunc(func(context.Context, entity.WorkItem, int) (string, error) {
			return "", entity.ErrNoResults
		})
	)
	scheduler := newScheduler(loop, failing, confirm, Hooks{})
	require.True(t, loop.Call(func() { assert.NoError(t, scheduler.Start(Command{Before: []string{"28"}})) }))

	// the number of the failed attempt goes to the confirmation
	assert.Equal(t, ReasonFallback, confirm.next(t).reason)
	require.True(t, loop.Call(func() { assert.Equal(t, 1, scheduler.Reserve()) }))
}

func TestSchedulerManualOnly(t *testing.T) {
	var (
		loop    = running(t)
		confirm = make(surface, 4)
		calls   atomic.Int32
		counted = resolverFunc(func(context.Context, entity.WorkItem, int) (string, error) {
			calls.Add(1)
			return "", errors.New("unexpected")
		})
	)
	scheduler := NewScheduler(context.Background(), Options{
		Loop: loop, Resolver: counted, Surface: confirm, Unit: "장", Logger: config.NullLogger(),
	})
	require.True(t, loop.Call(func() { assert.NoError(t, scheduler.Start(Command{Before: []string{"28"}})) }))

	assert.Equal(t, ReasonInteractive, confirm.next(t).reason)
	require.True(t, loop.Call(func() { assert.True(t, scheduler.Skip()) }))
	assert.Zero(t, calls.Load())
	assert.False(t, snapshot(t, loop, scheduler).Running)
}

func TestSchedulerSignals(t *testing.T) {
	loop := running(t)
	confirm := make(surface, 4)
	scheduler := newScheduler(loop, numbered, confirm, Hooks{})

	require.True(t, loop.Call(func() {
		// unsolicited files land after, once
		assert.False(t, scheduler.DownloadComplete(2, nil, []string{"a.pptx", "b.pptx"}))
		assert.False(t, scheduler.ManualTransfer("a.pptx"))
		assert.False(t, scheduler.Skip())
		assert.Equal(t, []string{"a.pptx", "b.pptx"}, scheduler.Buckets()[entity.TargetAfter])

		assert.ErrorIs(t, scheduler.Start(Command{}), ErrNothingToDo)
		assert.NoError(t, scheduler.Start(Command{Before: []string{"실로암", "승리하였네"}}))
		assert.ErrorIs(t, scheduler.Start(Command{Before: []string{"28"}}), ErrBusy)
	}))

	// one confirmation at a time
	assert.Equal(t, "실로암", confirm.next(t).item.Query)
	assert.Len(t, confirm, 0)
	require.True(t, loop.Call(func() { assert.True(t, scheduler.ManualTransfer("1. 실로암.pptx")) }))
	assert.Equal(t, "승리하였네", confirm.next(t).item.Query)

	state := snapshot(t, loop, scheduler)
	assert.True(t, state.Suspended)
	assert.Empty(t, state.Queue)
}

func TestLoopStop(t *testing.T) {
	loop := NewLoop()
	done := make(chan error, 1)
	go func() { done <- loop.Run(context.Background()) }()

	assert.True(t, loop.Call(func() {}))
	loop.Stop()
	assert.ErrorIs(t, <-done, ErrLoopStopped)
	assert.False(t, loop.Call(func() {}))
	loop.Stop()
}
