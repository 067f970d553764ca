package agent

import (
	"context"
	"errors"
	"log/slog"

	"github.com/streambinder/hymnal/config"
	"github.com/streambinder/hymnal/entity"
	"github.com/streambinder/hymnal/query"
	"github.com/streambinder/hymnal/queue"
)

var (
	// ErrBusy is returned when a command is started while another one runs
	ErrBusy = errors.New("agent already running")
	// ErrNothingToDo is returned for commands listing no song
	ErrNothingToDo = errors.New("no song to retrieve")
)

// Confirmation reasons
const (
	ReasonInteractive = "interactive" // free text, a human has to pick
	ReasonFallback    = "fallback"    // automatic retrieval failed
)

// AutoResolver retrieves an item without any human intervention,
// returning the path of the fetched file. It runs on a worker goroutine
type AutoResolver interface {
	Resolve(ctx context.Context, item entity.WorkItem, seq int) (string, error)
}

// Surface is where humans confirm items. Confirm is called on the loop
// and must not block: the surface answers later, by posting
// DownloadComplete or ManualTransfer onto the loop
type Surface interface {
	Confirm(item entity.WorkItem, reason string)
}

// State is a snapshot of the scheduler
type State struct {
	Queue     []entity.WorkItem
	Running   bool
	Suspended bool
	Current   *entity.WorkItem
}

type Hooks struct {
	Item func(item entity.WorkItem) // every state change of an item
	Idle func()                     // the queue has been drained
}

type Options struct {
	Loop     *Loop
	Resolver AutoResolver
	Surface  Surface
	Unit     string
	Auto     bool // numeric items are resolved automatically
	Hooks    Hooks
	Logger   *slog.Logger
}

// Scheduler moves the items of a command through retrieval one at a
// time. Apart from construction, every method must run on the loop
type Scheduler struct {
	ctx      context.Context
	loop     *Loop
	resolver AutoResolver
	surface  Surface
	unit     string
	auto     bool
	hooks    Hooks
	logger   *slog.Logger

	state   State
	buckets map[entity.Target][]string
	seq     int
}

func NewScheduler(ctx context.Context, opts Options) *Scheduler {
	return &Scheduler{
		ctx:      ctx,
		loop:     opts.Loop,
		resolver: opts.Resolver,
		surface:  opts.Surface,
		unit:     opts.Unit,
		auto:     opts.Auto,
		hooks:    opts.Hooks,
		logger:   config.Or(opts.Logger),
		buckets:  make(map[entity.Target][]string),
	}
}

// Start queues the songs of command, before ones first
func (scheduler *Scheduler) Start(command Command) error {
	if scheduler.state.Running {
		return ErrBusy
	}
	if command.Empty() {
		return ErrNothingToDo
	}

	for _, song := range command.Before {
		scheduler.enqueue(entity.TargetBefore, song)
	}
	for _, song := range command.After {
		scheduler.enqueue(entity.TargetAfter, song)
	}
	scheduler.state.Running = true
	scheduler.logger.Info("agent started", "items", len(scheduler.state.Queue), "date", command.Date(), "seq", scheduler.Seq())
	scheduler.advance()
	return nil
}

func (scheduler *Scheduler) enqueue(target entity.Target, song string) {
	if song = Clean(song); len(song) > 0 {
		scheduler.state.Queue = append(scheduler.state.Queue, entity.NewWorkItem(target, song))
	}
}

func (scheduler *Scheduler) emit(item entity.WorkItem) {
	if scheduler.hooks.Item != nil {
		scheduler.hooks.Item(item)
	}
}

// advance starts the next item, if none is in flight
func (scheduler *Scheduler) advance() {
	if !scheduler.state.Running || scheduler.state.Current != nil {
		return
	}

	if len(scheduler.state.Queue) == 0 {
		scheduler.state.Running = false
		scheduler.state.Suspended = false
		scheduler.logger.Info("agent idle")
		if scheduler.hooks.Idle != nil {
			scheduler.hooks.Idle()
		}
		return
	}

	item := scheduler.state.Queue[0]
	scheduler.state.Queue = append([]entity.WorkItem{}, scheduler.state.Queue[1:]...)
	scheduler.state.Current = &item

	if scheduler.auto && scheduler.resolver != nil && query.IsNumeric(item.Query, scheduler.unit) {
		scheduler.resolve(item)
		return
	}
	scheduler.await(ReasonInteractive)
}

func (scheduler *Scheduler) resolve(item entity.WorkItem) {
	item.State = entity.StateSearching
	*scheduler.state.Current = item
	scheduler.emit(item)

	seq := scheduler.Reserve()
	go func() {
		path, err := scheduler.resolver.Resolve(scheduler.ctx, item, seq)
		scheduler.loop.Post(func() {
			scheduler.resolved(item.ID, seq, path, err)
		})
	}()
}

func (scheduler *Scheduler) resolved(id string, seq int, path string, err error) {
	current := scheduler.state.Current
	if current == nil || current.ID != id {
		return
	}

	if err != nil {
		scheduler.logger.Info("automatic retrieval failed", "query", current.Query, "error", err)
		scheduler.Release(seq)
		current.Reason = entity.Reason(err)
		scheduler.await(ReasonFallback)
		return
	}

	scheduler.place(current.Target, path)
	scheduler.finish(entity.StateDone, path, "")
}

func (scheduler *Scheduler) await(reason string) {
	current := scheduler.state.Current
	current.State = entity.StateAwaitingConfirmation
	scheduler.state.Suspended = true
	scheduler.emit(*current)
	scheduler.logger.Info("awaiting confirmation", "query", current.Query, "reason", reason)
	if scheduler.surface != nil {
		scheduler.surface.Confirm(*current, reason)
	}
}

func (scheduler *Scheduler) finish(state entity.State, file, reason string) {
	item := *scheduler.state.Current
	item.State, item.File = state, file
	if state == entity.StateDone {
		item.Reason = ""
	} else if len(reason) > 0 {
		item.Reason = reason
	}
	scheduler.state.Current = nil
	scheduler.state.Suspended = false
	scheduler.emit(item)
	scheduler.advance()
}

// place appends file to the target bucket, unless any bucket has it already
func (scheduler *Scheduler) place(target entity.Target, file string) bool {
	for _, files := range scheduler.buckets {
		for _, existing := range files {
			if existing == file {
				return false
			}
		}
	}
	scheduler.buckets[target] = append(scheduler.buckets[target], file)
	return true
}

// DownloadComplete is the surface reporting a finished download run.
// When an item awaits confirmation the files settle it, otherwise they
// are simply appended to the after bucket. It reports whether the
// signal has been consumed as a confirmation
func (scheduler *Scheduler) DownloadComplete(success int, failed []entity.Failure, files []string) bool {
	if !scheduler.state.Suspended {
		for _, file := range files {
			scheduler.place(entity.TargetAfter, file)
		}
		return false
	}

	target := scheduler.state.Current.Target
	for _, file := range files {
		scheduler.place(target, file)
	}

	switch {
	case len(files) > 0:
		scheduler.finish(entity.StateDone, files[len(files)-1], "")
	case len(failed) > 0:
		scheduler.finish(entity.StateFailed, "", failed[0].Reason)
	default:
		scheduler.finish(entity.StateFailed, "", "nothing downloaded")
	}
	scheduler.logger.Debug("confirmation consumed", "success", success, "failed", len(failed))
	return true
}

// ManualTransfer is the surface handing over a single file
func (scheduler *Scheduler) ManualTransfer(file string) bool {
	return scheduler.DownloadComplete(1, nil, []string{file})
}

// Skip gives up on the item awaiting confirmation
func (scheduler *Scheduler) Skip() bool {
	if !scheduler.state.Suspended {
		return false
	}
	scheduler.finish(entity.StateFailed, "", "skipped")
	return true
}

// Seq returns the sequence number Reserve would hand out next
func (scheduler *Scheduler) Seq() int {
	return scheduler.seq + 1
}

// Reserve hands out the sequence number of a file about to be fetched,
// no two reservations ever share one
func (scheduler *Scheduler) Reserve() int {
	scheduler.seq++
	return scheduler.seq
}

// Release gives seq back when nothing has been fetched under it,
// provided no later number has been reserved meanwhile
func (scheduler *Scheduler) Release(seq int) {
	if seq == scheduler.seq {
		scheduler.seq--
	}
}

// Snapshot returns a copy of the scheduler state
func (scheduler *Scheduler) Snapshot() State {
	state := State{
		Queue:     append([]entity.WorkItem{}, scheduler.state.Queue...),
		Running:   scheduler.state.Running,
		Suspended: scheduler.state.Suspended,
	}
	if scheduler.state.Current != nil {
		current := *scheduler.state.Current
		state.Current = &current
	}
	return state
}

// Buckets returns a copy of the files placed so far, per target
func (scheduler *Scheduler) Buckets() map[entity.Target][]string {
	buckets := make(map[entity.Target][]string, len(scheduler.buckets))
	for target, files := range scheduler.buckets {
		buckets[target] = append([]string{}, files...)
	}
	return buckets
}

// Retriever resolves items through an orchestrator into a directory
type Retriever struct {
	Orchestrator *queue.Orchestrator
	Directory    string
}

func (retriever Retriever) Resolve(ctx context.Context, item entity.WorkItem, seq int) (string, error) {
	return retriever.Orchestrator.Retrieve(ctx, item.Query, retriever.Directory, seq)
}
