package entity

import "github.com/google/uuid"

// Target names the bucket a retrieved file lands in
type Target string

const (
	TargetBefore Target = "before"
	TargetAfter  Target = "after"
)

type State int

const (
	StatePending State = iota
	StateSearching
	StateAwaitingConfirmation
	StateDownloading
	StateDone
	StateFailed
)

func (state State) String() string {
	switch state {
	case StatePending:
		return "pending"
	case StateSearching:
		return "searching"
	case StateAwaitingConfirmation:
		return "awaiting confirmation"
	case StateDownloading:
		return "downloading"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Finished reports whether the item will not move anymore
func (state State) Finished() bool {
	return state == StateDone || state == StateFailed
}

// WorkItem is one query travelling through a batch or the agent queue
type WorkItem struct {
	ID     string
	Target Target
	Query  string
	State  State
	File   string // set once done
	Reason string // set once failed
}

func NewWorkItem(target Target, query string) WorkItem {
	return WorkItem{
		ID:     uuid.NewString(),
		Target: target,
		Query:  query,
		State:  StatePending,
	}
}
