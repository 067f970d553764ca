// Package queue runs retrievals one after the other,
// out of query batches or of a bounded selection of hits
package queue

import (
	"fmt"

	"github.com/streambinder/hymnal/entity"
)

// DefaultCapacity bounds the download queue
const DefaultCapacity = 7

// DownloadQueue is an ordered, URL-unique selection of hits that never
// grows past its capacity. It is not safe for concurrent use: it belongs
// to the goroutine driving the user interaction
type DownloadQueue struct {
	capacity int
	hits     []entity.Hit
}

func NewDownloadQueue(capacity int) *DownloadQueue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &DownloadQueue{capacity: capacity}
}

func (queue *DownloadQueue) contains(url string) bool {
	for _, hit := range queue.hits {
		if hit.URL == url {
			return true
		}
	}
	return false
}

// Add appends hits in order, skipping the ones already queued.
// Whatever does not fit is dropped and reported by a *entity.CapacityError
func (queue *DownloadQueue) Add(hits ...entity.Hit) (added, duplicates int, err error) {
	dropped := 0
	for _, hit := range hits {
		switch {
		case queue.contains(hit.URL):
			duplicates++
		case len(queue.hits) >= queue.capacity:
			dropped++
		default:
			queue.hits = append(queue.hits, hit)
			added++
		}
	}
	if dropped > 0 {
		err = &entity.CapacityError{Capacity: queue.capacity, Dropped: dropped}
	}
	return added, duplicates, err
}

func (queue *DownloadQueue) Remove(i int) error {
	if i < 0 || i >= len(queue.hits) {
		return fmt.Errorf("no queued item at %d", i)
	}
	queue.hits = append(queue.hits[:i:i], queue.hits[i+1:]...)
	return nil
}

func (queue *DownloadQueue) Clear() {
	queue.hits = nil
}

// Items returns a snapshot of the queued hits
func (queue *DownloadQueue) Items() []entity.Hit {
	return append([]entity.Hit{}, queue.hits...)
}

func (queue *DownloadQueue) Len() int {
	return len(queue.hits)
}

func (queue *DownloadQueue) Capacity() int {
	return queue.capacity
}

// Free returns how many more hits fit
func (queue *DownloadQueue) Free() int {
	return queue.capacity - len(queue.hits)
}
