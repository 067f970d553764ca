package queue

import (
	"errors"
	"fmt"
	"testing"

	"github.com/streambinder/hymnal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hits(n int) []entity.Hit {
	hits := make([]entity.Hit, n)
	for i := range hits {
		hits[i] = entity.Hit{
			Title:  fmt.Sprintf("새찬송가 %d장", i+1),
			URL:    fmt.Sprintf("https://getwater.tistory.com/%d", i+1),
			Source: entity.SourceGetwater,
		}
	}
	return hits
}

func TestAddWithinCapacity(t *testing.T) {
	queue := NewDownloadQueue(DefaultCapacity)
	added, duplicates, err := queue.Add(hits(3)...)
	require.NoError(t, err)
	assert.Equal(t, 3, added)
	assert.Zero(t, duplicates)
	assert.Equal(t, 3, queue.Len())
	assert.Equal(t, 4, queue.Free())
}

func TestAddBeyondCapacity(t *testing.T) {
	queue := NewDownloadQueue(DefaultCapacity)
	_, _, err := queue.Add(hits(5)...)
	require.NoError(t, err)

	added, _, err := queue.Add(hits(12)[5:]...)
	assert.Equal(t, 2, added)
	assert.Equal(t, 7, queue.Len())

	var capacityErr *entity.CapacityError
	require.True(t, errors.As(err, &capacityErr))
	assert.Equal(t, 7, capacityErr.Capacity)
	assert.Equal(t, 5, capacityErr.Dropped)
	assert.Equal(t, "https://getwater.tistory.com/7", queue.Items()[6].URL)
}

func TestAddManyAtOnce(t *testing.T) {
	queue := NewDownloadQueue(0)
	added, _, err := queue.Add(hits(100)...)
	assert.Equal(t, 7, added)
	assert.Equal(t, DefaultCapacity, queue.Len())

	var capacityErr *entity.CapacityError
	require.True(t, errors.As(err, &capacityErr))
	assert.Equal(t, 93, capacityErr.Dropped)
}

func TestAddDuplicates(t *testing.T) {
	queue := NewDownloadQueue(DefaultCapacity)
	_, _, err := queue.Add(hits(7)...)
	require.NoError(t, err)

	// duplicates are not dropped items, even with a full queue
	added, duplicates, err := queue.Add(hits(2)...)
	assert.NoError(t, err)
	assert.Zero(t, added)
	assert.Equal(t, 2, duplicates)

	queue.Clear()
	added, duplicates, err = queue.Add(append(hits(2), hits(2)...)...)
	assert.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Equal(t, 2, duplicates)
}

func TestRemove(t *testing.T) {
	queue := NewDownloadQueue(DefaultCapacity)
	_, _, _ = queue.Add(hits(3)...)
	snapshot := queue.Items()

	require.NoError(t, queue.Remove(1))
	assert.Equal(t, 2, queue.Len())
	assert.Equal(t, snapshot[2].URL, queue.Items()[1].URL)
	assert.Len(t, snapshot, 3)

	assert.Error(t, queue.Remove(2))
	assert.Error(t, queue.Remove(-1))
}

func TestClear(t *testing.T) {
	queue := NewDownloadQueue(3)
	_, _, _ = queue.Add(hits(3)...)
	queue.Clear()
	assert.Zero(t, queue.Len())
	assert.Equal(t, 3, queue.Free())
	assert.Equal(t, 3, queue.Capacity())
}
