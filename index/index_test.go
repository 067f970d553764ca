package index

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/streambinder/hymnal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(query, url string, at time.Time) Record {
	return Record{
		Query:       query,
		Title:       "새찬송가 " + query,
		URL:         url,
		Source:      entity.SourceGetwater,
		DownloadURL: url + "/file.pptx",
		Path:        "/slides/1. " + query + ".pptx",
		FetchedAt:   at,
	}
}

func TestPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "index.db")
	now := time.Now().Truncate(time.Second)

	index, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, index.Put(record("28장", "https://getwater.tistory.com/2645", now)))
	require.NoError(t, index.Close())

	index, err = Open(path)
	require.NoError(t, err)
	defer index.Close()

	got, ok := index.Get("https://getwater.tistory.com/2645")
	require.True(t, ok)
	assert.Equal(t, "28장", got.Query)
	assert.Equal(t, entity.SourceGetwater, got.Source)
	assert.True(t, now.Equal(got.FetchedAt))

	got, ok = index.Lookup("28장")
	require.True(t, ok)
	assert.Equal(t, "https://getwater.tistory.com/2645", got.URL)
	assert.Equal(t, 1, index.Size())
}

func TestMemoryOnly(t *testing.T) {
	index, err := Open("")
	require.NoError(t, err)
	defer index.Close()

	require.NoError(t, index.Put(record("28장", "u1", time.Time{})))
	got, ok := index.Get("u1")
	require.True(t, ok)
	assert.False(t, got.FetchedAt.IsZero())

	_, ok = index.Get("u2")
	assert.False(t, ok)
	_, ok = index.Lookup("305장")
	assert.False(t, ok)
	assert.Equal(t, 1, index.Size())
}

func TestPutOverrides(t *testing.T) {
	index, err := Open(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	defer index.Close()

	now := time.Now()
	require.NoError(t, index.Put(record("28장", "u1", now)))
	require.NoError(t, index.Put(record("28장", "u2", now.Add(time.Minute))))
	require.NoError(t, index.Put(record("28", "u1", now.Add(2*time.Minute))))

	got, ok := index.Lookup("28장")
	require.True(t, ok)
	assert.Equal(t, "u2", got.URL)

	records, err := index.Records()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "u1", records[0].URL)
	assert.Equal(t, "28", records[0].Query)
	assert.Equal(t, "u2", records[1].URL)
}

func TestPutRequiresURL(t *testing.T) {
	index, err := Open("")
	require.NoError(t, err)
	assert.Error(t, index.Put(Record{Query: "28장"}))
}

func TestQueryKey(t *testing.T) {
	assert.NotEmpty(t, queryKey("28장"))
	assert.Equal(t, queryKey("Make Me Glad"), queryKey("make me glad"))
	assert.Equal(t, "!!", queryKey("!!"))
}
