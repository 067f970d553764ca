// Package index keeps a persistent record of fetched assets
package index

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gosimple/slug"
	jsoniter "github.com/json-iterator/go"
	"github.com/streambinder/hymnal/entity"
	bolt "go.etcd.io/bbolt"
)

var (
	json = jsoniter.ConfigCompatibleWithStandardLibrary

	bucketAssets  = []byte("assets")
	bucketQueries = []byte("queries")
)

// Record describes one asset fetched to disk
type Record struct {
	Query       string        `json:"query"`
	Title       string        `json:"title"`
	URL         string        `json:"url"`
	Source      entity.Source `json:"source"`
	DownloadURL string        `json:"download_url"`
	Path        string        `json:"path"`
	FetchedAt   time.Time     `json:"fetched_at"`
}

// Index stores records by landing page URL and remembers
// which URL last answered each query
type Index struct {
	db    *bolt.DB
	mu    sync.RWMutex
	cache map[string][]byte
}

// Open opens (or creates) the index at path,
// an empty path yields a memory-only index
func Open(path string) (*Index, error) {
	if len(path) == 0 {
		return &Index{cache: make(map[string][]byte)}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketAssets, bucketQueries} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &Index{db: db, cache: make(map[string][]byte)}, nil
}

func (index *Index) Close() error {
	if index.db != nil {
		return index.db.Close()
	}
	return nil
}

func queryKey(query string) string {
	if key := slug.Make(query); len(key) > 0 {
		return key
	}
	return query
}

func cacheKey(bucket []byte, key string) string {
	return string(bucket) + ":" + key
}

// Put stores record, overriding any previous one for the same URL
func (index *Index) Put(record Record) error {
	if len(record.URL) == 0 {
		return fmt.Errorf("record has no url")
	}
	if record.FetchedAt.IsZero() {
		record.FetchedAt = time.Now()
	}

	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	if index.db != nil {
		if err := index.db.Update(func(tx *bolt.Tx) error {
			if err := tx.Bucket(bucketAssets).Put([]byte(record.URL), data); err != nil {
				return err
			}
			if len(record.Query) > 0 {
				return tx.Bucket(bucketQueries).Put([]byte(queryKey(record.Query)), []byte(record.URL))
			}
			return nil
		}); err != nil {
			return err
		}
	}

	index.mu.Lock()
	defer index.mu.Unlock()
	index.cache[cacheKey(bucketAssets, record.URL)] = data
	if len(record.Query) > 0 {
		index.cache[cacheKey(bucketQueries, queryKey(record.Query))] = []byte(record.URL)
	}
	return nil
}

func (index *Index) get(bucket []byte, key string) []byte {
	index.mu.RLock()
	if data, ok := index.cache[cacheKey(bucket, key)]; ok {
		index.mu.RUnlock()
		return data
	}
	index.mu.RUnlock()

	if index.db == nil {
		return nil
	}

	var data []byte
	_ = index.db.View(func(tx *bolt.Tx) error {
		if value := tx.Bucket(bucket).Get([]byte(key)); value != nil {
			data = append([]byte{}, value...)
		}
		return nil
	})
	if data == nil {
		return nil
	}

	index.mu.Lock()
	index.cache[cacheKey(bucket, key)] = data
	index.mu.Unlock()
	return data
}

// Get returns the record stored for the landing page url
func (index *Index) Get(url string) (Record, bool) {
	var record Record
	data := index.get(bucketAssets, url)
	if data == nil || json.Unmarshal(data, &record) != nil {
		return Record{}, false
	}
	return record, true
}

// Lookup returns the record that last answered query
func (index *Index) Lookup(query string) (Record, bool) {
	url := index.get(bucketQueries, queryKey(query))
	if url == nil {
		return Record{}, false
	}
	return index.Get(string(url))
}

// Records lists every record, most recent first
func (index *Index) Records() ([]Record, error) {
	var records []Record
	decode := func(data []byte) error {
		var record Record
		if err := json.Unmarshal(data, &record); err != nil {
			return err
		}
		records = append(records, record)
		return nil
	}

	if index.db != nil {
		if err := index.db.View(func(tx *bolt.Tx) error {
			return tx.Bucket(bucketAssets).ForEach(func(_, value []byte) error {
				return decode(value)
			})
		}); err != nil {
			return nil, err
		}
	} else {
		index.mu.RLock()
		for key, data := range index.cache {
			if strings.HasPrefix(key, cacheKey(bucketAssets, "")) {
				if err := decode(data); err != nil {
					index.mu.RUnlock()
					return nil, err
				}
			}
		}
		index.mu.RUnlock()
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].FetchedAt.After(records[j].FetchedAt)
	})
	return records, nil
}

// Size returns the number of records
func (index *Index) Size() int {
	records, err := index.Records()
	if err != nil {
		return 0
	}
	return len(records)
}
