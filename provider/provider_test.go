package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/streambinder/hymnal/config"
	"github.com/streambinder/hymnal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	getwaterPage = `<html><body>
<div class="searchList"><ul>
  <li><a href="/2645"><img src="/thumb/2645.jpg"> 새찬송가 28장   복의 근원 강림하사 </a></li>
  <li><a href="/2646">새찬송가 128장 거룩한 밤</a></li>
  <li><a href="/2645">duplicate</a></li>
  <li><a href="/tag/찬송가">tag page</a></li>
  <li><a href="/77">짧음</a></li>
  <li><a href="/78">ppt</a></li>
</ul></div>
</body></html>`

	getwaterFallbackPage = `<html><body>
<div class="new-layout">
  <a href="/category/hymns">카테고리 전체</a>
  <a href="https://getwater.example/3001">새찬송가 28장 PPT</a>
</div>
</body></html>`

	cwyPage = `<html><body>
<article><h2><a href="/entry/승리하셨네">승리하셨네 (찬양)</a></h2></article>
<article><a href="/entry/victory">[찬양] 승리하였네</a></article>
<article><a href="/entry/other">내 주를 가까이 하게 함은</a></article>
<article><a href="/512">승리하였네 악보</a></article>
</body></html>`

	cwyFallbackPage = `<html><body>
<div><a href="/entry/one">승리하였네 악보 ppt</a><a href="/guestbook">방명록 남기기</a></div>
</body></html>`
)

func serve(t *testing.T, page string, hits *atomic.Int32) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		if !strings.HasPrefix(r.URL.Path, "/search/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, page)
	}))
	t.Cleanup(server.Close)
	return server
}

func options(server *httptest.Server) Options {
	return Options{BaseURL: server.URL, UserAgent: config.UserAgent, Timeout: time.Second, Logger: config.NullLogger()}
}

func TestGetwaterSearch(t *testing.T) {
	var seenAgent, seenPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenAgent = r.UserAgent()
		seenPath = r.URL.Path
		fmt.Fprint(w, getwaterPage)
	}))
	defer server.Close()

	hits := NewGetwater(options(server)).Search(context.Background(), "새찬송가 28장")
	require.Len(t, hits, 2)
	assert.Equal(t, "새찬송가 28장 복의 근원 강림하사", hits[0].Title)
	assert.Equal(t, server.URL+"/2645", hits[0].URL)
	assert.Equal(t, server.URL+"/thumb/2645.jpg", hits[0].Thumbnail)
	assert.Equal(t, entity.SourceGetwater, hits[0].Source)
	assert.Equal(t, "새찬송가 128장 거룩한 밤", hits[1].Title)
	assert.Equal(t, config.UserAgent, seenAgent)
	assert.Equal(t, "/search/새찬송가 28장", seenPath)
}

func TestGetwaterFallback(t *testing.T) {
	server := serve(t, getwaterFallbackPage, nil)
	hits := NewGetwater(options(server)).Search(context.Background(), "28장")
	require.Len(t, hits, 1)
	assert.Equal(t, "https://getwater.example/3001", hits[0].URL)
	assert.Equal(t, "새찬송가 28장 PPT", hits[0].Title)
}

func TestGetwaterFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer server.Close()

	hits := NewGetwater(options(server)).Search(context.Background(), "28장")
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
}

func TestGetwaterUnreachable(t *testing.T) {
	server := serve(t, getwaterPage, nil)
	opts := options(server)
	server.Close()

	assert.Empty(t, NewGetwater(opts).Search(context.Background(), "28장"))
}

func TestScrapeAdapterError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := NewGetwater(options(server)).scrape(context.Background(), "28장")
	var adapterErr *entity.AdapterError
	require.True(t, errors.As(err, &adapterErr))
	assert.Equal(t, entity.SourceGetwater, adapterErr.Source)
}

func TestCwySearch(t *testing.T) {
	server := serve(t, cwyPage, nil)
	hits := NewCwy(options(server), nil).Search(context.Background(), "승리하였네")
	require.Len(t, hits, 3)
	assert.Equal(t, "승리하였네 악보", hits[0].Title)
	assert.Equal(t, 0, *hits[0].Score)
	assert.Equal(t, "[찬양] 승리하였네", hits[1].Title)
	assert.Equal(t, "승리하셨네 (찬양)", hits[2].Title)
	assert.Equal(t, server.URL+"/entry/%EC%8A%B9%EB%A6%AC%ED%95%98%EC%85%A8%EB%84%A4", hits[2].URL)
	for _, hit := range hits {
		assert.Equal(t, entity.SourceCwy, hit.Source)
	}
}

func TestCwyFallback(t *testing.T) {
	server := serve(t, cwyFallbackPage, nil)
	hits := NewCwy(options(server), nil).Search(context.Background(), "승리하였네")
	require.Len(t, hits, 1)
	assert.Equal(t, server.URL+"/entry/one", hits[0].URL)
}

func TestSearchAll(t *testing.T) {
	var (
		slow = Func{entity.SourceGetwater, func(ctx context.Context, keyword string) []entity.Hit {
			time.Sleep(20 * time.Millisecond)
			return []entity.Hit{{Title: "찬송가 28장", URL: "u1", Source: entity.SourceGetwater}}
		}}
		fast = Func{entity.SourceCwy, func(ctx context.Context, keyword string) []entity.Hit {
			return []entity.Hit{{Title: "새찬송가128장", URL: "u2", Source: entity.SourceCwy}}
		}}
	)

	hits, err := SearchAll(context.Background(), "28", slow, fast)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "u1", hits[0].URL)
	assert.Equal(t, "u2", hits[1].URL)
}

func TestSearchAllIsolatesFailures(t *testing.T) {
	var requests atomic.Int32
	good := serve(t, getwaterPage, &requests)
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer bad.Close()

	hits, err := SearchAll(context.Background(), "새찬송가 28장",
		NewCwy(options(bad), nil), NewGetwater(options(good)))
	require.NoError(t, err)
	assert.Len(t, hits, 2)
	assert.EqualValues(t, 2, requests.Load())
}

func TestSearchAllNoSources(t *testing.T) {
	_, err := SearchAll(context.Background(), "28")
	assert.ErrorIs(t, err, entity.ErrNoSources)
}

func TestSources(t *testing.T) {
	assert.Equal(t, []entity.Source{entity.SourceGetwater, entity.SourceCwy},
		Sources(NewGetwater(Options{}), NewCwy(Options{}, nil)))
}

func TestFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	providers, err := FromConfig(cfg, config.NullLogger())
	require.NoError(t, err)
	assert.Equal(t, []entity.Source{entity.SourceGetwater, entity.SourceCwy}, Sources(providers...))

	cfg.Sources.Enabled = []string{"cwy0675"}
	providers, err = FromConfig(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, []entity.Source{entity.SourceCwy}, Sources(providers...))

	cfg.Sources.Enabled = nil
	_, err = FromConfig(cfg, nil)
	assert.ErrorIs(t, err, entity.ErrNoSources)

	cfg.Sources.Enabled = []string{"nowhere"}
	_, err = FromConfig(cfg, nil)
	assert.Error(t, err)
}
