package cache

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestPageCacheExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2022, 5, 27, 0, 0, 0, 0, time.UTC)}
	c := New().WithClock(clock.Now)

	c.Put("k", &Response{Status: 200, Body: []byte("v")}, 20*time.Second)
	resp, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", string(resp.Body))

	clock.Advance(19 * time.Second)
	_, ok = c.Get("k")
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestPageCacheClear(t *testing.T) {
	c := New()
	c.Put("a", &Response{Status: 200}, time.Minute)
	c.Put("b", &Response{Status: 200}, time.Minute)
	c.Put("ignored", &Response{Status: 200}, 0)
	assert.Equal(t, 2, c.Len())

	c.Clear()
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func counterHandler(calls *int32, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(calls, 1)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(status)
		fmt.Fprintf(w, "render %d", n)
	})
}

func TestCachePageServesStoredResponse(t *testing.T) {
	var calls, hits, misses int32
	c := New()
	handler := CachePage(c, PageOptions{
		Prefix: "index_page",
		TTL:    time.Minute,
		OnHit:  func() { atomic.AddInt32(&hits, 1) },
		OnMiss: func() { atomic.AddInt32(&misses, 1) },
	})(counterHandler(&calls, http.StatusOK))

	get := func(target string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		return rec
	}

	first := get("/")
	second := get("/")
	assert.Equal(t, "render 1", first.Body.String())
	assert.Equal(t, first.Body.Bytes(), second.Body.Bytes())
	assert.Equal(t, "text/plain; charset=utf-8", second.Header().Get("Content-Type"))

	// the query string is part of the key
	assert.Equal(t, "render 2", get("/?page=2").Body.String())

	c.Clear()
	assert.Equal(t, "render 3", get("/").Body.String())

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Equal(t, int32(3), atomic.LoadInt32(&misses))
}

func TestCachePageVary(t *testing.T) {
	var calls int32
	viewer := "anon"
	handler := CachePage(New(), PageOptions{
		Prefix: "index_page",
		TTL:    time.Minute,
		Vary:   func(*http.Request) string { return viewer },
	})(counterHandler(&calls, http.StatusOK))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	viewer = "7"
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.NotEqual(t, rec.Body.String(), rec2.Body.String())
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCachePageSkipsErrorsAndPosts(t *testing.T) {
	var calls int32
	c := New()
	handler := CachePage(c, PageOptions{Prefix: "p", TTL: time.Minute})(counterHandler(&calls, http.StatusInternalServerError))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, 0, c.Len())
}

func TestCachePageFillIgnoresClientCancel(t *testing.T) {
	c := New()
	handler := CachePage(c, PageOptions{Prefix: "p", TTL: time.Minute})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.Context().Err(); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("page"))
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "page", rec.Body.String())
	assert.Equal(t, 1, c.Len())
}
