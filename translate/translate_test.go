package translate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peptideprofessor/metrics"
)

const deeplOK = `{"translations":[{"detected_source_language":"EN","text":"Hallo Welt"}]}`

type fakeDeepL struct {
	calls  atomic.Int32
	status int
}

func (f *fakeDeepL) server(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		assert.Equal(t, "DeepL-Auth-Key k", r.Header.Get("Authorization"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "Hello world", r.PostForm.Get("text"))
		assert.Equal(t, "DE", r.PostForm.Get("target_lang"))
		if f.status != 0 {
			http.Error(w, "quota exceeded", f.status)
			return
		}
		w.Write([]byte(deeplOK))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func post(h *Handler, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.HandleTranslate(rec, httptest.NewRequest("POST", "/api/translate", strings.NewReader(body)))
	return rec
}

func TestHandleTranslate_PassThroughAndCache(t *testing.T) {
	fake := &fakeDeepL{}
	srv := fake.server(t)
	h := &Handler{Client: NewClient("k", srv.URL, NewMemoryCache(100, time.Hour), time.Hour, metrics.New())}

	rec := post(h, `{"text":"Hello world","target_lang":"de"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, deeplOK, rec.Body.String())

	rec = post(h, `{"text":"Hello world","target_lang":"DE"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, deeplOK, rec.Body.String())
	assert.Equal(t, int32(1), fake.calls.Load(), "second call served from cache")
}

func TestHandleTranslate_Errors(t *testing.T) {
	h := &Handler{Client: NewClient("", "", nil, 0, nil)}
	rec := post(h, `{"text":"Hello world","target_lang":"de"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"detail":"Translation API key not configured"}`, rec.Body.String())

	fake := &fakeDeepL{status: http.StatusForbidden}
	srv := fake.server(t)
	h = &Handler{Client: NewClient("k", srv.URL, NewMemoryCache(10, time.Hour), time.Hour, nil)}
	rec = post(h, `{"text":"Hello world","target_lang":"de"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"detail":"Translation service error"}`, rec.Body.String())

	// Failures are not cached.
	post(h, `{"text":"Hello world","target_lang":"de"}`)
	assert.Equal(t, int32(2), fake.calls.Load())

	rec = post(h, `{"text":"Hello world"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t, `{"detail":"target_lang is required"}`, rec.Body.String())
}

func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	c, err := NewRedisCache(ctx, "redis://"+mr.Addr())
	require.NoError(t, err)
	defer c.Close()

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", []byte(deeplOK), time.Minute))
	got, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, deeplOK, string(got))
	assert.True(t, mr.Exists("translate:k"))

	mr.FastForward(2 * time.Minute)
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewRedisCache_BadURL(t *testing.T) {
	_, err := NewRedisCache(context.Background(), "not a url")
	assert.Error(t, err)
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(2, time.Hour)

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))
	_, ok, _ := c.Get(ctx, "a")
	require.True(t, ok)
	require.NoError(t, c.Set(ctx, "c", []byte("3"), 0))

	assert.Equal(t, 2, c.Len())
	_, ok, _ = c.Get(ctx, "b")
	assert.False(t, ok, "b was least recently used")
	v, ok, _ := c.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), v)
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(10, 50*time.Millisecond)

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Hour))
	_, ok, _ := c.Get(ctx, "a")
	require.True(t, ok)

	assert.Eventually(t, func() bool {
		_, ok, _ := c.Get(ctx, "a")
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(8, time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := CacheKey("text", string(rune('a'+i)))
			for j := 0; j < 100; j++ {
				assert.NoError(t, c.Set(ctx, key, []byte("v"), 0))
				_, _, err := c.Get(ctx, key)
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 8)
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, CacheKey("x", "de"), CacheKey("x", "DE"))
	assert.NotEqual(t, CacheKey("x", "de"), CacheKey("x", "fr"))
}
