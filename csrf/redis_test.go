package csrf

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestRedisStorage(t *testing.T) {
	t.Parallel()

	mr, rdb := newTestRedis(t)
	store, err := NewRedisStorage(rdb, "csrf", WithSecret([]byte("s3cr3t")))
	require.NoError(t, err)

	r1 := sessionRequest(http.MethodGet, "sess-1")
	old, err := store.Get(r1)
	require.NoError(t, err)
	assert.Empty(t, old)
	require.NoError(t, store.SaveToken(httptest.NewRecorder(), r1))

	stored, err := mr.Get("csrf_sess-1")
	require.NoError(t, err)
	assert.Len(t, stored, 64)

	r2 := sessionRequest(http.MethodPost, "sess-1")
	got, err := store.Get(r2)
	require.NoError(t, err)
	assert.Equal(t, stored, got)

	// existing token, nothing issued: no write
	require.NoError(t, store.SaveToken(httptest.NewRecorder(), r2))
	after, err := mr.Get("csrf_sess-1")
	require.NoError(t, err)
	assert.Equal(t, stored, after)
	assert.Zero(t, mr.TTL("csrf_sess-1"))
}

func TestRedisBackendTTL(t *testing.T) {
	t.Parallel()

	mr, rdb := newTestRedis(t)
	b := NewRedisBackend(rdb, "csrf", WithRedisTTL(time.Hour))

	r := sessionRequest(http.MethodGet, "sess-1")
	require.NoError(t, b.Store(nil, r, "abc"))
	assert.Equal(t, time.Hour, mr.TTL("csrf_sess-1"))

	mr.FastForward(2 * time.Hour)
	tok, err := b.Load(r)
	require.NoError(t, err)
	assert.Empty(t, tok)
}

func TestRedisBackendIdentifier(t *testing.T) {
	t.Parallel()

	_, rdb := newTestRedis(t)

	t.Run("missing identifier", func(t *testing.T) {
		b := NewRedisBackend(rdb, "")
		r := httptest.NewRequest(http.MethodGet, "/", nil)

		_, err := b.Load(r)
		require.ErrorIs(t, err, ErrMissingIdentifier)
		require.ErrorIs(t, b.Store(nil, r, "abc"), ErrMissingIdentifier)
	})

	t.Run("custom identifier", func(t *testing.T) {
		b := NewRedisBackend(rdb, "", WithIdentifier(func(r *http.Request) (string, bool) {
			return r.Header.Get("X-Session"), r.Header.Get("X-Session") != ""
		}))
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Session", "42")

		key, err := b.Key(r)
		require.NoError(t, err)
		assert.Equal(t, "csrf_token_42", key)
	})
}

func TestRedisBackendFailure(t *testing.T) {
	t.Parallel()

	mr, rdb := newTestRedis(t)
	store, err := NewRedisStorage(rdb, "csrf", WithSecret([]byte("s3cr3t")))
	require.NoError(t, err)

	mr.SetError("ERR backend unavailable")
	r := sessionRequest(http.MethodGet, "sess-1")

	_, err = store.Get(r)
	require.ErrorIs(t, err, ErrBackend)
	require.ErrorIs(t, store.SaveToken(httptest.NewRecorder(), r), ErrBackend)

	mr.SetError("")
	_, err = store.Get(r)
	require.NoError(t, err)
}

func TestNewRedisStorageNilClient(t *testing.T) {
	t.Parallel()

	_, err := NewRedisStorage(nil, "csrf", WithSecret([]byte("s3cr3t")))
	require.ErrorIs(t, err, ErrInvalidBackend)

	_, err = NewStorage(NewRedisBackend(nil, ""), WithSecret([]byte("s3cr3t")))
	require.ErrorIs(t, err, ErrInvalidBackend)
}
