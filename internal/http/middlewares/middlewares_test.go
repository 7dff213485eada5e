package middlewares

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/bootjohn/internal/rate"
	"github.com/dropDatabas3/bootjohn/internal/security/apikey"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestChainOrder(t *testing.T) {
	var order []string
	mk := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(okHandler(), mk("a"), mk("b"), mk("c"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestWithRequestID(t *testing.T) {
	t.Run("generates when absent", func(t *testing.T) {
		var seen string
		h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = GetRequestID(r.Context())
		}), WithRequestID())

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		require.NotEmpty(t, seen)
		assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
	})

	t.Run("propagates client id", func(t *testing.T) {
		h := Chain(okHandler(), WithRequestID())
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "abc-123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
	})
}

func TestWithRecover(t *testing.T) {
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}), WithRecover())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRequireAPIKey(t *testing.T) {
	hash, err := apikey.Hash("s3cret")
	require.NoError(t, err)

	t.Run("passthrough without hash", func(t *testing.T) {
		h := Chain(okHandler(), RequireAPIKey(apikey.New("")))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing key", func(t *testing.T) {
		h := Chain(okHandler(), RequireAPIKey(apikey.New(hash)))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong key", func(t *testing.T) {
		h := Chain(okHandler(), RequireAPIKey(apikey.New(hash)))
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("X-Admin-API-Key", "nope")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("valid key", func(t *testing.T) {
		h := Chain(okHandler(), RequireAPIKey(apikey.New(hash)))
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("X-Admin-API-Key", "s3cret")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

type stubLimiter struct {
	res rate.Result
	err error
}

func (s stubLimiter) Allow(ctx context.Context, key string) (rate.Result, error) {
	return s.res, s.err
}

func TestWithRateLimit(t *testing.T) {
	t.Run("allowed", func(t *testing.T) {
		h := Chain(okHandler(), WithRateLimit(stubLimiter{res: rate.Result{Allowed: true}}, nil))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bootscript?name=nid01", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rejected", func(t *testing.T) {
		h := Chain(okHandler(), WithRateLimit(stubLimiter{res: rate.Result{Allowed: false, RetryAfter: 3 * time.Second}}, nil))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bootscript?name=nid01", nil))
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	})

	t.Run("limiter failure lets request pass", func(t *testing.T) {
		h := Chain(okHandler(), WithRateLimit(stubLimiter{err: assert.AnError}, nil))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bootscript?name=nid01", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
