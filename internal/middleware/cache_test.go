package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rentals-marketplace/internal/config"
	"github.com/iliyamo/rentals-marketplace/internal/model"
)

func TestEntryRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodeEntry(http.StatusOK, hdr, []byte(`{"items":[]}`))
	require.NoError(t, err)

	status, got, body, ok := decodeEntry(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, `{"items":[]}`, string(body))

	_, _, _, ok = decodeEntry(bs[:5])
	assert.False(t, ok)
	_, _, _, ok = decodeEntry([]byte{0, 0, 0, 200, 0, 0, 1, 0})
	assert.False(t, ok)
}

func TestCacheKey(t *testing.T) {
	e := echo.New()
	key := func(target string) string {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
		c.SetPath("/v1/listings")
		return cacheKey("rentals:cache", c)
	}
	assert.Equal(t, key("/v1/listings?category=drums&x=1"), key("/v1/listings?x=1&category=drums"))
	assert.NotEqual(t, key("/v1/listings?category=drums"), key("/v1/listings?category=guitars"))
	assert.Contains(t, key("/v1/listings"), "rentals:cache:")
}

func TestBodyRecorderLimit(t *testing.T) {
	rec := &bodyRecorder{ResponseWriter: httptest.NewRecorder(), limit: 4}
	_, _ = rec.Write([]byte("abc"))
	assert.False(t, rec.over)
	_, _ = rec.Write([]byte("de"))
	assert.True(t, rec.over)
	assert.Zero(t, rec.buf.Len())
}

func TestPassthroughWithoutRedis(t *testing.T) {
	calls := 0
	h := func(c echo.Context) error {
		calls++
		return c.String(http.StatusOK, "ok")
	}
	e := echo.New()
	cache := ResponseCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Second}, nil)
	limit := RateLimit(config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Second}, nil)
	e.GET("/x", h, cache, limit)

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-Cache"))
	}
	assert.Equal(t, 3, calls)
}

func TestRateKeyAndClientID(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.9")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/sessions")

	assert.Equal(t, "rentals:rl:ip:10.0.0.9:POST /v1/sessions", rateKey("rentals:rl", c))

	SetPrincipal(c, &model.Principal{RenterID: 3})
	assert.Equal(t, "renter:3", clientID(c))
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 1, retryAfterSeconds(0))
	assert.Equal(t, 1, retryAfterSeconds(900))
	assert.Equal(t, 3, retryAfterSeconds(2100))
}
