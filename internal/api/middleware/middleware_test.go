package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickpen/backend/internal/infrastructure/config"
)

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"request_id": GetRequestID(c)})
	})
	return r
}

func get(r *gin.Engine, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestIDMinted(t *testing.T) {
	r := newRouter(RequestID())

	w := get(r, nil)
	require.Equal(t, http.StatusOK, w.Code)

	rid := w.Header().Get(HeaderRequestID)
	assert.True(t, strings.HasPrefix(rid, "req_"))
	assert.Contains(t, w.Body.String(), rid)
}

func TestRequestIDPropagated(t *testing.T) {
	r := newRouter(RequestID())

	w := get(r, map[string]string{HeaderRequestID: "req_custom"})
	assert.Equal(t, "req_custom", w.Header().Get(HeaderRequestID))
}

func TestRequestIDRejectsOversized(t *testing.T) {
	r := newRouter(RequestID())

	w := get(r, map[string]string{HeaderRequestID: strings.Repeat("x", 100)})
	rid := w.Header().Get(HeaderRequestID)
	assert.True(t, strings.HasPrefix(rid, "req_"))
}

func TestRateLimitAllowsWithinBudget(t *testing.T) {
	r := newRouter(RateLimit(config.RateLimitConfig{RequestsPerSecond: 100, Burst: 10}))

	for i := 0; i < 5; i++ {
		w := get(r, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRateLimitRejectsBurstOverflow(t *testing.T) {
	r := newRouter(RateLimit(config.RateLimitConfig{RequestsPerSecond: 1, Burst: 2}))

	get(r, nil)
	get(r, nil)
	w := get(r, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestGlobalRateLimit(t *testing.T) {
	r := newRouter(GlobalRateLimit(config.RateLimitConfig{RequestsPerSecond: 1, Burst: 1}))

	assert.Equal(t, http.StatusOK, get(r, nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, nil).Code)
}

func TestCORSHeaders(t *testing.T) {
	r := newRouter(CORS(DefaultCORSConfig()))

	w := get(r, map[string]string{"Origin": "http://localhost:5173"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
