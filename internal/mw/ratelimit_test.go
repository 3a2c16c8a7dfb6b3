package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestIPRateLimiter_GetLimiter(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(1), 2)

	a := l.GetLimiter("10.0.0.1")
	assert.Same(t, a, l.GetLimiter("10.0.0.1"))
	assert.NotSame(t, a, l.GetLimiter("10.0.0.2"))
}

func TestRateLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// A near-zero refill rate leaves only the burst.
	r.Use(RateLimiter(rate.Limit(0.001), 2))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	call := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = ip + ":5555"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, call("192.0.2.1"))
	assert.Equal(t, http.StatusOK, call("192.0.2.1"))
	assert.Equal(t, http.StatusTooManyRequests, call("192.0.2.1"))
	assert.Equal(t, http.StatusOK, call("192.0.2.2"), "other clients have their own bucket")
}
