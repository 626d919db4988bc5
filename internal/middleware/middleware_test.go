package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/utils"
	"storefront/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestIDMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.GET("/", func(c *gin.Context) {
		id, _ := c.Request.Context().Value(logger.RequestIDKey).(string)
		c.String(http.StatusOK, id)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	generated := w.Header().Get(utils.HeaderRequestID)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(utils.HeaderRequestID, "abc-123")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(utils.HeaderRequestID))
}

func TestCORSMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(CORSMiddleware([]string{"https://shop.example.com"}))
	router.POST("/track", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/track", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://shop.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodPost, "/track", nil)
	req.Header.Set("Origin", "https://other.example.com")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestAdminRequired(t *testing.T) {
	const secret = "test-secret"
	router := gin.New()
	router.GET("/admin", AdminRequired(secret), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("user_id"))
	})

	token, err := utils.GenerateAdminToken("admin-1", "", secret, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", "", http.StatusUnauthorized},
		{"bad token", "Bearer nope", "", http.StatusUnauthorized},
		{"valid header", "Bearer " + token, "", http.StatusOK},
		{"valid query", "", "?access_token=" + token, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set(utils.HeaderAuthorization, tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestIngestRateLimit(t *testing.T) {
	router := gin.New()
	require.NoError(t, router.SetTrustedProxies(nil))
	router.Use(IngestRateLimit(0.001, 2))
	router.POST("/track", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(remote, forwarded string) int {
		req := httptest.NewRequest(http.MethodPost, "/track", nil)
		req.RemoteAddr = remote + ":40000"
		if forwarded != "" {
			req.Header.Set(utils.HeaderForwardedFor, forwarded)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("192.0.2.1", ""))
	assert.Equal(t, http.StatusOK, send("192.0.2.1", ""))
	assert.Equal(t, http.StatusTooManyRequests, send("192.0.2.1", ""))
	assert.Equal(t, http.StatusTooManyRequests, send("192.0.2.1", "198.51.100.7"), "rotating X-Forwarded-For does not reset the bucket")
	assert.Equal(t, http.StatusOK, send("192.0.2.2", ""), "limits are per client")
}

func TestLoggingMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RequestIDMiddleware(), LoggingMiddleware(logger.NewNop()))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
