package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestAuditLoggerOmitsQueryString(t *testing.T) {
	var buf bytes.Buffer
	previous := gin.DefaultWriter
	gin.DefaultWriter = &buf
	defer func() { gin.DefaultWriter = previous }()

	router := gin.New()
	router.Use(AuditLogger())
	router.Use(CorrelationID())
	router.GET("/api/v1/feedback/entry", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/feedback/entry?patient_id=patient-1&nct_id=NCT01234567", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	line := buf.String()
	require.Contains(t, line, `"path":"/api/v1/feedback/entry"`)
	assert.NotContains(t, line, "patient-1")
	assert.NotContains(t, line, "patient_id")
}

func TestRequestTimeoutSetsDeadline(t *testing.T) {
	router := gin.New()
	router.Use(RequestTimeout(50 * time.Millisecond))

	var hadDeadline bool
	var expired bool
	router.GET("/slow", func(c *gin.Context) {
		_, hadDeadline = c.Request.Context().Deadline()
		select {
		case <-c.Request.Context().Done():
			expired = true
		case <-time.After(200 * time.Millisecond):
		}
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/slow", nil))

	assert.True(t, hadDeadline, "handler should see a request deadline")
	assert.True(t, expired, "context should expire once the budget is spent")
}

func TestCorrelationIDGeneratesWhenMissing(t *testing.T) {
	router := gin.New()
	router.Use(CorrelationID())
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("correlation_id"))
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
	assert.Equal(t, rec.Header().Get("X-Correlation-ID"), rec.Body.String())
}
