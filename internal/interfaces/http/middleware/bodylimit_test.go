package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erp/accounting/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newEventsRouter(limit int64) *gin.Engine {
	router := gin.New()
	router.Use(BodyLimit(limit))
	router.POST("/events", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.String(http.StatusBadRequest, "body too large")
			return
		}
		c.Status(http.StatusAccepted)
	})
	router.GET("/entries", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestBodyLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	envelope := `{"type":"PaymentCompleted","version":1,"payload":{}}`

	tests := []struct {
		name          string
		limit         int64
		method        string
		path          string
		body          string
		contentLength int64
		status        int
	}{
		{"envelope within limit", 1024, http.MethodPost, "/events", envelope, int64(len(envelope)), http.StatusAccepted},
		{"declared length over limit", 16, http.MethodPost, "/events", envelope, int64(len(envelope)), http.StatusRequestEntityTooLarge},
		{"chunked body over limit", 16, http.MethodPost, "/events", envelope, -1, http.StatusBadRequest},
		{"no body", 8, http.MethodGet, "/entries", "", 0, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req := httptest.NewRequest(tt.method, tt.path, body)
			req.ContentLength = tt.contentLength
			w := httptest.NewRecorder()
			newEventsRouter(tt.limit).ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
		})
	}

	t.Run("rejection carries the request id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(envelope))
		req.Header.Set("X-Request-ID", "req-large")
		w := httptest.NewRecorder()
		newEventsRouter(8).ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeRequestTooLarge)
		assert.Contains(t, w.Body.String(), `"request_id":"req-large"`)
	})
}
