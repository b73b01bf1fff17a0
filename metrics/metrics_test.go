package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareCountsByRoutePattern(t *testing.T) {
	assert := require.New(t)
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(Middleware())
	router.GET("/api/items/:id", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/items/:id", "418"))

	for _, id := range []string{"1", "2"} {
		w := httptest.NewRecorder()
		req, err := http.NewRequest(http.MethodGet, "/api/items/"+id, nil)
		assert.NoError(err)
		router.ServeHTTP(w, req)
		assert.Equal(http.StatusTeapot, w.Code)
	}

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/items/:id", "418"))
	assert.Equal(before+2, after)
}

func TestObserveModelCall(t *testing.T) {
	assert := require.New(t)

	before := testutil.ToFloat64(modelRequestsTotal.WithLabelValues("gemini", "m", "error"))
	ObserveModelCall("gemini", "m", errors.New("boom"), time.Second)
	ObserveModelCall("gemini", "m", nil, time.Second)

	assert.Equal(before+1, testutil.ToFloat64(modelRequestsTotal.WithLabelValues("gemini", "m", "error")))
	assert.GreaterOrEqual(testutil.ToFloat64(modelRequestsTotal.WithLabelValues("gemini", "m", "success")), 1.0)
}
