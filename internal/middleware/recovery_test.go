package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/2beens/planfit/internal/telemetry/metrics"
)

func TestPanicRecovery(t *testing.T) {
	metricsManager := metrics.NewTestManager()
	panicky := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("and now this")
	})
	handler := PanicRecovery(metricsManager)(panicky)

	req := httptest.NewRequest("GET", "/plans/next", nil)
	rr := httptest.NewRecorder()

	assert.NotPanics(t, func() {
		handler.ServeHTTP(rr, req)
	})
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestPanicRecovery_NilMetrics(t *testing.T) {
	panicky := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("and now this")
	})
	handler := PanicRecovery(nil)(panicky)

	rr := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	})
}
