package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fieldops/fieldservice-api/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(metrics.Middleware)
	r.Get("/developments/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("/developments/{id}", http.MethodGet, "404"))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/developments/abc", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}

	after := testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("/developments/{id}", http.MethodGet, "404"))
	assert.Equal(t, before+2, after)
}
