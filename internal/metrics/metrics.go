// Package metrics exposes Prometheus collectors for the API and the financing flows.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route, method and status",
		},
		[]string{"route", "method", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// SchedulesGenerated counts schedule rows inserted, by kind (payment or service_order)
	SchedulesGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "schedule_rows_generated_total",
			Help: "Schedule rows inserted by generation runs",
		},
		[]string{"kind"},
	)

	PaymentsCollected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_collected_total",
			Help: "Collected payments by phase",
		},
		[]string{"phase"},
	)

	PaymentsReversed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "payments_reversed_total",
			Help: "Collected payments reversed back to pending",
		},
	)

	LoanTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "investor_loan_transitions_total",
			Help: "Investor loan status transitions",
		},
		[]string{"from", "to"},
	)

	OrdersMaterialized = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "service_orders_materialized_total",
			Help: "Orders created from scheduled service visits",
		},
	)

	JobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "job_runs_total",
			Help: "Background job runs by job and result",
		},
		[]string{"job", "result"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Read cache lookups by result",
		},
		[]string{"cache", "result"},
	)
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and latency labelled by the chi route pattern
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
		HTTPDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
