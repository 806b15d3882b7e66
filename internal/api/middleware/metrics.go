package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts and times requests into reg. Requests are labelled by route
// pattern, so every deploy submission lands under "/*" whatever its path.
func Metrics(reg prometheus.Registerer) func(http.Handler) http.Handler {
	factory := promauto.With(reg)
	requests := factory.NewCounterVec(prometheus.CounterOpts{
		Name: "instance_deploy_http_requests_total",
		Help: "HTTP requests handled, by route and status code.",
	}, []string{"method", "route", "code"})
	latency := factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "instance_deploy_http_request_duration_seconds",
		Help:    "Time to answer an HTTP request.",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"method", "route"})

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			began := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			code := ww.Status()
			if code == 0 {
				code = http.StatusOK
			}

			requests.WithLabelValues(r.Method, route, strconv.Itoa(code)).Inc()
			latency.WithLabelValues(r.Method, route).Observe(time.Since(began).Seconds())
		})
	}
}
