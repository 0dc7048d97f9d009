package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/shard-legends/hatchery-service/pkg/metrics"
)

// unmatchedRoute labels requests no route matched, so scanners hitting
// random paths cannot blow up the label set
const unmatchedRoute = "unmatched"

func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			metrics.HTTPRequestsInFlight.Inc()
			defer func() {
				metrics.HTTPRequestsInFlight.Dec()
				metrics.RecordHTTPRequest(r.Method, routeLabel(r), strconv.Itoa(statusOf(ww)), time.Since(start).Seconds())
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// routeLabel is the matched chi pattern, e.g. /hatchery/staged/{creatureID}
func routeLabel(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return unmatchedRoute
	}
	if pattern := rctx.RoutePattern(); pattern != "" {
		return pattern
	}
	return unmatchedRoute
}

// statusOf reports 200 for handlers that wrote a body without WriteHeader
func statusOf(ww middleware.WrapResponseWriter) int {
	if status := ww.Status(); status != 0 {
		return status
	}
	return http.StatusOK
}
