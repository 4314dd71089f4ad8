package middleware

import (
	"net/http"
	"strconv"

	"sharedcart/pkg/metrics"
)

// statusRecorder captures the response code for the metrics counter.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// MetricsMiddleware counts requests by route and status. Paths the mux
// does not know collapse into a single "unmatched" label, so scanner
// traffic cannot inflate the label set. The websocket route is skipped;
// upgraded connections never write a normal response.
func MetricsMiddleware(collector *metrics.Collector, mux *http.ServeMux) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" {
			mux.ServeHTTP(w, r)
			return
		}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		mux.ServeHTTP(rec, r)

		_, pattern := mux.Handler(r)
		if pattern == "" {
			pattern = "unmatched"
		}
		collector.HTTPRequest(pattern, strconv.Itoa(rec.status))
	})
}
