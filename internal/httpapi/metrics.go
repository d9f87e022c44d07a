package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"hvxhost/internal/manager"
)

const metricsNamespace = "hvxhost"

// Backpressure reasons reported on hvxhost_http_backpressure_total.
const (
	reasonQueue    = "queue"
	reasonDraining = "draining"
)

var (
	requestLabels = []string{"path", "method", "status"}

	httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route pattern, method and status",
	}, requestLabels)

	httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds",
		Buckets:   prometheus.DefBuckets,
	}, requestLabels)

	// Run responses carry output buffers, so sizes range widely.
	httpResponseBytes = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "http",
		Name:      "response_bytes",
		Help:      "Response body sizes in bytes",
		Buckets:   prometheus.ExponentialBuckets(64, 4, 10),
	}, []string{"path"})

	httpInflight = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: "http",
		Name:      "inflight_requests",
		Help:      "In-flight HTTP requests",
	}, []string{"method"})

	backpressureTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "http",
		Name:      "backpressure_total",
		Help:      "Run requests rejected by admission (429) or a draining module (503)",
	}, []string{"reason"})
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, httpResponseBytes, httpInflight, backpressureTotal)
}

// statusRecorder captures the status code and body size.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += n
	return n, err
}

// MetricsMiddleware instruments requests for Prometheus. It must be installed
// with r.Use on the router: the path label is read after routing so chi has
// filled in the route pattern and module IDs never become label values.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := r.Method
		httpInflight.WithLabelValues(method).Inc()
		defer httpInflight.WithLabelValues(method).Dec()

		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sr, r)

		path := routePatternOrPath(r)
		status := itoa(sr.status)
		httpRequestsTotal.WithLabelValues(path, method, status).Inc()
		httpRequestDuration.WithLabelValues(path, method, status).Observe(time.Since(start).Seconds())
		httpResponseBytes.WithLabelValues(path).Observe(float64(sr.bytes))
	})
}

func routePatternOrPath(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// backpressureReason classifies a run error; empty means the error is not
// an admission rejection.
func backpressureReason(err error) string {
	switch {
	case manager.IsTooBusy(err):
		return reasonQueue
	case manager.IsDraining(err):
		return reasonDraining
	}
	return ""
}

// IncrementBackpressure counts one rejected run.
func IncrementBackpressure(reason string) {
	if reason == "" {
		reason = "unspecified"
	}
	backpressureTotal.WithLabelValues(reason).Inc()
}

// itoa formats small non-negative ints such as status codes.
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
