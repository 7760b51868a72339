package obs

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP metrics.
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Domain metrics.
var (
	fileGrantsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sheetshare_file_grants_total",
			Help: "File access grant attempts by result.",
		},
		[]string{"result"},
	)

	auditFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sheetshare_audit_write_failures_total",
			Help: "Audit entries a sink failed to persist.",
		},
		[]string{"sink"},
	)

	loginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sheetshare_logins_total",
			Help: "Login attempts by result.",
		},
		[]string{"result"},
	)
)

var initOnce sync.Once

// Init registers metrics in the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight, httpRequestsTotal, httpRequestDuration,
			fileGrantsTotal, auditFailuresTotal, loginsTotal,
		)
	})
}

// Handler serves the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveGrant counts a file grant attempt: granted, already_granted or failed.
func ObserveGrant(result string) { fileGrantsTotal.WithLabelValues(result).Inc() }

// ObserveAuditFailure counts an audit entry lost by sink.
func ObserveAuditFailure(sink string) { auditFailuresTotal.WithLabelValues(sink).Inc() }

// ObserveLogin counts a login attempt: ok, invalid or locked.
func ObserveLogin(result string) { loginsTotal.WithLabelValues(result).Inc() }

// Instrument records in-flight, count and latency per canonical path.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// collections whose next path segment is an entity id.
var idCollections = map[string]bool{
	"records":    true,
	"users":      true,
	"facilities": true,
	"file":       true,
}

// CanonicalPath replaces entity ids with ":id" so metric label cardinality
// stays bounded.
func CanonicalPath(p string) string {
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	if p == "" || p == "/" {
		return "/"
	}
	parts := strings.Split(strings.Trim(p, "/"), "/")
	for i := 1; i < len(parts); i++ {
		if idCollections[parts[i-1]] && parts[i] != "" {
			parts[i] = ":id"
			i++
		}
	}
	return "/" + strings.Join(parts, "/")
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
