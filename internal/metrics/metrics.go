package metrics

import (
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RequestDuration tracks HTTP request duration in seconds by method, path, status.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// RequestTotal counts HTTP requests by method, path, status.
	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// ExpensesCreated counts committed expense creations.
	ExpensesCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "spend_expenses_created_total",
			Help: "Total number of expenses created",
		},
	)

	// LimitRejections counts expense writes refused because of a category limit.
	LimitRejections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "spend_limit_rejections_total",
			Help: "Total number of expense writes rejected by a category limit",
		},
	)

	// AuditRecords counts committed audit records by entity type and action.
	AuditRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spend_audit_records_total",
			Help: "Total number of audit records written",
		},
		[]string{"entity_type", "action"},
	)

	// Panics counts handler panics turned into 500 responses.
	Panics = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "spend_http_panics_total",
			Help: "Total number of recovered handler panics",
		},
	)

	// ReportCacheHits counts report cache lookups by result (hit, miss).
	ReportCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spend_report_cache_lookups_total",
			Help: "Total number of report cache lookups by result",
		},
		[]string{"result"},
	)
)

var (
	numericPathSegment = regexp.MustCompile(`/[0-9]+(/|$)`)
	initOnce           sync.Once
)

func init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestDuration, RequestTotal, ExpensesCreated, LimitRejections, AuditRecords, Panics, ReportCacheHits)
	})
}

// NormalizePath reduces cardinality by replacing numeric path segments with {id}.
// Route patterns pass through unchanged; raw paths like /expenses/123 become /expenses/{id}.
func NormalizePath(path string) string {
	return numericPathSegment.ReplaceAllString(path, "/{id}$1")
}

// RecordRequest records duration and count for an HTTP request.
func RecordRequest(method, path string, statusCode int, durationSeconds float64) {
	path = NormalizePath(path)
	status := strconv.Itoa(statusCode)
	RequestDuration.WithLabelValues(method, path, status).Observe(durationSeconds)
	RequestTotal.WithLabelValues(method, path, status).Inc()
}

// IncExpensesCreated increments the created expenses counter (call after commit).
func IncExpensesCreated() {
	ExpensesCreated.Inc()
}

// IncLimitRejections increments the limit rejection counter.
func IncLimitRejections() {
	LimitRejections.Inc()
}

// IncAuditRecords increments the audit counter for a committed record.
func IncAuditRecords(entityType, action string) {
	AuditRecords.WithLabelValues(entityType, action).Inc()
}

func IncPanics() {
	Panics.Inc()
}

// ObserveCacheLookup records a report cache hit or miss.
func ObserveCacheLookup(hit bool) {
	if hit {
		ReportCacheHits.WithLabelValues("hit").Inc()
		return
	}
	ReportCacheHits.WithLabelValues("miss").Inc()
}

// Snapshot sums every spend_* counter of the default registry by metric name, for the
// periodic metrics log line.
func Snapshot() (map[string]float64, error) {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64)
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "spend_") {
			continue
		}
		var sum float64
		for _, m := range mf.GetMetric() {
			sum += m.GetCounter().GetValue()
		}
		out[mf.GetName()] = sum
	}
	return out, nil
}
