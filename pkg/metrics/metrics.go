package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the clan service
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Database metrics
	DatabaseConnections   prometheus.Gauge
	DatabaseQueriesTotal  *prometheus.CounterVec
	DatabaseQueryDuration *prometheus.HistogramVec

	// Redis metrics
	RedisConnections     prometheus.Gauge
	RedisCommandsTotal   *prometheus.CounterVec
	RedisCommandDuration *prometheus.HistogramVec

	// Business metrics
	ClanOperationsTotal      *prometheus.CounterVec
	JoinRequestsTotal        *prometheus.CounterVec
	LeaderboardQueryDuration *prometheus.HistogramVec
	CacheHits                *prometheus.CounterVec
	CacheMisses              *prometheus.CounterVec
	RateLimitedTotal         prometheus.Counter

	// Health metrics
	DependencyHealth *prometheus.GaugeVec
}

// New registers all metrics with the default Prometheus registry
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers all metrics with reg. Tests pass a fresh registry.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clan_service_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "clan_service_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "clan_service_http_requests_in_flight",
				Help: "Current number of HTTP requests being processed",
			},
		),

		DatabaseConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "clan_service_database_connections",
				Help: "Current number of database connections",
			},
		),
		DatabaseQueriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clan_service_database_queries_total",
				Help: "Total number of database queries",
			},
			[]string{"operation", "status"},
		),
		DatabaseQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "clan_service_database_query_duration_seconds",
				Help:    "Duration of database queries in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		RedisConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "clan_service_redis_connections",
				Help: "Current number of Redis connections",
			},
		),
		RedisCommandsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clan_service_redis_commands_total",
				Help: "Total number of Redis commands",
			},
			[]string{"command", "status"},
		),
		RedisCommandDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "clan_service_redis_command_duration_seconds",
				Help:    "Duration of Redis commands in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"command"},
		),

		ClanOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clan_service_clan_operations_total",
				Help: "Total number of clan lifecycle operations",
			},
			[]string{"operation", "status"},
		),
		JoinRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clan_service_join_requests_total",
				Help: "Total number of join request workflow actions",
			},
			[]string{"action", "status"},
		),
		LeaderboardQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "clan_service_leaderboard_query_duration_seconds",
				Help:    "Duration of leaderboard computations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"metric", "source"},
		),
		CacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clan_service_cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"cache_type"},
		),
		CacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clan_service_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"cache_type"},
		),
		RateLimitedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "clan_service_rate_limited_requests_total",
				Help: "Total number of requests rejected by the rate limiter",
			},
		),

		DependencyHealth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "clan_service_dependency_health",
				Help: "Health status of dependencies (1 = healthy, 0 = unhealthy)",
			},
			[]string{"dependency"},
		),
	}
}

// Initialize sets up initial metric values
func (m *Metrics) Initialize() {
	m.DependencyHealth.WithLabelValues("postgres").Set(0)
	m.DependencyHealth.WithLabelValues("redis").Set(0)
}

// UpdateDependencyHealth updates the health status of a dependency
func (m *Metrics) UpdateDependencyHealth(dependency string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1.0
	}
	m.DependencyHealth.WithLabelValues(dependency).Set(value)
}

// RecordClanOperation counts a lifecycle operation outcome
func (m *Metrics) RecordClanOperation(operation string, err error) {
	if m == nil || m.ClanOperationsTotal == nil {
		return
	}
	m.ClanOperationsTotal.WithLabelValues(operation, statusLabel(err)).Inc()
}

// RecordJoinRequest counts a join request workflow outcome
func (m *Metrics) RecordJoinRequest(action string, err error) {
	if m == nil || m.JoinRequestsTotal == nil {
		return
	}
	m.JoinRequestsTotal.WithLabelValues(action, statusLabel(err)).Inc()
}

// ObserveLeaderboard records how long a ranking computation took
func (m *Metrics) ObserveLeaderboard(metric, source string, started time.Time) {
	if m == nil || m.LeaderboardQueryDuration == nil {
		return
	}
	m.LeaderboardQueryDuration.WithLabelValues(metric, source).Observe(time.Since(started).Seconds())
}

// RecordCacheLookup counts a cache hit or miss
func (m *Metrics) RecordCacheLookup(cacheType string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHits.WithLabelValues(cacheType).Inc()
		return
	}
	m.CacheMisses.WithLabelValues(cacheType).Inc()
}

// RecordHTTPRequest counts a finished request and observes its duration
func (m *Metrics) RecordHTTPRequest(method, endpoint, status string, duration time.Duration) {
	if m == nil || m.HTTPRequestsTotal == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordRateLimited counts a request rejected by the rate limiter
func (m *Metrics) RecordRateLimited() {
	if m == nil || m.RateLimitedTotal == nil {
		return
	}
	m.RateLimitedTotal.Inc()
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
