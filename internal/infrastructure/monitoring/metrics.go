package monitoring

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics manages the Prometheus metrics.
type Metrics struct {
	LoginRequests    *prometheus.CounterVec
	LoginLatency     prometheus.Histogram
	Rotations        *prometheus.CounterVec
	Logouts          *prometheus.CounterVec
	ReplayDetections prometheus.Counter
	SessionsRevoked  prometheus.Counter
	RateLimitHits    *prometheus.CounterVec
	DenylistChecks   *prometheus.CounterVec

	HTTPRequests       *prometheus.CounterVec
	HTTPRequestLatency *prometheus.HistogramVec
	HTTPActiveRequests *prometheus.GaugeVec
}

// NewMetrics creates the Prometheus metrics and registers them with reg.
// A nil reg leaves the collectors unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LoginRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenlife_login_requests_total",
				Help: "Total number of password logins.",
			},
			[]string{"result", "error_code"},
		),
		LoginLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tokenlife_login_latency_seconds",
				Help:    "Latency of password logins, including password hashing.",
				Buckets: prometheus.DefBuckets,
			},
		),
		Rotations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenlife_refresh_rotations_total",
				Help: "Total number of refresh token rotations.",
			},
			[]string{"result", "error_code"},
		),
		Logouts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenlife_logouts_total",
				Help: "Total number of logouts.",
			},
			[]string{"result"},
		),
		ReplayDetections: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tokenlife_refresh_replays_total",
				Help: "Refresh tokens presented after they had already been consumed.",
			},
		),
		SessionsRevoked: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tokenlife_sessions_revoked_total",
				Help: "Refresh sessions removed by bulk revocation.",
			},
		),
		RateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenlife_rate_limit_hits_total",
				Help: "Total number of rate limit hits.",
			},
			[]string{"scope"},
		),
		DenylistChecks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenlife_denylist_checks_total",
				Help: "Access token denylist lookups by source and outcome.",
			},
			[]string{"source", "hit"},
		),
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenlife_http_requests_total",
				Help: "Total number of HTTP requests.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tokenlife_http_request_duration_seconds",
				Help:    "Latency of HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPActiveRequests: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tokenlife_http_active_requests",
				Help: "HTTP requests currently being served.",
			},
			[]string{"method", "path"},
		),
	}
}

// RecordLogin records metrics for a login attempt.
func (m *Metrics) RecordLogin(success bool, duration time.Duration, errorCode string) {
	m.LoginRequests.WithLabelValues(result(success), errorCode).Inc()
	m.LoginLatency.Observe(duration.Seconds())
}

// RecordRotation records metrics for a refresh token rotation.
func (m *Metrics) RecordRotation(success bool, errorCode string) {
	m.Rotations.WithLabelValues(result(success), errorCode).Inc()
}

// RecordLogout records metrics for a logout.
func (m *Metrics) RecordLogout(success bool) {
	m.Logouts.WithLabelValues(result(success)).Inc()
}

// RecordReplayDetected counts a consumed refresh token being presented again.
func (m *Metrics) RecordReplayDetected() {
	m.ReplayDetections.Inc()
}

// RecordSessionsRevoked adds count bulk-revoked sessions.
func (m *Metrics) RecordSessionsRevoked(count int) {
	m.SessionsRevoked.Add(float64(count))
}

// RecordRateLimitHit records a rate limit hit.
func (m *Metrics) RecordRateLimitHit(scope string) {
	m.RateLimitHits.WithLabelValues(scope).Inc()
}

// RecordDenylistCheck records a denylist lookup answered by source (local or redis).
func (m *Metrics) RecordDenylistCheck(source string, hit bool) {
	m.DenylistChecks.WithLabelValues(source, strconv.FormatBool(hit)).Inc()
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

//Personal.AI order the ending
