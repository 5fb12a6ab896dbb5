package monitoring

import (
	"strconv"
	"time"
)

// HTTP request metrics, fed by the gin metrics middleware. path is the
// matched route template, never the raw URL.

func (m *Metrics) ActiveRequestsInc(path, method string) {
	m.HTTPActiveRequests.WithLabelValues(method, path).Inc()
}

func (m *Metrics) ActiveRequestsDec(path, method string) {
	m.HTTPActiveRequests.WithLabelValues(method, path).Dec()
}

func (m *Metrics) ObserveRequest(path, method string, status int, duration time.Duration) {
	m.HTTPRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestLatency.WithLabelValues(method, path).Observe(duration.Seconds())
}
