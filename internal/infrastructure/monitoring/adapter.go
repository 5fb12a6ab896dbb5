// Package monitoring provides logging, metrics and tracing backends and the
// adapters that connect them to the domain's interfaces.
package monitoring

import (
	"time"

	"github.com/turtacn/tokenlife/internal/domain/service"
	"github.com/turtacn/tokenlife/pkg/constants"
	"github.com/turtacn/tokenlife/pkg/errors"
)

// MetricsAdapter implements the domain's service.Metrics interface on top of
// Prometheus. Domain errors are reduced to their error code label.
// MetricsAdapter 实现了域的 service.Metrics 接口，将领域错误转换为错误码标签。
type MetricsAdapter struct {
	metrics *Metrics
}

// NewMetricsAdapter wraps a concrete Prometheus Metrics object.
func NewMetricsAdapter(metrics *Metrics) service.Metrics {
	return &MetricsAdapter{metrics: metrics}
}

func (a *MetricsAdapter) RecordLogin(duration time.Duration, err error) {
	a.metrics.RecordLogin(err == nil, duration, errorCode(err))
}

func (a *MetricsAdapter) RecordRotation(err error) {
	a.metrics.RecordRotation(err == nil, errorCode(err))
}

func (a *MetricsAdapter) RecordLogout(err error) {
	a.metrics.RecordLogout(err == nil)
}

func (a *MetricsAdapter) RecordReplayDetected() {
	a.metrics.RecordReplayDetected()
}

func (a *MetricsAdapter) RecordSessionsRevoked(count int) {
	a.metrics.RecordSessionsRevoked(count)
}

func (a *MetricsAdapter) RecordRateLimitHit(scope constants.RateLimitScope) {
	a.metrics.RecordRateLimitHit(string(scope))
}

func (a *MetricsAdapter) RecordDenylistCheck(source string, hit bool) {
	a.metrics.RecordDenylistCheck(source, hit)
}

// errorCode maps an error to its label value. Errors outside the taxonomy are
// reported as server errors.
func errorCode(err error) string {
	if err == nil {
		return ""
	}
	if appErr, ok := errors.AsAuthError(err); ok {
		return string(appErr.Code())
	}
	return string(constants.ErrCodeServerError)
}

//Personal.AI order the ending
