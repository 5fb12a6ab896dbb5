package service

import (
	"time"

	"github.com/turtacn/tokenlife/pkg/constants"
)

// Metrics defines the interface for collecting business metrics.
// Errors are passed as-is; implementations reduce them to labels.
// Metrics 定义了收集业务指标的接口。
type Metrics interface {
	// RecordLogin records a password login and how long it took.
	RecordLogin(duration time.Duration, err error)

	// RecordRotation records a refresh token rotation.
	RecordRotation(err error)

	// RecordLogout records a logout.
	RecordLogout(err error)

	// RecordReplayDetected records a consumed refresh token being presented again.
	// RecordReplayDetected 记录已消费的刷新令牌被再次出示。
	RecordReplayDetected()

	// RecordSessionsRevoked records the number of sessions removed at once.
	RecordSessionsRevoked(count int)

	// RecordRateLimitHit records an event when a rate limit is triggered.
	// RecordRateLimitHit 记录触发速率限制的事件。
	RecordRateLimitHit(scope constants.RateLimitScope)

	// RecordDenylistCheck records a denylist lookup and where it was answered.
	RecordDenylistCheck(source string, hit bool)
}

//Personal.AI order the ending
