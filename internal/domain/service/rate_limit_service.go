package service

import (
	"context"
	"time"

	"github.com/turtacn/tokenlife/pkg/constants"
)

// RateLimitService defines the interface for rate limiting operations.
// RateLimitService 定义了速率限制操作的接口。
type RateLimitService interface {
	// Allow checks if a request identified by key is allowed under the limit of scope.
	// It returns whether the request is allowed, the number of remaining requests, and the time when the limit resets.
	// Allow 检查请求是否被允许，返回剩余请求数以及限制重置的时间。
	Allow(ctx context.Context, scope constants.RateLimitScope, key string) (allowed bool, remaining int, resetAt time.Time, err error)
}

//Personal.AI order the ending
