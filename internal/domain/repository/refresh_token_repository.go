// Package repository 定义领域仓储接口
// 仓储接口遵循 DDD 原则，定义领域对象的持久化契约
package repository

import (
	"context"
	"time"

	"github.com/turtacn/tokenlife/internal/domain/models"
)

// RefreshTokenRepository 定义刷新令牌仓储接口
// 记录存在即代表令牌有效；删除记录即吊销令牌
// 实现类：internal/infrastructure/persistence/postgres/refresh_token_repo.go
type RefreshTokenRepository interface {
	// Insert 保存新签发的刷新令牌记录
	// 参数：
	//   - ctx: 请求上下文
	//   - record: 刷新令牌记录，成功后回填 ID
	// 返回：
	//   - error: token 唯一约束冲突时返回 StorageConflict
	Insert(ctx context.Context, record *models.RefreshToken) error

	// FindAndConsume 原子地查找并删除 token 对应的记录
	// 并发调用时只有一个调用者能拿到记录
	// 返回：
	//   - *models.RefreshToken: 被消费的记录；不存在时为 nil
	//   - error: 仅在存储故障时返回
	FindAndConsume(ctx context.Context, token string) (*models.RefreshToken, error)

	// DeleteByRecord 按主键删除记录，记录已不存在时不报错
	DeleteByRecord(ctx context.Context, record *models.RefreshToken) error

	// ListByUser 按创建时间顺序返回用户的全部记录
	ListByUser(ctx context.Context, userID int64) ([]*models.RefreshToken, error)

	// DeleteExpired 删除 expires_at 不晚于 before 的记录，返回删除数量
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

//Personal.AI order the ending
