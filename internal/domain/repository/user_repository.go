package repository

import (
	"context"

	"github.com/turtacn/tokenlife/internal/domain/models"
)

// UserRepository 定义用户仓储接口
type UserRepository interface {
	// Create 保存新用户；用户名或邮箱重复时返回 UserExists
	Create(ctx context.Context, user *models.User) error

	// FindByUsername 按用户名查询；不存在时返回 (nil, nil)
	FindByUsername(ctx context.Context, username string) (*models.User, error)

	// FindByID 按 ID 查询；不存在时返回 NotFound
	FindByID(ctx context.Context, id int64) (*models.User, error)

	// UpdatePassword 替换用户的密码哈希
	UpdatePassword(ctx context.Context, id int64, hashedPassword string) error
}

//Personal.AI order the ending
