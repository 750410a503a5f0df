package repository

import (
	"context"

	"richmenu_console/internal/console/models"
)

// OperationRepository 操作记录数据访问接口
type OperationRepository interface {
	// Record 写入一条操作记录
	Record(ctx context.Context, op *models.Operation) error

	// ListRecent 按时间倒序列出最近的操作
	ListRecent(ctx context.Context, limit int64) ([]*models.Operation, error)

	// ListByRichMenu 列出某个菜单的全部操作
	ListByRichMenu(ctx context.Context, richMenuID string) ([]*models.Operation, error)

	// EnsureIndexes 确保索引存在
	EnsureIndexes(ctx context.Context, retentionDays int) error
}
