package repository

import (
	"context"
	"fmt"
	"math"
	"time"

	"richmenu_console/internal/console/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// MongoOperationRepository 操作记录数据访问层（MongoDB 实现）
type MongoOperationRepository struct {
	collection *mongo.Collection
}

// NewMongoOperationRepository 创建操作记录 Repository
func NewMongoOperationRepository(db *mongo.Database) OperationRepository {
	return &MongoOperationRepository{
		collection: db.Collection("operations"),
	}
}

// Record 写入操作记录
func (r *MongoOperationRepository) Record(ctx context.Context, op *models.Operation) error {
	if op.CreatedAt.IsZero() {
		op.CreatedAt = time.Now().UTC()
	}

	_, err := r.collection.InsertOne(ctx, op)
	if err != nil {
		return fmt.Errorf("failed to record operation: %w", err)
	}
	return nil
}

// ListRecent 按时间倒序列出最近的操作
func (r *MongoOperationRepository) ListRecent(ctx context.Context, limit int64) ([]*models.Operation, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	return r.find(ctx, bson.M{}, opts)
}

// ListByRichMenu 列出某个菜单的全部操作
func (r *MongoOperationRepository) ListByRichMenu(ctx context.Context, richMenuID string) ([]*models.Operation, error) {
	if richMenuID == "" {
		return nil, fmt.Errorf("rich menu id is required")
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.find(ctx, bson.M{"rich_menu_id": richMenuID}, opts)
}

func (r *MongoOperationRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*models.Operation, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query operations: %w", err)
	}
	defer cursor.Close(ctx)

	ops := make([]*models.Operation, 0)
	if err := cursor.All(ctx, &ops); err != nil {
		return nil, fmt.Errorf("failed to decode operations: %w", err)
	}
	return ops, nil
}

// TTL 秒数需放得进 int32
const maxRetentionDays = math.MaxInt32 / (24 * 3600)

// EnsureIndexes 确保索引存在
func (r *MongoOperationRepository) EnsureIndexes(ctx context.Context, retentionDays int) error {
	if retentionDays < 1 || retentionDays > maxRetentionDays {
		return fmt.Errorf("retention days must be between 1 and %d, got %d", maxRetentionDays, retentionDays)
	}

	indexes := []mongo.IndexModel{
		// rich_menu_id 索引（按菜单查询历史）
		{
			Keys: bson.D{{Key: "rich_menu_id", Value: 1}},
		},
		// TTL 索引（过期自动删除）
		{
			Keys:    bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(retentionDays * 24 * 3600)),
		},
	}

	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes for operations: %w", err)
	}
	return nil
}
