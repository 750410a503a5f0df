package mongo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"richmenu_console/internal/config"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	// DefaultDatabase 未指定库名时使用
	DefaultDatabase = "richmenu_console"
	// DefaultTimeout 连接与 ping 的超时
	DefaultTimeout = 10 * time.Second

	appName = "richmenu_console"
)

// Client 操作历史使用的 MongoDB 连接，绑定一个数据库
type Client struct {
	*mongo.Client
	dbName string
}

// Config 连接参数；Database 与 Timeout 为空时使用默认值
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

func (c Config) withDefaults() (Config, error) {
	c.URI = strings.TrimSpace(c.URI)
	if c.URI == "" {
		return c, fmt.Errorf("MongoDB URI cannot be empty")
	}
	c.Database = strings.TrimSpace(c.Database)
	if c.Database == "" {
		c.Database = DefaultDatabase
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return c, nil
}

// NewClient 连接 MongoDB 并 ping 主节点，失败时断开连接
func NewClient(cfg Config) (*Client, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetAppName(appName).
		SetServerSelectionTimeout(cfg.Timeout)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect MongoDB failed: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping MongoDB failed: %w", err)
	}

	return &Client{Client: client, dbName: cfg.Database}, nil
}

// InitFromConfig 按历史记录配置建立连接
func InitFromConfig(cfg *config.Config) (*Client, error) {
	return NewClient(Config{
		URI:      cfg.History.MongoURI,
		Database: cfg.History.MongoDBName,
	})
}

// Close 断开连接；未初始化时直接返回
func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.Client == nil {
		return nil
	}
	return c.Client.Disconnect(ctx)
}

// Database 历史记录所在的数据库
func (c *Client) Database() *mongo.Database {
	if c == nil || c.Client == nil {
		return nil
	}
	return c.Client.Database(c.dbName)
}

// Ping 检查连接是否可用
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.Client == nil {
		return fmt.Errorf("MongoDB client is not initialized")
	}
	return c.Client.Ping(ctx, readpref.Primary())
}
