package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
)

// Config 应用程序配置
type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"` // HTTP 监听地址
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`  // 日志级别

	Line    LineConfig
	History HistoryConfig
	Notify  NotifyConfig
}

// LineConfig LINE Messaging API 相关配置
type LineConfig struct {
	APIBaseURL     string        `env:"LINE_API_BASE_URL" envDefault:"https://api.line.me"`
	DataAPIBaseURL string        `env:"LINE_DATA_API_BASE_URL" envDefault:"https://api-data.line.me"`
	TimeoutSeconds int           `env:"LINE_TIMEOUT_SECONDS" envDefault:"15"`
	MaxUploadMB    int           `env:"MAX_UPLOAD_MB" envDefault:"1"`
	Timeout        time.Duration // 由 TimeoutSeconds 计算
}

// HistoryConfig 操作记录（MongoDB）配置
// MongoURI 为空时不记录操作历史
type HistoryConfig struct {
	MongoURI      string `env:"MONGO_URI"`
	MongoDBName   string `env:"MONGO_DB_NAME" envDefault:"richmenu_console"`
	RetentionDays int    `env:"HISTORY_RETENTION_DAYS" envDefault:"30"`
}

// NotifyConfig Telegram 运维通知配置
type NotifyConfig struct {
	TelegramToken string  `env:"TELEGRAM_NOTIFY_TOKEN"`
	ChatIDsRaw    string  `env:"TELEGRAM_NOTIFY_CHAT_IDS"`
	ChatIDs       []int64 // 由 ChatIDsRaw 解析
}

// Enabled 是否启用操作历史
func (h HistoryConfig) Enabled() bool {
	return strings.TrimSpace(h.MongoURI) != ""
}

// Enabled 是否启用 Telegram 通知
func (n NotifyConfig) Enabled() bool {
	return n.TelegramToken != "" && len(n.ChatIDs) > 0
}

// MaxUploadBytes 图片上传上限（字节）
func (l LineConfig) MaxUploadBytes() int64 {
	return int64(l.MaxUploadMB) << 20
}

// MaxRetentionDays 历史记录最长保留天数
const MaxRetentionDays = 3650

// Load 从环境变量加载配置
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse env config: %w", err)
	}

	cfg.Line.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.Line.APIBaseURL), "/")
	cfg.Line.DataAPIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.Line.DataAPIBaseURL), "/")
	if cfg.Line.APIBaseURL == "" || cfg.Line.DataAPIBaseURL == "" {
		return nil, fmt.Errorf("LINE_API_BASE_URL and LINE_DATA_API_BASE_URL cannot be empty")
	}

	if cfg.Line.TimeoutSeconds < 1 {
		return nil, fmt.Errorf("LINE_TIMEOUT_SECONDS must be >= 1, got %d", cfg.Line.TimeoutSeconds)
	}
	cfg.Line.Timeout = time.Duration(cfg.Line.TimeoutSeconds) * time.Second

	if cfg.Line.MaxUploadMB < 1 {
		return nil, fmt.Errorf("MAX_UPLOAD_MB must be >= 1, got %d", cfg.Line.MaxUploadMB)
	}

	if cfg.History.RetentionDays < 1 || cfg.History.RetentionDays > MaxRetentionDays {
		return nil, fmt.Errorf("HISTORY_RETENTION_DAYS must be between 1 and %d, got %d", MaxRetentionDays, cfg.History.RetentionDays)
	}

	// 解析 TELEGRAM_NOTIFY_CHAT_IDS
	if strings.TrimSpace(cfg.Notify.ChatIDsRaw) != "" {
		ids, err := parseChatIDs(cfg.Notify.ChatIDsRaw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse TELEGRAM_NOTIFY_CHAT_IDS: %w", err)
		}
		cfg.Notify.ChatIDs = ids
	}

	return cfg, nil
}

// parseChatIDs 解析逗号分隔的聊天ID字符串
// 支持格式: "123456789" 或 "123456789,-100987654321"
func parseChatIDs(s string) ([]int64, error) {
	parts := strings.Split(s, ",")
	ids := make([]int64, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chat ID %q: %w", part, err)
		}
		ids = append(ids, id)
	}

	return ids, nil
}
