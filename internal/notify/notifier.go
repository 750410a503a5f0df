package notify

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"richmenu_console/internal/config"
	"richmenu_console/internal/console/models"
	"richmenu_console/internal/logger"

	"github.com/go-telegram/bot"
	botModels "github.com/go-telegram/bot/models"
)

const sendTimeout = 10 * time.Second

// Notifier 操作通知接口
type Notifier interface {
	Notify(op models.Operation)
	Close()
}

// Nop 未配置通知时使用
type Nop struct{}

func (Nop) Notify(models.Operation) {}
func (Nop) Close()                  {}

// Sender 发送消息的最小接口（*bot.Bot 满足）
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*botModels.Message, error)
}

// TelegramNotifier 通过 Telegram Bot 向运维群推送菜单操作
type TelegramNotifier struct {
	sender  Sender
	chatIDs []int64
	pool    *WorkerPool
}

// Config Telegram 通知配置
type Config struct {
	Token   string
	ChatIDs []int64
	Options []bot.Option // 额外的 bot 选项（测试时可指定 server url）
}

// New 创建 Telegram 通知器
func New(cfg Config) (*TelegramNotifier, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram token cannot be empty")
	}
	if len(cfg.ChatIDs) == 0 {
		return nil, fmt.Errorf("telegram chat ids cannot be empty")
	}

	// 启动时不调用 getMe，避免 Telegram 不可用时阻塞服务启动
	opts := append([]bot.Option{bot.WithSkipGetMe()}, cfg.Options...)
	b, err := bot.New(cfg.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return NewWithSender(b, cfg.ChatIDs), nil
}

// NewWithSender 使用自定义发送者创建通知器
func NewWithSender(sender Sender, chatIDs []int64) *TelegramNotifier {
	return &TelegramNotifier{
		sender:  sender,
		chatIDs: append([]int64(nil), chatIDs...),
		pool:    NewWorkerPool(2, 64),
	}
}

// InitFromConfig 从应用配置初始化通知器；未配置时返回 Nop
func InitFromConfig(cfg *config.Config) (Notifier, error) {
	if !cfg.Notify.Enabled() {
		return Nop{}, nil
	}
	n, err := New(Config{Token: cfg.Notify.TelegramToken, ChatIDs: cfg.Notify.ChatIDs})
	if err != nil {
		return nil, err
	}
	logger.L().Infof("Telegram notifier enabled for %d chat(s)", len(cfg.Notify.ChatIDs))
	return n, nil
}

// Notify 异步推送操作通知，不阻塞调用方
func (n *TelegramNotifier) Notify(op models.Operation) {
	text := FormatOperation(op)
	n.pool.Submit(func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, sendTimeout)
		defer cancel()

		for _, chatID := range n.chatIDs {
			_, err := n.sender.SendMessage(ctx, &bot.SendMessageParams{
				ChatID:    chatID,
				Text:      text,
				ParseMode: botModels.ParseModeHTML,
			})
			if err != nil {
				logger.L().Warnf("Failed to send operation notice: chat_id=%d kind=%s err=%v", chatID, op.Kind, err)
			}
		}
	})
}

// Close 等待队列中的通知发送完毕
func (n *TelegramNotifier) Close() {
	n.pool.Shutdown()
}

var (
	successTitles = map[string]string{
		models.OperationCreate:     "Rich menu created",
		models.OperationSetDefault: "Default rich menu changed",
		models.OperationDelete:     "Rich menu deleted",
	}
	failureTitles = map[string]string{
		models.OperationCreate:     "Rich menu creation failed",
		models.OperationSetDefault: "Default rich menu change failed",
		models.OperationDelete:     "Rich menu deletion failed",
	}
)

// FormatOperation 生成通知正文（HTML）
func FormatOperation(op models.Operation) string {
	var sb strings.Builder

	icon, titles := "✅", successTitles
	if !op.Succeeded() {
		icon, titles = "❌", failureTitles
	}
	title, ok := titles[op.Kind]
	if !ok {
		title = "Rich menu operation: " + op.Kind
	}

	fmt.Fprintf(&sb, "%s <b>%s</b>\n", icon, html.EscapeString(title))
	if op.MenuName != "" {
		fmt.Fprintf(&sb, "Name: %s\n", html.EscapeString(op.MenuName))
	}
	if op.RichMenuID != "" {
		fmt.Fprintf(&sb, "ID: <code>%s</code>\n", html.EscapeString(op.RichMenuID))
	}
	if op.Step != "" && !op.Succeeded() {
		fmt.Fprintf(&sb, "Step: %s\n", html.EscapeString(op.Step))
	}
	if op.Error != "" {
		fmt.Fprintf(&sb, "Error: %s\n", html.EscapeString(truncate(op.Error, 300)))
	}
	if op.RequestID != "" {
		fmt.Fprintf(&sb, "Request: <code>%s</code>", html.EscapeString(op.RequestID))
	}

	return strings.TrimRight(sb.String(), "\n")
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}
