package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"richmenu_console/internal/app"
	"richmenu_console/internal/config"
	"richmenu_console/internal/logger"
)

func main() {
	// 初始化logger（LOG_LEVEL 在 config 之前读取，保证配置错误也能输出）
	logger.Init("")

	cfg, err := config.Load()
	if err != nil {
		logger.L().Errorf("配置加载失败: %v", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel)

	application, err := app.New(cfg)
	if err != nil {
		logger.L().Errorf("应用初始化失败: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := application.Run(ctx)

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := application.Close(closeCtx); err != nil {
		logger.L().Warnf("关闭服务失败: %v", err)
	}

	if runErr != nil {
		logger.L().Errorf("服务异常退出: %v", runErr)
		os.Exit(1)
	}
	logger.L().Info("服务已退出")
}
