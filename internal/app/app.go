package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"richmenu_console/internal/config"
	"richmenu_console/internal/console"
	"richmenu_console/internal/console/repository"
	"richmenu_console/internal/line"
	"richmenu_console/internal/logger"
	"richmenu_console/internal/mongo"
	"richmenu_console/internal/notify"
	"richmenu_console/internal/richmenu/service"

	"golang.org/x/sync/errgroup"
)

const (
	indexTimeout    = 10 * time.Second
	shutdownTimeout = 15 * time.Second
)

// App 应用服务容器
// 负责管理所有服务的生命周期（初始化、运行、关闭）
type App struct {
	MongoDB  *mongo.Client
	History  repository.OperationRepository
	Notifier notify.Notifier
	Service  service.Service
	Server   *http.Server
}

// New 初始化应用及其所有服务
// 按顺序初始化各个服务，任何服务初始化失败都会返回错误
// 历史记录与通知是可选的：未配置时跳过
func New(cfg *config.Config) (*App, error) {
	app := &App{}

	var recorder service.Recorder
	if cfg.History.Enabled() {
		mongoClient, err := mongo.InitFromConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("init MongoDB failed: %w", err)
		}
		app.MongoDB = mongoClient

		history := repository.NewMongoOperationRepository(mongoClient.Database())
		ctx, cancel := context.WithTimeout(context.Background(), indexTimeout)
		err = history.EnsureIndexes(ctx, cfg.History.RetentionDays)
		cancel()
		if err != nil {
			app.Close(context.Background())
			return nil, fmt.Errorf("ensure operation indexes failed: %w", err)
		}
		app.History = history
		recorder = history
		logger.L().Info("MongoDB initialized successfully, operation history enabled")
	} else {
		logger.L().Info("MONGO_URI not set, operation history disabled")
	}

	notifier, err := notify.InitFromConfig(cfg)
	if err != nil {
		app.Close(context.Background())
		return nil, fmt.Errorf("init notifier failed: %w", err)
	}
	app.Notifier = notifier

	lineClient, err := line.NewClient(cfg.Line)
	if err != nil {
		app.Close(context.Background())
		return nil, fmt.Errorf("init LINE client failed: %w", err)
	}

	app.Service = service.NewRichMenuService(lineClient, service.Options{
		Recorder:      recorder,
		Notifier:      notifier,
		MaxImageBytes: cfg.Line.MaxUploadBytes(),
	})

	server := console.NewServer(app.Service, console.Options{
		History:        app.History,
		MaxUploadBytes: cfg.Line.MaxUploadBytes(),
	})
	app.Server = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return app, nil
}

// Run 启动 HTTP 服务，ctx 取消后优雅关闭
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.L().Infof("HTTP server listening on %s", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		logger.L().Info("HTTP server stopped")
		return nil
	})

	return g.Wait()
}

// Close 优雅关闭所有服务
// 应该在应用退出时调用，确保资源正确释放
func (a *App) Close(ctx context.Context) error {
	if a.Notifier != nil {
		a.Notifier.Close()
	}
	if a.MongoDB != nil {
		if err := a.MongoDB.Close(ctx); err != nil {
			return fmt.Errorf("close MongoDB failed: %w", err)
		}
	}
	return nil
}
