package api

import (
	"context"

	"mockwire/internal/config"
	"mockwire/internal/logger"
	"mockwire/internal/service"
	"mockwire/internal/storage"
	"mockwire/pkg/intercept"
	"mockwire/pkg/model"
	"mockwire/pkg/registry"
)

// Service 服务接口
type Service interface {
	// StartSession 启动会话
	StartSession(cfg model.SessionConfig) (model.SessionID, error)

	// StopSession 停止会话
	StopSession(id model.SessionID) error

	// ActivateInterception 在会话页面上为注册表激活拦截
	ActivateInterception(id model.SessionID, reg *registry.Registry) (intercept.Endpoints, error)

	// Endpoints 获取会话内某服务的端点集合
	Endpoints(id model.SessionID, serviceName string) (intercept.Endpoints, error)

	// WaitIdle 等待会话页面网络静默
	WaitIdle(ctx context.Context, id model.SessionID) error

	// ListSessions 列出活动会话
	ListSessions() []model.SessionInfo

	// SubscribeExchanges 订阅已解决的交换
	SubscribeExchanges(id model.SessionID) (<-chan intercept.Exchange, error)
}

// NewService 创建并返回服务接口实现
func NewService(l logger.Logger) Service {
	return service.New(l)
}

// NewServiceFromConfig 按配置装配日志与可选的 SQLite 记录器
func NewServiceFromConfig(cfg *config.Config) (Service, error) {
	l := logger.New(logger.Config{
		Level:   cfg.Log.Level,
		Writers: cfg.Log.Writer,
		File:    cfg.Log.File,
	})
	svc := service.New(l)
	if cfg.Sqlite.Dsn != "" {
		rec, err := storage.NewRecorder(cfg.Sqlite.Dsn, cfg.Sqlite.Prefix, l)
		if err != nil {
			return nil, err
		}
		svc.SetRecorder(rec)
	}
	return svc, nil
}
