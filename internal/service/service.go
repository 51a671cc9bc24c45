package service

import (
	"context"
	"fmt"
	"sync"

	"mockwire/internal/cdp"
	"mockwire/internal/logger"
	"mockwire/internal/session"
	"mockwire/pkg/intercept"
	"mockwire/pkg/model"
	"mockwire/pkg/registry"

	"github.com/google/uuid"
)

// Service 会话与拦截的编排实现
type Service struct {
	log      logger.Logger
	sessions *session.Manager
	rec      intercept.Recorder // 可选的持久化记录器

	subMu sync.Mutex
	subs  map[model.SessionID][]chan intercept.Exchange
}

// New 创建服务实现
func New(l logger.Logger) *Service {
	if l == nil {
		l = logger.NewNop()
	}
	return &Service{
		log:      l,
		sessions: session.NewManager(l),
		subs:     make(map[model.SessionID][]chan intercept.Exchange),
	}
}

// SetRecorder 设置持久化记录器，必须在激活拦截之前调用
func (s *Service) SetRecorder(r intercept.Recorder) { s.rec = r }

// StartSession 附加页面并启用拦截，返回会话ID
func (s *Service) StartSession(cfg model.SessionConfig) (model.SessionID, error) {
	page, err := cdp.Attach(context.Background(), cdp.Config{
		DevToolsURL:      cfg.DevToolsURL,
		Target:           string(cfg.Target),
		ProcessTimeoutMS: cfg.ProcessTimeoutMS,
		SettleMS:         cfg.SettleMS,
		Logger:           s.log,
	})
	if err != nil {
		return "", err
	}
	if err := page.Enable(); err != nil {
		page.Close()
		return "", err
	}
	id := model.SessionID(uuid.NewString())
	s.sessions.Create(id, page)
	return id, nil
}

// StopSession 关闭页面并销毁会话
func (s *Service) StopSession(id model.SessionID) error {
	sess, ok := s.sessions.Get(id)
	if !ok {
		return fmt.Errorf("no session %s", id)
	}
	err := sess.Page.Close()
	s.sessions.Delete(id)
	s.closeSubscribers(id)
	return err
}

// ActivateInterception 为注册表在会话页面上激活拦截。
// 注册表的替身所有权随之转移，服务名在会话内必须唯一
func (s *Service) ActivateInterception(id model.SessionID, reg *registry.Registry) (intercept.Endpoints, error) {
	sess, ok := s.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("no session %s", id)
	}
	if _, dup := sess.Service(reg.Service()); dup {
		return nil, fmt.Errorf("service %q already intercepted on session %s", reg.Service(), id)
	}
	eps, err := intercept.Activate(reg, sess.Page, intercept.Options{
		Logger:   s.log,
		Recorder: &sink{svc: s, id: id},
	})
	if err != nil {
		return nil, err
	}
	sess.AddService(reg.Service(), eps)
	return eps, nil
}

// Endpoints 返回会话内某服务的端点集合
func (s *Service) Endpoints(id model.SessionID, serviceName string) (intercept.Endpoints, error) {
	sess, ok := s.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("no session %s", id)
	}
	eps, ok := sess.Service(serviceName)
	if !ok {
		return nil, fmt.Errorf("service %q not intercepted on session %s", serviceName, id)
	}
	return eps, nil
}

// WaitIdle 等待会话页面网络静默
func (s *Service) WaitIdle(ctx context.Context, id model.SessionID) error {
	sess, ok := s.sessions.Get(id)
	if !ok {
		return fmt.Errorf("no session %s", id)
	}
	return sess.Page.WaitIdle(ctx)
}

// ListSessions 返回所有活动会话的快照
func (s *Service) ListSessions() []model.SessionInfo {
	var out []model.SessionInfo
	for _, sess := range s.sessions.List() {
		out = append(out, model.SessionInfo{
			ID:       sess.ID,
			Services: sess.Services(),
		})
	}
	return out
}

// SubscribeExchanges 订阅会话内已解决的交换
func (s *Service) SubscribeExchanges(id model.SessionID) (<-chan intercept.Exchange, error) {
	if _, ok := s.sessions.Get(id); !ok {
		return nil, fmt.Errorf("no session %s", id)
	}
	ch := make(chan intercept.Exchange, 64)
	s.subMu.Lock()
	s.subs[id] = append(s.subs[id], ch)
	s.subMu.Unlock()
	return ch, nil
}

func (s *Service) closeSubscribers(id model.SessionID) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs[id] {
		close(ch)
	}
	delete(s.subs, id)
}

// publish 向订阅者广播，满时丢弃
func (s *Service) publish(id model.SessionID, ex intercept.Exchange) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs[id] {
		select {
		case ch <- ex:
		default:
		}
	}
}

// sink 将交换分发给订阅者和可选的持久化记录器
type sink struct {
	svc *Service
	id  model.SessionID
}

func (k *sink) Record(ctx context.Context, ex intercept.Exchange) {
	k.svc.publish(k.id, ex)
	if k.svc.rec != nil {
		k.svc.rec.Record(ctx, ex)
	}
}
