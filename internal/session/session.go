package session

import (
	"sync"

	"mockwire/internal/cdp"
	"mockwire/pkg/intercept"
	"mockwire/pkg/model"
)

// Session 一个页面会话：一个被拦截的页面及其上激活的各服务端点
type Session struct {
	ID   model.SessionID
	Page *cdp.Page

	mu       sync.Mutex
	services map[string]intercept.Endpoints
}

// New 创建会话
func New(id model.SessionID, page *cdp.Page) *Session {
	return &Session{
		ID:       id,
		Page:     page,
		services: make(map[string]intercept.Endpoints),
	}
}

// AddService 登记一个已激活服务的端点集合。
// 服务名在共享同一页面的会话内必须全局唯一
func (s *Session) AddService(name string, eps intercept.Endpoints) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.services[name]; dup {
		return false
	}
	s.services[name] = eps
	return true
}

// Service 返回指定服务的端点集合
func (s *Session) Service(name string) (intercept.Endpoints, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	eps, ok := s.services[name]
	return eps, ok
}

// Services 返回已激活的服务名列表
func (s *Session) Services() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.services))
	for name := range s.services {
		out = append(out, name)
	}
	return out
}
