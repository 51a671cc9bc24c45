package traffic

import (
	"context"
	"sync/atomic"
)

// Resolution 网络事件的解决令牌：每个被暂停的请求持有唯一令牌，
// 由第一个声明它的观察者独占完成权
type Resolution struct {
	claimed atomic.Bool
}

// Claim 以原子 CAS 方式声明令牌，仅第一个调用者获得 true
func (r *Resolution) Claim() bool {
	return r.claimed.CompareAndSwap(false, true)
}

// Resolved 返回令牌是否已被声明
func (r *Resolution) Resolved() bool {
	return r.claimed.Load()
}

// Completer 完成一次被暂停的网络请求
type Completer interface {
	// Fulfill 用合成响应完成请求
	Fulfill(ctx context.Context, requestID string, res *Response) error

	// Continue 放行请求，不做修改
	Continue(ctx context.Context, requestID string) error

	// Fail 以网络错误终止请求
	Fail(ctx context.Context, requestID string) error
}

// Event 一次被暂停的网络请求及其完成通道
type Event struct {
	Request    *Request
	Resolution *Resolution
	Completer  Completer
}

// NewEvent 创建携带新令牌的事件
func NewEvent(req *Request, c Completer) *Event {
	return &Event{Request: req, Resolution: &Resolution{}, Completer: c}
}
