package cdp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mockwire/internal/logger"
	"mockwire/pkg/intercept"

	"github.com/mafredri/cdp"
	"github.com/mafredri/cdp/devtool"
	"github.com/mafredri/cdp/protocol/fetch"
	"github.com/mafredri/cdp/rpcc"
)

// Config 页面会话配置
type Config struct {
	DevToolsURL      string
	Target           string // 目标ID，为空时选择第一个目标
	ProcessTimeoutMS int    // 单次事件处理超时
	SettleMS         int    // 网络静默判定窗口
	Logger           logger.Logger
}

// Page 一个被拦截的浏览器页面会话。持有唯一的事件消费循环，
// 将暂停的网络请求按顺序分发给已注册的观察者
type Page struct {
	cfg    Config
	conn   *rpcc.Conn
	client *cdp.Client
	ctx    context.Context
	cancel context.CancelFunc
	log    logger.Logger

	obsMu     sync.RWMutex
	observers []intercept.Observer

	actMu  sync.Mutex
	active int
}

// Attach 连接 DevTools 并附加到目标页面
func Attach(ctx context.Context, cfg Config) (*Page, error) {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	pctx, cancel := context.WithCancel(ctx)
	dt := devtool.New(cfg.DevToolsURL)
	targets, err := dt.List(pctx)
	if err != nil {
		cancel()
		return nil, err
	}
	var sel *devtool.Target
	for i := range targets {
		if string(targets[i].ID) == cfg.Target || cfg.Target == "" {
			sel = targets[i]
			if cfg.Target == "" {
				break
			}
		}
	}
	if sel == nil {
		cancel()
		return nil, fmt.Errorf("no target")
	}
	conn, err := rpcc.DialContext(pctx, sel.WebSocketDebuggerURL)
	if err != nil {
		cancel()
		return nil, err
	}
	p := &Page{
		cfg:    cfg,
		conn:   conn,
		client: cdp.NewClient(conn),
		ctx:    pctx,
		cancel: cancel,
		log:    cfg.Logger,
	}
	return p, nil
}

// Enable 启用请求拦截并启动事件消费循环。每个页面只启用一次
func (p *Page) Enable() error {
	if p.client == nil {
		return fmt.Errorf("not attached")
	}
	if err := p.client.Network.Enable(p.ctx, nil); err != nil {
		return err
	}
	pattern := "*"
	patterns := []fetch.RequestPattern{
		{URLPattern: &pattern, RequestStage: fetch.RequestStageRequest},
	}
	if err := p.client.Fetch.Enable(p.ctx, &fetch.EnableArgs{Patterns: patterns}); err != nil {
		return err
	}
	go p.consume()
	return nil
}

// Close 关闭会话。页面关闭后不再投递事件，属于隐式取消
func (p *Page) Close() error {
	if p.cancel != nil {
		p.cancel()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// AddObserver 注册观察者。观察者按注册顺序获得事件的优先处理权
func (p *Page) AddObserver(o intercept.Observer) {
	p.obsMu.Lock()
	defer p.obsMu.Unlock()
	p.observers = append(p.observers, o)
}

// consume 持续接收拦截事件并分发处理
func (p *Page) consume() {
	rp, err := p.client.Fetch.RequestPaused(p.ctx)
	if err != nil {
		p.log.Err(err, "订阅拦截事件流失败")
		return
	}
	defer rp.Close()

	p.log.Info("开始消费拦截事件流", "devtools", p.cfg.DevToolsURL)
	for {
		ev, err := rp.Recv()
		if err != nil {
			p.log.Debug("拦截事件流结束", "error", err)
			return
		}
		p.enter()
		go p.handle(ev)
	}
}

// handle 处理一次拦截事件：转换为中立模型后交给观察者，
// 无人认领时以最低优先级放行
func (p *Page) handle(raw *fetch.RequestPausedReply) {
	defer p.leave()

	to := p.cfg.ProcessTimeoutMS
	if to <= 0 {
		to = 3000
	}
	ctx, cancel := context.WithTimeout(p.ctx, time.Duration(to)*time.Millisecond)
	defer cancel()

	ev := toNeutralEvent(raw, &executor{client: p.client})

	p.obsMu.RLock()
	observers := make([]intercept.Observer, len(p.observers))
	copy(observers, p.observers)
	p.obsMu.RUnlock()

	for _, ob := range observers {
		if ob.Observe(ctx, ev) {
			return
		}
	}
	// 放行：所有观察者都拒绝后，声明令牌并继续原请求
	if ev.Resolution.Claim() {
		if err := ev.Completer.Continue(ctx, ev.Request.ID); err != nil {
			p.log.Err(err, "放行请求失败", "requestID", ev.Request.ID)
		}
	}
}

func (p *Page) enter() {
	p.actMu.Lock()
	p.active++
	p.actMu.Unlock()
}

func (p *Page) leave() {
	p.actMu.Lock()
	p.active--
	p.actMu.Unlock()
}

func (p *Page) inflight() int {
	p.actMu.Lock()
	defer p.actMu.Unlock()
	return p.active
}

// WaitIdle 等待页面网络活动静默：在一个判定窗口内没有任何
// 在途拦截事件即视为静默
func (p *Page) WaitIdle(ctx context.Context) error {
	settle := time.Duration(p.cfg.SettleMS) * time.Millisecond
	if settle <= 0 {
		settle = 75 * time.Millisecond
	}
	const poll = 5 * time.Millisecond
	quiet := time.Duration(0)
	for {
		if p.inflight() == 0 {
			if quiet >= settle {
				return nil
			}
			quiet += poll
		} else {
			quiet = 0
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(poll):
		}
	}
}
