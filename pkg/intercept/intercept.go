// Package intercept takes over the network layer of a controlled
// browser page for one service registry. Each registered request gets
// an independent endpoint interceptor that matches traffic by URL
// suffix, resolves it with a swappable responder and records the
// exchange; unmatched traffic passes through unmodified.
package intercept

import (
	"context"
	"strings"

	"mockwire/internal/logger"
	"mockwire/pkg/registry"
	"mockwire/pkg/traffic"
)

// Observer handles a paused network event. The return value reports
// whether this observer took responsibility for the event; the source
// stops offering the event to further observers once claimed.
type Observer interface {
	Observe(ctx context.Context, ev *traffic.Event) bool
}

// Source is an intercepted page: it delivers paused network events to
// registered observers and exposes a quiescence point. Implemented by
// internal/cdp for DevTools-driven pages and by test doubles.
type Source interface {
	AddObserver(o Observer)
	WaitIdle(ctx context.Context) error
}

// Options configures an interception session.
type Options struct {
	Logger   logger.Logger
	Recorder Recorder
}

// Endpoints maps request name to its endpoint interceptor.
type Endpoints map[string]*Endpoint

// Activate installs interception for a registry on a page. Ownership
// of the registry's substitutes transfers to the returned endpoints:
// the plain substitute dispatch path is invalid from here on, and a
// dispatch without an active page fails explicitly. Exactly one
// observer is installed per Activate call; multiple services may share
// one page.
func Activate(reg *registry.Registry, src Source, opts Options) (Endpoints, error) {
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	subs, err := reg.TakeSubstitutes()
	if err != nil {
		return nil, err
	}
	eps := make(Endpoints, len(reg.Names()))
	ordered := make([]*Endpoint, 0, len(reg.Names()))
	for _, name := range reg.Names() {
		ep := newEndpoint(reg.Service(), name, subs[name], src, opts)
		eps[name] = ep
		ordered = append(ordered, ep)
	}
	src.AddObserver(&serviceObserver{endpoints: ordered, log: opts.Logger})
	opts.Logger.Info("interception activated", "service", reg.Service(), "endpoints", len(ordered))
	return eps, nil
}

// serviceObserver is the single traffic observer of one Activate call.
type serviceObserver struct {
	endpoints []*Endpoint
	log       logger.Logger
}

// Observe skips events already resolved by another observer, then
// offers the event to each endpoint in declaration order. Unmatched
// events are refused so the source can try other observers and finally
// pass the request through.
func (s *serviceObserver) Observe(ctx context.Context, ev *traffic.Event) bool {
	if ev.Resolution.Resolved() {
		return false
	}
	for _, ep := range s.endpoints {
		if strings.HasSuffix(ev.Request.URL, ep.match) {
			ep.resolve(ctx, ev)
			return true
		}
	}
	return false
}
