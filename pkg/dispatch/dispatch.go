package dispatch

import (
	"context"
	"errors"
	"net/http"
	"time"

	"mockwire/internal/logger"
	"mockwire/pkg/registry"
)

// DefaultDelayMS is the artificial latency applied to the local
// substitute path when no delay is configured.
const DefaultDelayMS = 200

// ErrInterceptionActive is returned when a request whose substitute has
// been handed to an interception session is dispatched without the
// tunnel flag. The source this layer replaces silently fell through to
// the live implementation here; that was a gap, not a feature.
var ErrInterceptionActive = errors.New("dispatch: substitutes taken by interception, call must go through the intercepted page")

// Options configures the dispatch wrapper for one service.
type Options struct {
	// UseTunnel redirects every call to POST <TunnelBase>/<service>/<request>.
	UseTunnel  bool
	TunnelBase string

	// DelayMS is the artificial latency of the substitute path.
	// Zero means DefaultDelayMS; negative disables the wait.
	DelayMS int

	HTTPClient *http.Client
	Logger     logger.Logger
}

// Build wraps every request of a registry into a callable with the live
// operation's signature. Routing is decided fresh on every call:
// tunnel flag first, then local substitute, then live.
func Build(reg *registry.Registry, opts Options) (map[string]registry.Responder, error) {
	if opts.Logger == nil {
		opts.Logger = logger.NewNop()
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	out := make(map[string]registry.Responder, len(reg.Names()))
	for _, name := range reg.Names() {
		def, _ := reg.Lookup(name)
		out[name] = wrap(reg, def, opts)
	}
	return out, nil
}

func wrap(reg *registry.Registry, def registry.Definition, opts Options) registry.Responder {
	service := reg.Service()
	return func(ctx context.Context, input any) (any, error) {
		if opts.UseTunnel {
			return tunnelCall(ctx, opts, service, def.Name, input)
		}
		if sub, ok := reg.Substitute(def.Name); ok {
			if err := sleep(ctx, delayOf(opts)); err != nil {
				return nil, err
			}
			opts.Logger.Debug("dispatching to local substitute", "service", service, "request", def.Name)
			return sub(ctx, input)
		}
		if def.Substitute != nil && reg.Taken() {
			opts.Logger.Warn("request dispatched outside the intercepted page", "service", service, "request", def.Name)
			return nil, ErrInterceptionActive
		}
		return def.Live(ctx, input)
	}
}

func delayOf(opts Options) time.Duration {
	ms := opts.DelayMS
	if ms == 0 {
		ms = DefaultDelayMS
	}
	if ms < 0 {
		ms = 0
	}
	return time.Duration(ms) * time.Millisecond
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
