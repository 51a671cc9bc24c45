package intercept

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"mockwire/internal/logger"
	"mockwire/pkg/registry"
	"mockwire/pkg/traffic"
)

// Call is one recorded exchange on an endpoint.
type Call struct {
	Input  any
	Output any
}

// Endpoint claims network traffic whose URL ends with
// <service>/<request> and resolves it with a swappable responder.
// One endpoint exists per request name for the lifetime of an
// interception session.
type Endpoint struct {
	service string
	name    string
	match   string
	src     Source
	log     logger.Logger
	rec     Recorder

	// original is the registry's substitute captured at activation.
	original registry.Responder

	mu       sync.Mutex
	override registry.Responder
	status   int
	history  []Call
}

func newEndpoint(service, name string, original registry.Responder, src Source, opts Options) *Endpoint {
	return &Endpoint{
		service:  service,
		name:     name,
		match:    service + "/" + name,
		src:      src,
		log:      opts.Logger,
		rec:      opts.Recorder,
		original: original,
		status:   http.StatusOK,
	}
}

// Match returns the URL suffix this endpoint claims.
func (e *Endpoint) Match() string { return e.match }

// SetResponse replaces the override responder for subsequent matching
// calls. The forced status code is untouched.
func (e *Endpoint) SetResponse(r registry.Responder) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.override = r
}

// SetError sets the forced status code and the override responder as
// one atomic swap, simulating a failure response whose output is the
// error payload.
func (e *Endpoint) SetError(status int, r registry.Responder) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status = status
	e.override = r
}

// Reset clears the override responder, reverting to the original
// substitute, and restores status 200.
func (e *Endpoint) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.override = nil
	e.status = http.StatusOK
}

// History returns a copy of the recorded calls, in responder
// resolution order.
func (e *Endpoint) History() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Call, len(e.history))
	copy(out, e.history)
	return out
}

// Last waits for network activity on the page to quiesce, then returns
// the most recently recorded call. ok is false when nothing was
// recorded. Used by tests to await the effect of a page action before
// asserting.
func (e *Endpoint) Last(ctx context.Context) (Call, bool, error) {
	if err := e.src.WaitIdle(ctx); err != nil {
		return Call{}, false, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.history) == 0 {
		return Call{}, false, nil
	}
	return e.history[len(e.history)-1], true, nil
}

// resolve computes and applies the response for one claimed event.
//
// A responder failure leaves the underlying network event unresolved:
// the browser sees a hung request. That mirrors the contract this layer
// implements; it is logged, never silently recovered.
func (e *Endpoint) resolve(ctx context.Context, ev *traffic.Event) {
	input := parseInput(ev.Request.Body)

	e.mu.Lock()
	responder := e.override
	if responder == nil {
		responder = e.original
	}
	status := e.status
	e.mu.Unlock()

	if responder == nil {
		e.log.Error("no responder for intercepted request", "endpoint", e.match, "url", ev.Request.URL)
		return
	}

	output, err := responder(ctx, input)
	if err != nil {
		e.log.Err(err, "responder failed, request left unresolved", "endpoint", e.match, "url", ev.Request.URL)
		return
	}

	// A concurrent observer may have resolved this event while the
	// responder ran. One CAS decides the winner.
	if !ev.Resolution.Claim() {
		e.log.Debug("event already resolved by another observer", "endpoint", e.match, "requestID", ev.Request.ID)
		return
	}

	e.mu.Lock()
	e.history = append(e.history, Call{Input: input, Output: output})
	e.mu.Unlock()

	body, err := json.Marshal(output)
	if err != nil {
		e.log.Err(err, "cannot encode responder output", "endpoint", e.match)
		return
	}
	res := traffic.NewResponse()
	res.StatusCode = status
	res.Headers.Set("Content-Type", "application/json")
	res.Body = body
	if err := ev.Completer.Fulfill(ctx, ev.Request.ID, res); err != nil {
		e.log.Err(err, "fulfill failed", "endpoint", e.match, "requestID", ev.Request.ID)
		return
	}
	if e.rec != nil {
		e.rec.Record(ctx, Exchange{
			Service:   e.service,
			Request:   e.name,
			URL:       ev.Request.URL,
			Input:     input,
			Output:    output,
			Status:    status,
			Timestamp: time.Now(),
		})
	}
	e.log.Debug("intercepted request fulfilled", "endpoint", e.match, "status", status)
}

// parseInput decodes the request body as JSON, defaulting to an empty
// object when the body is absent or malformed.
func parseInput(body []byte) any {
	if len(body) == 0 {
		return map[string]any{}
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return map[string]any{}
	}
	return v
}

// Exchange is one intercepted request/response pair handed to a
// Recorder.
type Exchange struct {
	Service   string
	Request   string
	URL       string
	Input     any
	Output    any
	Status    int
	Timestamp time.Time
}

// Recorder receives resolved exchanges for out-of-band inspection.
// Recording is best effort; it never affects resolution.
type Recorder interface {
	Record(ctx context.Context, ex Exchange)
}
