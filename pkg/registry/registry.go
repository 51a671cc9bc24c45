package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// Responder computes an output for a request input. Both the live
// implementation and local substitutes share this signature.
type Responder func(ctx context.Context, input any) (any, error)

// Definition declares one named request: its live implementation, an
// optional local substitute and optional protocol metadata. Immutable
// once registered.
type Definition struct {
	Name       string
	Live       Responder
	Substitute Responder
	Meta       *Meta
}

// Registry is the declarative request set of one service. The service
// name must be unique across concurrently active services sharing an
// intercepted page: it is the routing discriminator for both the tunnel
// path and the interception matcher.
type Registry struct {
	service string
	defs    map[string]Definition
	names   []string

	mu    sync.Mutex
	taken bool
}

// ErrSubstitutesTaken is returned when substitute ownership has already
// been transferred to an interception session.
var ErrSubstitutesTaken = errors.New("registry: substitutes already taken")

// New builds a registry. Request names must be unique and non-empty.
func New(service string, defs ...Definition) (*Registry, error) {
	if service == "" {
		return nil, fmt.Errorf("registry: empty service name")
	}
	r := &Registry{service: service, defs: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("registry %s: definition with empty name", service)
		}
		if _, dup := r.defs[d.Name]; dup {
			return nil, fmt.Errorf("registry %s: duplicate request %q", service, d.Name)
		}
		r.defs[d.Name] = d
		r.names = append(r.names, d.Name)
	}
	return r, nil
}

// Service returns the service name.
func (r *Registry) Service() string { return r.service }

// Names returns request names in declaration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Lookup returns the definition for a request name.
func (r *Registry) Lookup(name string) (Definition, bool) {
	d, ok := r.defs[name]
	return d, ok
}

// Substitute returns the local substitute for a request, or false when
// none is declared or ownership has been transferred.
func (r *Registry) Substitute(name string) (Responder, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.taken {
		return nil, false
	}
	d, ok := r.defs[name]
	if !ok || d.Substitute == nil {
		return nil, false
	}
	return d.Substitute, true
}

// Taken reports whether substitute ownership has been transferred.
func (r *Registry) Taken() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.taken
}

// TakeSubstitutes transfers ownership of the substitute set to the
// caller and invalidates the plain substitute path. One-shot: a second
// take returns ErrSubstitutesTaken.
func (r *Registry) TakeSubstitutes() (map[string]Responder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.taken {
		return nil, ErrSubstitutesTaken
	}
	r.taken = true
	out := make(map[string]Responder)
	for name, d := range r.defs {
		if d.Substitute != nil {
			out[name] = d.Substitute
		}
	}
	return out, nil
}

// Typed adapts a strongly typed operation to a Responder. The input is
// re-decoded through JSON, matching what both the tunnel and the
// interception paths deliver on the wire.
func Typed[I, O any](fn func(ctx context.Context, in I) (O, error)) Responder {
	return func(ctx context.Context, input any) (any, error) {
		in, err := DecodeInput[I](input)
		if err != nil {
			return nil, err
		}
		return fn(ctx, in)
	}
}

// DecodeInput converts an arbitrary wire-level input into I via JSON.
func DecodeInput[I any](input any) (I, error) {
	var in I
	if input == nil {
		return in, nil
	}
	switch v := input.(type) {
	case I:
		return v, nil
	case json.RawMessage:
		err := json.Unmarshal(v, &in)
		return in, err
	case []byte:
		err := json.Unmarshal(v, &in)
		return in, err
	}
	raw, err := json.Marshal(input)
	if err != nil {
		return in, err
	}
	err = json.Unmarshal(raw, &in)
	return in, err
}
