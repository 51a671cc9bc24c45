package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mockwire/pkg/registry"
)

func mustRegistry(t *testing.T, defs ...registry.Definition) *registry.Registry {
	t.Helper()
	reg, err := registry.New("users", defs...)
	require.NoError(t, err)
	return reg
}

func TestLivePath(t *testing.T) {
	var calls int32
	reg := mustRegistry(t, registry.Definition{
		Name: "getUsers",
		Live: func(ctx context.Context, input any) (any, error) {
			atomic.AddInt32(&calls, 1)
			return []any{}, nil
		},
	})
	callables, err := Build(reg, Options{})
	require.NoError(t, err)

	out, err := callables["getUsers"](context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []any{}, out)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSubstitutePath(t *testing.T) {
	liveCalled := false
	reg := mustRegistry(t, registry.Definition{
		Name: "getUsers",
		Live: func(ctx context.Context, input any) (any, error) {
			liveCalled = true
			return []any{}, nil
		},
		Substitute: func(ctx context.Context, input any) (any, error) {
			return []map[string]any{{"id": "1"}}, nil
		},
	})
	callables, err := Build(reg, Options{})
	require.NoError(t, err)

	start := time.Now()
	out, err := callables["getUsers"](context.Background(), nil)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.False(t, liveCalled, "live implementation must not run when a substitute exists")
	assert.Equal(t, []map[string]any{{"id": "1"}}, out)
	assert.GreaterOrEqual(t, elapsed, 200*time.Millisecond, "default artificial delay")
}

func TestSubstituteErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	reg := mustRegistry(t, registry.Definition{
		Name:       "getUsers",
		Live:       func(ctx context.Context, input any) (any, error) { return nil, nil },
		Substitute: func(ctx context.Context, input any) (any, error) { return nil, boom },
	})
	callables, err := Build(reg, Options{DelayMS: -1})
	require.NoError(t, err)

	_, err = callables["getUsers"](context.Background(), nil)
	assert.ErrorIs(t, err, boom)
}

func TestSubstituteDelayCancellation(t *testing.T) {
	reg := mustRegistry(t, registry.Definition{
		Name:       "getUsers",
		Live:       func(ctx context.Context, input any) (any, error) { return nil, nil },
		Substitute: func(ctx context.Context, input any) (any, error) { return "never", nil },
	})
	callables, err := Build(reg, Options{DelayMS: 5000})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = callables["getUsers"](ctx, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTunnelPath(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/users/getUsers", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		// echo the input back: the pair must round-trip byte-for-byte
		// through JSON encode/decode
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}))
	defer srv.Close()

	reg := mustRegistry(t, registry.Definition{
		Name: "getUsers",
		Live: func(ctx context.Context, input any) (any, error) {
			t.Fatal("live must not be called in tunnel mode")
			return nil, nil
		},
		Substitute: func(ctx context.Context, input any) (any, error) {
			t.Fatal("substitute must not be called in tunnel mode")
			return nil, nil
		},
	})
	callables, err := Build(reg, Options{UseTunnel: true, TunnelBase: srv.URL})
	require.NoError(t, err)

	input := map[string]any{"page": float64(2), "q": "bob"}
	out, err := callables["getUsers"](context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, input, out)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestTunnelAcceptsAnyStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":"down"}`))
	}))
	defer srv.Close()

	reg := mustRegistry(t, registry.Definition{
		Name: "getUsers",
		Live: func(ctx context.Context, input any) (any, error) { return nil, nil },
	})
	callables, err := Build(reg, Options{UseTunnel: true, TunnelBase: srv.URL})
	require.NoError(t, err)

	out, err := callables["getUsers"](context.Background(), nil)
	require.NoError(t, err, "status code must not be branched on")
	assert.Equal(t, map[string]any{"error": "down"}, out)
}

func TestTunnelMalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	reg := mustRegistry(t, registry.Definition{
		Name: "getUsers",
		Live: func(ctx context.Context, input any) (any, error) { return nil, nil },
	})
	callables, err := Build(reg, Options{UseTunnel: true, TunnelBase: srv.URL})
	require.NoError(t, err)

	_, err = callables["getUsers"](context.Background(), nil)
	assert.Error(t, err)
}

func TestDispatchAfterOwnershipTransfer(t *testing.T) {
	reg := mustRegistry(t,
		registry.Definition{
			Name:       "getUsers",
			Live:       func(ctx context.Context, input any) (any, error) { return "live", nil },
			Substitute: func(ctx context.Context, input any) (any, error) { return "stub", nil },
		},
		registry.Definition{
			Name: "ping",
			Live: func(ctx context.Context, input any) (any, error) { return "pong", nil },
		},
	)
	callables, err := Build(reg, Options{DelayMS: -1})
	require.NoError(t, err)

	_, err = reg.TakeSubstitutes()
	require.NoError(t, err)

	// the request that had a substitute must not silently fall through
	// to the live implementation
	_, err = callables["getUsers"](context.Background(), nil)
	assert.ErrorIs(t, err, ErrInterceptionActive)

	// requests that never had a substitute still go live
	out, err := callables["ping"](context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "pong", out)
}

func TestRoutingEvaluatedFresh(t *testing.T) {
	reg := mustRegistry(t, registry.Definition{
		Name:       "getUsers",
		Live:       func(ctx context.Context, input any) (any, error) { return "live", nil },
		Substitute: func(ctx context.Context, input any) (any, error) { return "stub", nil },
	})
	callables, err := Build(reg, Options{DelayMS: -1})
	require.NoError(t, err)

	out, err := callables["getUsers"](context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "stub", out)

	_, err = reg.TakeSubstitutes()
	require.NoError(t, err)

	_, err = callables["getUsers"](context.Background(), nil)
	assert.ErrorIs(t, err, ErrInterceptionActive, "routing must be re-evaluated per call")
}

func TestTunnelInputEncoding(t *testing.T) {
	var got []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = io.ReadAll(r.Body)
		w.Write([]byte("null"))
	}))
	defer srv.Close()

	reg := mustRegistry(t, registry.Definition{
		Name: "getUsers",
		Live: func(ctx context.Context, input any) (any, error) { return nil, nil },
	})
	callables, err := Build(reg, Options{UseTunnel: true, TunnelBase: srv.URL})
	require.NoError(t, err)

	_, err = callables["getUsers"](context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(got), "nil input posts an empty object")

	var decoded any
	_, err = callables["getUsers"](context.Background(), map[string]any{"id": "1"})
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(got, &decoded))
	assert.Equal(t, map[string]any{"id": "1"}, decoded)
}
