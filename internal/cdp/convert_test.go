package cdp

import (
	"testing"

	"github.com/mafredri/cdp/protocol/fetch"
	"github.com/mafredri/cdp/protocol/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToNeutralRequest(t *testing.T) {
	post := `{"page":1}`
	ev := &fetch.RequestPausedReply{
		RequestID: fetch.RequestID("interception-1"),
		Request: network.Request{
			URL:      "https://app.example/users/getUsers?page=2&Q=bob",
			Method:   "POST",
			Headers:  network.Headers([]byte(`{"Content-Type":"application/json","X-Trace":"abc"}`)),
			PostData: &post,
		},
	}

	req := toNeutralRequest(ev)
	assert.Equal(t, "interception-1", req.ID)
	assert.Equal(t, "https://app.example/users/getUsers?page=2&Q=bob", req.URL)
	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, []byte(post), req.Body)
	assert.Equal(t, "application/json", req.Headers.Get("content-type"))
	assert.Equal(t, "abc", req.Headers.Get("X-Trace"))
	assert.Equal(t, map[string]string{"page": "2", "q": "bob"}, req.Query)
}

func TestToNeutralRequestEmpty(t *testing.T) {
	ev := &fetch.RequestPausedReply{
		RequestID: fetch.RequestID("interception-2"),
		Request: network.Request{
			URL:    "https://app.example/health",
			Method: "GET",
		},
	}

	req := toNeutralRequest(ev)
	assert.Empty(t, req.Body)
	assert.Empty(t, req.Query)
}

func TestToNeutralEventCarriesFreshToken(t *testing.T) {
	ev := &fetch.RequestPausedReply{
		RequestID: fetch.RequestID("interception-3"),
		Request:   network.Request{URL: "https://app.example/x", Method: "GET"},
	}

	e := toNeutralEvent(ev, nil)
	require.NotNil(t, e.Resolution)
	assert.False(t, e.Resolution.Resolved())
	assert.True(t, e.Resolution.Claim())
	assert.False(t, e.Resolution.Claim())
}
