package cdp

import (
	"context"

	"mockwire/pkg/traffic"

	"github.com/mafredri/cdp"
	"github.com/mafredri/cdp/protocol/fetch"
	"github.com/mafredri/cdp/protocol/network"
)

// executor 通过 Fetch 域完成被暂停的请求，实现 traffic.Completer
type executor struct {
	client *cdp.Client
}

// Fulfill 用合成响应完成请求
func (e *executor) Fulfill(ctx context.Context, requestID string, res *traffic.Response) error {
	args := &fetch.FulfillRequestArgs{
		RequestID:    fetch.RequestID(requestID),
		ResponseCode: res.StatusCode,
	}
	if len(res.Headers) > 0 {
		args.ResponseHeaders = toHeaderEntries(res.Headers)
	}
	if len(res.Body) > 0 {
		args.Body = res.Body
	}
	return e.client.Fetch.FulfillRequest(ctx, args)
}

// Continue 放行请求，不做修改
func (e *executor) Continue(ctx context.Context, requestID string) error {
	return e.client.Fetch.ContinueRequest(ctx, &fetch.ContinueRequestArgs{
		RequestID: fetch.RequestID(requestID),
	})
}

// Fail 以网络错误终止请求
func (e *executor) Fail(ctx context.Context, requestID string) error {
	return e.client.Fetch.FailRequest(ctx, &fetch.FailRequestArgs{
		RequestID:   fetch.RequestID(requestID),
		ErrorReason: network.ErrorReasonFailed,
	})
}

// toHeaderEntries 将中立 Header 转换为 CDP Header 条目
func toHeaderEntries(h traffic.Header) []fetch.HeaderEntry {
	entries := make([]fetch.HeaderEntry, 0, len(h))
	for k, v := range h {
		entries = append(entries, fetch.HeaderEntry{Name: k, Value: v})
	}
	return entries
}
