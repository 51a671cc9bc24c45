package cdp

import (
	"encoding/json"
	"strings"

	"mockwire/pkg/traffic"

	"github.com/mafredri/cdp/protocol/fetch"
)

// toNeutralEvent 将 CDP 暂停事件转换为携带新解决令牌的中立事件
func toNeutralEvent(ev *fetch.RequestPausedReply, c traffic.Completer) *traffic.Event {
	return traffic.NewEvent(toNeutralRequest(ev), c)
}

// toNeutralRequest 将 CDP 事件转换为中立 Request 模型
func toNeutralRequest(ev *fetch.RequestPausedReply) *traffic.Request {
	req := traffic.NewRequest()
	req.ID = string(ev.RequestID)
	req.URL = ev.Request.URL
	req.Method = ev.Request.Method

	// 处理 Header
	var headers map[string]string
	if len(ev.Request.Headers) > 0 {
		if err := json.Unmarshal(ev.Request.Headers, &headers); err == nil {
			for k, v := range headers {
				req.Headers.Set(k, v)
			}
		}
	}

	// 请求体
	if ev.Request.PostData != nil {
		req.Body = []byte(*ev.Request.PostData)
	}

	// 解析 Query 参数
	if idx := strings.Index(req.URL, "?"); idx != -1 {
		queryStr := req.URL[idx+1:]
		if queryStr != "" {
			for _, pair := range strings.Split(queryStr, "&") {
				if kv := strings.SplitN(pair, "=", 2); len(kv) == 2 {
					req.Query[strings.ToLower(kv[0])] = kv[1]
				}
			}
		}
	}

	return req
}
