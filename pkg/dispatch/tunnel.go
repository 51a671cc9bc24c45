package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// tunnelCall posts the JSON-serialized input to /<service>/<request> and
// decodes the response body as JSON. Any HTTP status is accepted; the
// body is parsed unconditionally (no status-code branch, per the wire
// contract). Transport and decode failures propagate, no retry.
func tunnelCall(ctx context.Context, opts Options, service, request string, input any) (any, error) {
	body := []byte("{}")
	if input != nil {
		var err error
		body, err = json.Marshal(input)
		if err != nil {
			return nil, fmt.Errorf("tunnel %s/%s: encode input: %w", service, request, err)
		}
	}
	url := strings.TrimSuffix(opts.TunnelBase, "/") + "/" + service + "/" + request
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("tunnel %s/%s: %w", service, request, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := opts.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tunnel %s/%s: %w", service, request, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tunnel %s/%s: read response: %w", service, request, err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("tunnel %s/%s: decode response: %w", service, request, err)
	}
	return out, nil
}
