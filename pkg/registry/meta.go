package registry

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
)

// Meta describes the protocol shape of one request for contract-test
// generation. Path segments and mapping values starting with ':' are
// field references resolved against the JSON-encoded input; everything
// else is literal. The interception layer does not consume Meta.
type Meta struct {
	Method  string
	Path    string            // template, e.g. "/users/:id/orders"
	Query   map[string]string // param -> literal or :field
	Headers map[string]string // header -> literal or :field
	Body    func(input []byte) []byte
}

// ResolvePath substitutes :field segments from same-named input fields.
func (m *Meta) ResolvePath(input any) (string, error) {
	raw, err := encodeInput(input)
	if err != nil {
		return "", err
	}
	segs := strings.Split(m.Path, "/")
	for i, s := range segs {
		if strings.HasPrefix(s, ":") {
			segs[i] = gjson.GetBytes(raw, s[1:]).String()
		}
	}
	return strings.Join(segs, "/"), nil
}

// ResolveQuery materializes the query-parameter mapping for an input.
func (m *Meta) ResolveQuery(input any) (map[string]string, error) {
	return m.resolveMap(m.Query, input)
}

// ResolveHeaders materializes the header mapping for an input.
func (m *Meta) ResolveHeaders(input any) (map[string]string, error) {
	return m.resolveMap(m.Headers, input)
}

// ResolveBody applies the body transform to the JSON-encoded input.
// Without a transform the encoded input passes through unchanged.
func (m *Meta) ResolveBody(input any) ([]byte, error) {
	raw, err := encodeInput(input)
	if err != nil {
		return nil, err
	}
	if m.Body == nil {
		return raw, nil
	}
	return m.Body(raw), nil
}

func (m *Meta) resolveMap(src map[string]string, input any) (map[string]string, error) {
	if len(src) == 0 {
		return nil, nil
	}
	raw, err := encodeInput(input)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		if strings.HasPrefix(v, ":") {
			out[k] = gjson.GetBytes(raw, v[1:]).String()
		} else {
			out[k] = v
		}
	}
	return out, nil
}

func encodeInput(input any) ([]byte, error) {
	switch v := input.(type) {
	case nil:
		return []byte("{}"), nil
	case json.RawMessage:
		return v, nil
	case []byte:
		return v, nil
	}
	return json.Marshal(input)
}
