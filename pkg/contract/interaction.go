// Package contract turns a registry's protocol metadata and substitute
// responders into contract-test interaction descriptions.
package contract

import (
	"context"
	"encoding/json"
	"fmt"

	"mockwire/pkg/registry"
)

// Interaction describes one request/response pair of a consumer
// contract.
type Interaction struct {
	Description string            `json:"description"`
	Method      string            `json:"method"`
	Path        string            `json:"path"`
	Query       map[string]string `json:"query,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Body        json.RawMessage   `json:"body,omitempty"`
	Response    Response          `json:"response"`
}

// Response is the expected provider response of an interaction.
type Response struct {
	Status  int               `json:"status"`
	Headers map[string]string `json:"headers,omitempty"`
	Body    json.RawMessage   `json:"body,omitempty"`
}

// Build produces one interaction per request that declares metadata.
// The request side comes from the metadata functions applied to the
// example input; the response body is the original substitute's output
// for that input. Requests without metadata are skipped.
func Build(ctx context.Context, reg *registry.Registry, examples map[string]any) ([]Interaction, error) {
	var out []Interaction
	for _, name := range reg.Names() {
		def, _ := reg.Lookup(name)
		if def.Meta == nil {
			continue
		}
		example := examples[name]
		in, err := buildInteraction(ctx, reg.Service(), def, example)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, nil
}

func buildInteraction(ctx context.Context, service string, def registry.Definition, example any) (Interaction, error) {
	meta := def.Meta
	path, err := meta.ResolvePath(example)
	if err != nil {
		return Interaction{}, fmt.Errorf("contract %s/%s: path: %w", service, def.Name, err)
	}
	query, err := meta.ResolveQuery(example)
	if err != nil {
		return Interaction{}, fmt.Errorf("contract %s/%s: query: %w", service, def.Name, err)
	}
	headers, err := meta.ResolveHeaders(example)
	if err != nil {
		return Interaction{}, fmt.Errorf("contract %s/%s: headers: %w", service, def.Name, err)
	}
	body, err := meta.ResolveBody(example)
	if err != nil {
		return Interaction{}, fmt.Errorf("contract %s/%s: body: %w", service, def.Name, err)
	}

	in := Interaction{
		Description: service + "/" + def.Name,
		Method:      meta.Method,
		Path:        path,
		Query:       query,
		Headers:     headers,
		Body:        body,
		Response:    Response{Status: 200},
	}
	if def.Substitute != nil {
		output, err := def.Substitute(ctx, example)
		if err != nil {
			return Interaction{}, fmt.Errorf("contract %s/%s: substitute: %w", service, def.Name, err)
		}
		raw, err := json.Marshal(output)
		if err != nil {
			return Interaction{}, fmt.Errorf("contract %s/%s: encode response: %w", service, def.Name, err)
		}
		in.Response.Body = raw
		in.Response.Headers = map[string]string{"Content-Type": "application/json"}
	}
	return in, nil
}
