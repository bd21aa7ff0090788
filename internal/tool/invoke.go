package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lingxi-album/backend/internal/errs"
	"github.com/lingxi-album/backend/internal/model"
)

// Invoker calls a tool's bound loopback HTTP endpoint, substituting
// path/query/body parameters from args, per spec.md §4.6/§3.
type Invoker struct {
	baseURL string
	client  *http.Client
}

// NewInvoker creates an Invoker against baseURL (this same service's own
// listener address).
func NewInvoker(baseURL string, timeout time.Duration) *Invoker {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Invoker{baseURL: strings.TrimRight(baseURL, "/"), client: &http.Client{Timeout: timeout}}
}

// Invoke builds and executes the HTTP request described by d.Binding,
// populating Path/Query/Body parameters from args, and returns the raw
// response body.
func (inv *Invoker) Invoke(ctx context.Context, d model.ToolDescriptor, args map[string]any) ([]byte, error) {
	path, query, body, err := splitArgs(d, args)
	if err != nil {
		return nil, err
	}

	urlStr := inv.baseURL + substitutePath(d.Binding.URLTemplate, path)
	if len(query) > 0 {
		urlStr += "?" + query.Encode()
	}

	var reqBody io.Reader
	if len(body) > 0 {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, errs.Wrap(errs.Internal, err, "tool %s: encode request body", d.Name)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, d.Binding.HTTPMethod, urlStr, reqBody)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, err, "tool %s: build request", d.Name)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range d.Binding.HeaderTemplate {
		req.Header.Set(k, v)
	}

	resp, err := inv.client.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.ProviderUnavailable, err, "tool %s: call endpoint", d.Name)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, err, "tool %s: read response", d.Name)
	}

	if resp.StatusCode >= 400 {
		return nil, errs.New(classifyStatus(resp.StatusCode), "tool %s: endpoint returned %d: %s", d.Name, resp.StatusCode, string(data))
	}
	return data, nil
}

func classifyStatus(code int) errs.Kind {
	switch {
	case code == http.StatusNotFound:
		return errs.NotFound
	case code >= 500:
		return errs.ProviderUnavailable
	default:
		return errs.InvalidInput
	}
}

func splitArgs(d model.ToolDescriptor, args map[string]any) (path map[string]string, query url.Values, body map[string]any, err error) {
	path = make(map[string]string)
	query = url.Values{}
	body = make(map[string]any)

	for _, p := range d.Params {
		v, present := args[p.Name]
		if !present {
			if p.Required {
				return nil, nil, nil, errs.New(errs.InvalidInput, "tool %s: missing required parameter %q", d.Name, p.Name)
			}
			if p.Default == nil {
				continue
			}
			v = p.Default
		}

		switch p.Location {
		case model.LocationPath:
			path[p.Name] = fmt.Sprint(v)
		case model.LocationQuery:
			query.Set(p.Name, stringifyQueryValue(v))
		default:
			body[p.Name] = v
		}
	}
	return path, query, body, nil
}

func stringifyQueryValue(v any) string {
	switch t := v.(type) {
	case []string:
		return strings.Join(t, ",")
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(v)
	}
}

func substitutePath(template string, path map[string]string) string {
	out := template
	for name, val := range path {
		out = strings.ReplaceAll(out, "{"+name+"}", url.PathEscape(val))
	}
	return out
}
