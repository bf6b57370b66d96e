// Package builtin provides optional general-purpose actions that workflows can
// call from SET_VARIABLE and UPDATE_VARIABLE blocks.
package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/journey/pkg/registry"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/itchyny/gojq"
	"github.com/spf13/cast"
)

// Action names registered by Register.
const (
	HTTPGet   = "http_get"
	JSONQuery = "json_query"
	NewID     = "new_id"
	Now       = "now"
)

const category = "builtin"

// DefaultHTTPTimeout bounds http_get requests when no timeout is configured.
const DefaultHTTPTimeout = 10 * time.Second

type config struct {
	timeout time.Duration
	client  *resty.Client
	now     func() time.Time
}

// Option configures the builtin actions.
type Option func(*config)

// WithHTTPTimeout sets the request timeout of http_get.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *config) { c.timeout = d }
}

// WithHTTPClient replaces the resty client used by http_get.
func WithHTTPClient(client *resty.Client) Option {
	return func(c *config) { c.client = client }
}

// WithClock replaces the time source used by now.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// Register adds every builtin action to r.
func Register(r *registry.Registry, opts ...Option) {
	cfg := &config{timeout: DefaultHTTPTimeout, now: time.Now}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.client == nil {
		cfg.client = resty.New().SetTimeout(cfg.timeout)
	}

	r.Register(HTTPGet, httpGet(cfg.client),
		registry.WithDescription("GET args.url (with optional query and headers) and return the response body"),
		registry.WithCategory(category))
	r.Register(JSONQuery, (&jq{cache: make(map[string]*gojq.Code)}).run,
		registry.WithDescription("Evaluate the jq expression args.query against args.input"),
		registry.WithCategory(category))
	r.Register(NewID, newID,
		registry.WithDescription("Return a random UUID, prefixed by args.prefix when set"),
		registry.WithCategory(category))
	r.Register(Now, now(cfg.now),
		registry.WithDescription("Return the current time formatted with args.layout (RFC 3339 by default)"),
		registry.WithCategory(category))
}

func httpGet(client *resty.Client) registry.ActionFunc {
	return func(ctx context.Context, args map[string]any) (any, error) {
		url := cast.ToString(args["url"])
		if url == "" {
			return nil, fmt.Errorf("%s: url is required", HTTPGet)
		}

		resp, err := client.R().
			SetContext(ctx).
			SetQueryParams(cast.ToStringMapString(args["query"])).
			SetHeaders(cast.ToStringMapString(args["headers"])).
			Get(url)
		if err != nil {
			return nil, fmt.Errorf("%s request failed: %w", HTTPGet, err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("%s %s: %s", HTTPGet, url, resp.Status())
		}
		return resp.String(), nil
	}
}

// jq caches compiled expressions across calls.
type jq struct {
	mu    sync.RWMutex
	cache map[string]*gojq.Code
}

func (j *jq) run(ctx context.Context, args map[string]any) (any, error) {
	expr := cast.ToString(args["query"])
	if expr == "" {
		return nil, fmt.Errorf("%s: query is required", JSONQuery)
	}
	code, err := j.compile(expr)
	if err != nil {
		return nil, err
	}
	input, err := jsonInput(args["input"])
	if err != nil {
		return nil, err
	}

	iter := code.RunWithContext(ctx, input)
	var results []any
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return nil, fmt.Errorf("%s evaluation failed for %q: %w", JSONQuery, expr, err)
		}
		results = append(results, v)
	}

	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	default:
		return results, nil
	}
}

func (j *jq) compile(expr string) (*gojq.Code, error) {
	j.mu.RLock()
	code, ok := j.cache[expr]
	j.mu.RUnlock()
	if ok {
		return code, nil
	}

	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%s parse error in %q: %w", JSONQuery, expr, err)
	}
	code, err = gojq.Compile(query, gojq.WithEnvironLoader(func() []string { return nil }))
	if err != nil {
		return nil, fmt.Errorf("%s compile error in %q: %w", JSONQuery, expr, err)
	}

	j.mu.Lock()
	j.cache[expr] = code
	j.mu.Unlock()
	return code, nil
}

// jsonInput turns the input argument into plain JSON values. Strings are
// parsed as JSON documents; other values are normalized through a JSON round trip.
func jsonInput(in any) (any, error) {
	var raw []byte
	switch v := in.(type) {
	case nil:
		return nil, nil
	case string:
		raw = []byte(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%s: input is not JSON-compatible: %w", JSONQuery, err)
		}
		raw = b
	}

	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%s: input is not valid JSON: %w", JSONQuery, err)
	}
	return out, nil
}

func newID(_ context.Context, args map[string]any) (any, error) {
	return cast.ToString(args["prefix"]) + uuid.NewString(), nil
}

func now(clock func() time.Time) registry.ActionFunc {
	return func(_ context.Context, args map[string]any) (any, error) {
		layout := cast.ToString(args["layout"])
		if strings.TrimSpace(layout) == "" {
			layout = time.RFC3339
		}
		return clock().Format(layout), nil
	}
}
