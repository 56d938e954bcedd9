// Package resources contains the collection modules of the SDK. Each module
// is a stateless formatter: it builds a path and a parameter bag and hands
// off to the request pipeline. All state (credentials, retries, realtime)
// lives in the rest and realtime packages.
package resources

import (
	"context"

	"github.com/craterhq/crater-go/rest"
)

// envelope mirrors the backend's response wrapper.
type envelope[T any] struct {
	Data T `json:"data"`
}

// Item is a schemaless record.
type Item = map[string]any

// Query is the common parameter bag for list and read operations.
type Query struct {
	// Fields restricts the returned columns.
	Fields []string
	// Filter is passed through as its canonical JSON form.
	Filter map[string]any
	// Sort lists field names, "-" prefixed for descending.
	Sort []string
	// Search applies the backend's full-text search.
	Search string
	Limit  int
	Offset int
	Page   int
}

func (q *Query) params() map[string]any {
	if q == nil {
		return nil
	}
	params := map[string]any{}
	if len(q.Fields) > 0 {
		params["fields"] = q.Fields
	}
	if len(q.Filter) > 0 {
		params["filter"] = q.Filter
	}
	if len(q.Sort) > 0 {
		params["sort"] = q.Sort
	}
	if q.Search != "" {
		params["search"] = q.Search
	}
	if q.Limit > 0 {
		params["limit"] = q.Limit
	}
	if q.Offset > 0 {
		params["offset"] = q.Offset
	}
	if q.Page > 0 {
		params["page"] = q.Page
	}
	return params
}

// list issues a GET for a list endpoint and unwraps the envelope.
func list[T any](ctx context.Context, c *rest.Client, path string, q *Query) ([]T, error) {
	var resp envelope[[]T]
	if err := c.Get(ctx, path, q.params(), &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func get[T any](ctx context.Context, c *rest.Client, path string, q *Query) (T, error) {
	var resp envelope[T]
	if err := c.Get(ctx, path, q.params(), &resp); err != nil {
		var zero T
		return zero, err
	}
	return resp.Data, nil
}

func create[T any](ctx context.Context, c *rest.Client, path string, body any) (T, error) {
	var resp envelope[T]
	if err := c.Post(ctx, path, body, &resp); err != nil {
		var zero T
		return zero, err
	}
	return resp.Data, nil
}

func update[T any](ctx context.Context, c *rest.Client, path string, body any) (T, error) {
	var resp envelope[T]
	if err := c.Patch(ctx, path, body, &resp); err != nil {
		var zero T
		return zero, err
	}
	return resp.Data, nil
}
