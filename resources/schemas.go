package resources

import (
	"context"
	"net/url"

	"github.com/craterhq/crater-go/rest"
)

// Schemas reads and evolves collection definitions. Validation happens
// server-side; this module only formats the calls.
type Schemas struct {
	c *rest.Client
}

func NewSchemas(c *rest.Client) *Schemas {
	return &Schemas{c: c}
}

func (s *Schemas) List(ctx context.Context, q *Query) ([]Item, error) {
	return list[Item](ctx, s.c, "/schemas", q)
}

func (s *Schemas) Get(ctx context.Context, collection string, q *Query) (Item, error) {
	return get[Item](ctx, s.c, "/schemas/"+url.PathEscape(collection), q)
}

// Snapshot returns the full current schema for backup or diffing.
func (s *Schemas) Snapshot(ctx context.Context) (Item, error) {
	return get[Item](ctx, s.c, "/schemas/snapshot", nil)
}

// Diff compares a snapshot against the live schema and returns the changes
// Apply would make.
func (s *Schemas) Diff(ctx context.Context, snapshot Item) (Item, error) {
	return create[Item](ctx, s.c, "/schemas/diff", snapshot)
}

// Apply applies a diff previously produced by Diff.
func (s *Schemas) Apply(ctx context.Context, diff Item) error {
	return s.c.Post(ctx, "/schemas/apply", diff, nil)
}
