package resources

import (
	"context"

	"github.com/craterhq/crater-go/rest"
)

// Settings is the tenant-wide singleton configuration record.
type Settings struct {
	c *rest.Client
}

func NewSettings(c *rest.Client) *Settings {
	return &Settings{c: c}
}

func (s *Settings) Get(ctx context.Context, q *Query) (Item, error) {
	return get[Item](ctx, s.c, "/settings", q)
}

func (s *Settings) Update(ctx context.Context, patch Item) (Item, error) {
	return update[Item](ctx, s.c, "/settings", patch)
}
