package resources

import (
	"context"
	"net/url"

	"github.com/craterhq/crater-go/rest"
)

// Migration is a server-side data migration job.
type Migration struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
}

type Migrations struct {
	c *rest.Client
}

func NewMigrations(c *rest.Client) *Migrations {
	return &Migrations{c: c}
}

func (m *Migrations) List(ctx context.Context, q *Query) ([]Migration, error) {
	return list[Migration](ctx, m.c, "/migrations", q)
}

// Run starts the migration; progress is polled through Status.
func (m *Migrations) Run(ctx context.Context, id string) error {
	return m.c.Post(ctx, "/migrations/"+url.PathEscape(id)+"/run", nil, nil)
}

func (m *Migrations) Status(ctx context.Context, id string) (Migration, error) {
	return get[Migration](ctx, m.c, "/migrations/"+url.PathEscape(id), nil)
}
