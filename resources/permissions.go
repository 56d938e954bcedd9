package resources

import (
	"context"
	"net/url"

	"github.com/craterhq/crater-go/rest"
)

// Permission grants a role one action on one collection.
type Permission struct {
	ID         string         `json:"id"`
	Role       string         `json:"role"`
	Collection string         `json:"collection"`
	Action     string         `json:"action"`
	Conditions map[string]any `json:"conditions,omitempty"`
	Fields     []string       `json:"fields,omitempty"`
}

type Permissions struct {
	c *rest.Client
}

func NewPermissions(c *rest.Client) *Permissions {
	return &Permissions{c: c}
}

func (p *Permissions) List(ctx context.Context, q *Query) ([]Permission, error) {
	return list[Permission](ctx, p.c, "/permissions", q)
}

func (p *Permissions) Get(ctx context.Context, id string, q *Query) (Permission, error) {
	return get[Permission](ctx, p.c, "/permissions/"+url.PathEscape(id), q)
}

func (p *Permissions) Create(ctx context.Context, permission Item) (Permission, error) {
	return create[Permission](ctx, p.c, "/permissions", permission)
}

func (p *Permissions) Update(ctx context.Context, id string, patch Item) (Permission, error) {
	return update[Permission](ctx, p.c, "/permissions/"+url.PathEscape(id), patch)
}

func (p *Permissions) Delete(ctx context.Context, id string) error {
	return p.c.Delete(ctx, "/permissions/"+url.PathEscape(id))
}
