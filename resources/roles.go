package resources

import (
	"context"
	"net/url"

	"github.com/craterhq/crater-go/rest"
)

// Role groups users under a set of permissions.
type Role struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	AdminAccess bool   `json:"admin_access,omitempty"`
}

type Roles struct {
	c *rest.Client
}

func NewRoles(c *rest.Client) *Roles {
	return &Roles{c: c}
}

func (r *Roles) List(ctx context.Context, q *Query) ([]Role, error) {
	return list[Role](ctx, r.c, "/roles", q)
}

func (r *Roles) Get(ctx context.Context, id string, q *Query) (Role, error) {
	return get[Role](ctx, r.c, "/roles/"+url.PathEscape(id), q)
}

func (r *Roles) Create(ctx context.Context, role Item) (Role, error) {
	return create[Role](ctx, r.c, "/roles", role)
}

func (r *Roles) Update(ctx context.Context, id string, patch Item) (Role, error) {
	return update[Role](ctx, r.c, "/roles/"+url.PathEscape(id), patch)
}

func (r *Roles) Delete(ctx context.Context, id string) error {
	return r.c.Delete(ctx, "/roles/"+url.PathEscape(id))
}
