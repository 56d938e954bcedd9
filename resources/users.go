package resources

import (
	"context"
	"net/url"

	"github.com/craterhq/crater-go/rest"
)

// User is an account in the current tenant.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Role      string `json:"role,omitempty"`
	Status    string `json:"status,omitempty"`
}

type Users struct {
	c *rest.Client
}

func NewUsers(c *rest.Client) *Users {
	return &Users{c: c}
}

func (u *Users) List(ctx context.Context, q *Query) ([]User, error) {
	return list[User](ctx, u.c, "/users", q)
}

func (u *Users) Get(ctx context.Context, id string, q *Query) (User, error) {
	return get[User](ctx, u.c, "/users/"+url.PathEscape(id), q)
}

// Me returns the account behind the current credential.
func (u *Users) Me(ctx context.Context, q *Query) (User, error) {
	return get[User](ctx, u.c, "/users/me", q)
}

func (u *Users) Create(ctx context.Context, user Item) (User, error) {
	return create[User](ctx, u.c, "/users", user)
}

// Invite sends an invitation email for the given role.
func (u *Users) Invite(ctx context.Context, email, role string) error {
	return u.c.Post(ctx, "/users/invite", map[string]string{"email": email, "role": role}, nil)
}

func (u *Users) Update(ctx context.Context, id string, patch Item) (User, error) {
	return update[User](ctx, u.c, "/users/"+url.PathEscape(id), patch)
}

func (u *Users) Delete(ctx context.Context, id string) error {
	return u.c.Delete(ctx, "/users/"+url.PathEscape(id))
}
