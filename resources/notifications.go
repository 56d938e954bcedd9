package resources

import (
	"context"
	"net/url"

	"github.com/craterhq/crater-go/rest"
)

// Notification is an inbox entry for the current user.
type Notification struct {
	ID        string `json:"id"`
	Subject   string `json:"subject"`
	Message   string `json:"message,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	Read      bool   `json:"read"`
}

type Notifications struct {
	c *rest.Client
}

func NewNotifications(c *rest.Client) *Notifications {
	return &Notifications{c: c}
}

func (n *Notifications) List(ctx context.Context, q *Query) ([]Notification, error) {
	return list[Notification](ctx, n.c, "/notifications", q)
}

func (n *Notifications) MarkRead(ctx context.Context, id string) (Notification, error) {
	return update[Notification](ctx, n.c, "/notifications/"+url.PathEscape(id), map[string]any{"read": true})
}

func (n *Notifications) Delete(ctx context.Context, id string) error {
	return n.c.Delete(ctx, "/notifications/"+url.PathEscape(id))
}
