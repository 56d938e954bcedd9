package resources

import (
	"context"
	"net/url"

	"github.com/craterhq/crater-go/rest"
)

// Items addresses the records of one collection.
type Items struct {
	c          *rest.Client
	collection string
}

func NewItems(c *rest.Client, collection string) *Items {
	return &Items{c: c, collection: collection}
}

func (i *Items) path(id string) string {
	p := "/items/" + url.PathEscape(i.collection)
	if id != "" {
		p += "/" + url.PathEscape(id)
	}
	return p
}

func (i *Items) List(ctx context.Context, q *Query) ([]Item, error) {
	return list[Item](ctx, i.c, i.path(""), q)
}

func (i *Items) Get(ctx context.Context, id string, q *Query) (Item, error) {
	return get[Item](ctx, i.c, i.path(id), q)
}

func (i *Items) Create(ctx context.Context, item Item) (Item, error) {
	return create[Item](ctx, i.c, i.path(""), item)
}

func (i *Items) Update(ctx context.Context, id string, patch Item) (Item, error) {
	return update[Item](ctx, i.c, i.path(id), patch)
}

func (i *Items) Delete(ctx context.Context, id string) error {
	return i.c.Delete(ctx, i.path(id))
}
