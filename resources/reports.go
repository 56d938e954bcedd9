package resources

import (
	"context"
	"net/url"

	"github.com/craterhq/crater-go/rest"
)

// Report is a saved query definition executed server-side.
type Report struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Collection string `json:"collection,omitempty"`
}

type Reports struct {
	c *rest.Client
}

func NewReports(c *rest.Client) *Reports {
	return &Reports{c: c}
}

func (r *Reports) List(ctx context.Context, q *Query) ([]Report, error) {
	return list[Report](ctx, r.c, "/reports", q)
}

func (r *Reports) Get(ctx context.Context, id string, q *Query) (Report, error) {
	return get[Report](ctx, r.c, "/reports/"+url.PathEscape(id), q)
}

// Run executes the report and returns its rows.
func (r *Reports) Run(ctx context.Context, id string, params map[string]any) ([]Item, error) {
	var resp envelope[[]Item]
	if err := r.c.Post(ctx, "/reports/"+url.PathEscape(id)+"/run", params, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}
