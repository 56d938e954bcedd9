package resources

import (
	"context"
	"net/url"

	"github.com/craterhq/crater-go/rest"
)

// Workflow is a server-side automation; execution logic is entirely remote.
type Workflow struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
}

// Execution identifies one workflow run. Its progress is observable through
// the realtime execution channel.
type Execution struct {
	ID         string `json:"id"`
	WorkflowID string `json:"workflowId"`
	Status     string `json:"status,omitempty"`
}

type Workflows struct {
	c *rest.Client
}

func NewWorkflows(c *rest.Client) *Workflows {
	return &Workflows{c: c}
}

func (w *Workflows) List(ctx context.Context, q *Query) ([]Workflow, error) {
	return list[Workflow](ctx, w.c, "/workflows", q)
}

func (w *Workflows) Get(ctx context.Context, id string, q *Query) (Workflow, error) {
	return get[Workflow](ctx, w.c, "/workflows/"+url.PathEscape(id), q)
}

// Trigger starts a run and returns its execution record; pass the execution
// ID to realtime.Conn.SubscribeToExecution to follow progress.
func (w *Workflows) Trigger(ctx context.Context, id string, input map[string]any) (Execution, error) {
	return create[Execution](ctx, w.c, "/workflows/"+url.PathEscape(id)+"/trigger", input)
}
