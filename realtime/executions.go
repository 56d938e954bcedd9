package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/craterhq/crater-go/logging"
	"github.com/google/uuid"
)

// Workflow execution event names.
const (
	eventExecutionUpdate   = "workflow:execution:update"
	eventExecutionComplete = "workflow:execution:complete"
)

// StatusCompleted is the synthetic status stamped onto completion events
// whose payload carries none.
const StatusCompleted = "completed"

// ExecutionEvent is one progress or completion update for a workflow run.
type ExecutionEvent struct {
	ExecutionID string          `json:"executionId"`
	Status      string          `json:"status,omitempty"`
	NodeID      string          `json:"nodeId,omitempty"`
	Progress    float64         `json:"progress,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	Timestamp   string          `json:"timestamp,omitempty"`
}

// ExecutionHandler consumes execution events.
type ExecutionHandler func(ExecutionEvent)

// ExecutionRegistry maps workflow-execution identifiers to callbacks. Its
// lifecycle is independent of collection subscriptions: the room join is
// fire-and-forget, removal never sends an unsubscribe message (the server
// garbage-collects execution rooms on disconnect), and there is no replay
// after reconnect.
type ExecutionRegistry struct {
	sock      Socket
	connected func() bool
	logger    logging.Logger

	mu      sync.Mutex
	records map[string]map[string]ExecutionHandler
	offs    []func()
}

func newExecutionRegistry(sock Socket, connected func() bool, logger logging.Logger) *ExecutionRegistry {
	r := &ExecutionRegistry{
		sock:      sock,
		connected: connected,
		logger:    logger,
		records:   make(map[string]map[string]ExecutionHandler),
	}
	r.offs = append(r.offs,
		sock.On(eventExecutionUpdate, func(data json.RawMessage) {
			r.dispatch(data, false)
		}),
		sock.On(eventExecutionComplete, func(data json.RawMessage) {
			r.dispatch(data, true)
		}),
	)
	return r
}

// Subscribe registers cb for the execution and joins its room when a link is
// up. The returned handle removes exactly this callback.
func (r *ExecutionRegistry) Subscribe(executionID string, cb ExecutionHandler) func() {
	id := uuid.NewString()

	r.mu.Lock()
	callbacks, exists := r.records[executionID]
	if !exists {
		callbacks = make(map[string]ExecutionHandler)
		r.records[executionID] = callbacks
	}
	callbacks[id] = cb
	r.mu.Unlock()

	if !exists && r.connected() {
		if err := r.sock.Emit("workflow:execution:join", map[string]string{"executionId": executionID}); err != nil {
			r.logger.Warn(context.Background(), "failed to join execution room", "execution_id", executionID, "error", err)
		}
	}

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if callbacks, ok := r.records[executionID]; ok {
			delete(callbacks, id)
			if len(callbacks) == 0 {
				delete(r.records, executionID)
			}
		}
	}
}

func (r *ExecutionRegistry) dispatch(data json.RawMessage, complete bool) {
	var event ExecutionEvent
	if err := json.Unmarshal(data, &event); err != nil {
		r.logger.Warn(context.Background(), "failed to decode execution event", "error", err)
		return
	}
	if complete && event.Status == "" {
		event.Status = StatusCompleted
	}

	r.mu.Lock()
	callbacks, ok := r.records[event.ExecutionID]
	if !ok {
		r.mu.Unlock()
		return
	}
	snapshot := make([]ExecutionHandler, 0, len(callbacks))
	for _, cb := range callbacks {
		snapshot = append(snapshot, cb)
	}
	r.mu.Unlock()

	for _, cb := range snapshot {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					r.logger.Error(context.Background(), "execution callback panicked",
						"execution_id", event.ExecutionID, "panic", rec)
				}
			}()
			cb(event)
		}()
	}
}

func (r *ExecutionRegistry) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range r.records {
		delete(r.records, id)
	}
}
