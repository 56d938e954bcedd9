package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/craterhq/crater-go/logging"
	"github.com/google/uuid"
)

// Collection event actions.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Event is one inbound collection event, delivered under the wire name
// "{collection}:{action}".
type Event struct {
	Action     string          `json:"action"`
	Collection string          `json:"collection"`
	Data       json.RawMessage `json:"data"`
	Timestamp  time.Time       `json:"timestamp"`
}

// EventHandler consumes collection events. A panic in one handler is logged
// and never prevents delivery to the remaining handlers.
type EventHandler func(Event)

// subscribeAck is the server's reply to a subscribe intent.
type subscribeAck struct {
	Collection string `json:"collection"`
	Status     string `json:"status"`
}

// subscription is the ref-counted record for one collection: the interested
// callbacks plus the transport listener handles this registry attached for
// it. The record survives reconnects; only the listener handles are
// re-created.
type subscription struct {
	callbacks map[string]EventHandler
	offs      []func()
}

// SubscriptionRegistry maintains the mapping from collection name to
// interested callbacks and keeps server-side room memberships in line with
// it. It owns every transport listener it attaches and tears them down
// itself.
type SubscriptionRegistry struct {
	sock      Socket
	connected func() bool
	logger    logging.Logger

	mu      sync.Mutex
	records map[string]*subscription
	ackOff  func()
}

func newSubscriptionRegistry(sock Socket, connected func() bool, logger logging.Logger) *SubscriptionRegistry {
	r := &SubscriptionRegistry{
		sock:      sock,
		connected: connected,
		logger:    logger,
		records:   make(map[string]*subscription),
	}
	// Server-side subscribe rejections are logged, never surfaced: the
	// local registration holds so a later replay can succeed.
	r.ackOff = sock.On("subscribe", func(data json.RawMessage) {
		var ack subscribeAck
		if err := json.Unmarshal(data, &ack); err != nil {
			return
		}
		if ack.Status != "" && ack.Status != "ok" {
			r.logger.Warn(context.Background(), "server rejected subscribe",
				"collection", ack.Collection, "status", ack.Status)
		}
	})
	return r
}

// Subscribe registers cb for the collection and returns the handle that
// removes exactly this callback. The first subscriber creates the record,
// attaches the transport listeners, and sends the subscribe intent; removing
// the last one deletes the record, detaches the listeners, and sends the
// unsubscribe intent.
func (r *SubscriptionRegistry) Subscribe(collection string, cb EventHandler) func() {
	id := uuid.NewString()

	r.mu.Lock()
	rec, exists := r.records[collection]
	if !exists {
		rec = &subscription{callbacks: make(map[string]EventHandler)}
		rec.offs = r.attach(collection)
		r.records[collection] = rec
	}
	rec.callbacks[id] = cb
	r.mu.Unlock()

	if !exists {
		r.sendSubscribe(collection)
	}

	return func() {
		r.mu.Lock()
		rec, ok := r.records[collection]
		if !ok {
			r.mu.Unlock()
			return
		}
		delete(rec.callbacks, id)
		last := len(rec.callbacks) == 0
		var offs []func()
		if last {
			offs = rec.offs
			delete(r.records, collection)
		}
		r.mu.Unlock()

		if last {
			for _, off := range offs {
				off()
			}
			if err := r.sock.Emit("unsubscribe", map[string]string{"collection": collection}); err != nil {
				r.logger.Warn(context.Background(), "failed to send unsubscribe", "collection", collection, "error", err)
			}
		}
	}
}

// attach registers the transport listeners for one collection's event
// channel. Caller holds r.mu.
func (r *SubscriptionRegistry) attach(collection string) []func() {
	offs := make([]func(), 0, 3)
	for _, action := range []string{ActionCreate, ActionUpdate, ActionDelete} {
		offs = append(offs, r.sock.On(collection+":"+action, func(data json.RawMessage) {
			var event Event
			if err := json.Unmarshal(data, &event); err != nil {
				r.logger.Warn(context.Background(), "failed to decode collection event", "collection", collection, "error", err)
				return
			}
			r.dispatch(collection, event)
		}))
	}
	return offs
}

// dispatch delivers one event to a snapshot of the collection's callbacks.
// The snapshot makes removal during dispatch safe; the per-callback recover
// isolates failures.
func (r *SubscriptionRegistry) dispatch(collection string, event Event) {
	r.mu.Lock()
	rec, ok := r.records[collection]
	if !ok {
		r.mu.Unlock()
		return
	}
	snapshot := make([]EventHandler, 0, len(rec.callbacks))
	for _, cb := range rec.callbacks {
		snapshot = append(snapshot, cb)
	}
	r.mu.Unlock()

	for _, cb := range snapshot {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					r.logger.Error(context.Background(), "subscription callback panicked",
						"collection", collection, "action", event.Action, "panic", rec)
				}
			}()
			cb(event)
		}()
	}
}

func (r *SubscriptionRegistry) sendSubscribe(collection string) {
	if !r.connected() {
		// Not connected yet: the registration holds and the next
		// connect/reconnect replay sends the intent.
		return
	}
	if err := r.sock.Emit("subscribe", map[string]string{"collection": collection}); err != nil {
		r.logger.Warn(context.Background(), "failed to send subscribe", "collection", collection, "error", err)
	}
}

// replayAll re-sends the subscribe intent and re-attaches transport
// listeners for every registered collection without touching the callback
// sets. Old listener handles are detached first so no callback can see an
// event twice.
func (r *SubscriptionRegistry) replayAll(ctx context.Context) {
	r.mu.Lock()
	collections := make([]string, 0, len(r.records))
	for collection, rec := range r.records {
		for _, off := range rec.offs {
			off()
		}
		rec.offs = r.attach(collection)
		collections = append(collections, collection)
	}
	r.mu.Unlock()

	for _, collection := range collections {
		if err := r.sock.Emit("subscribe", map[string]string{"collection": collection}); err != nil {
			r.logger.Warn(ctx, "failed to replay subscribe", "collection", collection, "error", err)
		}
	}
	if len(collections) > 0 {
		r.logger.Debug(ctx, "replayed subscriptions", "count", len(collections))
	}
}

// clear drops every record and its transport listeners without sending
// unsubscribe intents; used by the explicit disconnect path where the
// transport is going away entirely.
func (r *SubscriptionRegistry) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for collection, rec := range r.records {
		for _, off := range rec.offs {
			off()
		}
		delete(r.records, collection)
	}
}
